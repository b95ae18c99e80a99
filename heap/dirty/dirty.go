package dirty

import (
	"context"
	"sort"

	"github.com/joshuapare/heapkit/internal/format"
)

// defaultRangeCapacity is the pre-allocated capacity for dirty ranges.
const defaultRangeCapacity = 64

// Range is a dirty byte range.
type Range struct {
	Off int
	Len int
}

// End returns the exclusive end offset of r.
func (r Range) End() int { return r.Off + r.Len }

// Tracker accumulates dirty ranges and flushes them page by page.
type Tracker struct {
	ranges   []Range
	pageSize int
}

// NewTracker creates an empty tracker using 4KB pages.
func NewTracker() *Tracker {
	return &Tracker{
		ranges:   make([]Range, 0, defaultRangeCapacity),
		pageSize: format.PageSize,
	}
}

// Add records a dirty range. Coalescing is deferred to Ranges and Flush, so
// this only appends to a slice.
func (t *Tracker) Add(off, length int) {
	if length <= 0 {
		return
	}
	t.ranges = append(t.ranges, Range{Off: off, Len: length})
}

// Len returns the number of raw (uncoalesced) ranges recorded.
func (t *Tracker) Len() int { return len(t.ranges) }

// Reset clears all tracked ranges.
func (t *Tracker) Reset() { t.ranges = t.ranges[:0] }

// Ranges returns page-aligned, sorted, non-overlapping ranges covering every
// recorded write.
func (t *Tracker) Ranges() []Range {
	if len(t.ranges) == 0 {
		return nil
	}

	ps := t.pageSize
	aligned := make([]Range, len(t.ranges))
	for i, r := range t.ranges {
		start := (r.Off / ps) * ps
		end := r.End()
		if end%ps != 0 {
			end = (end/ps + 1) * ps
		}
		aligned[i] = Range{Off: start, Len: end - start}
	}

	sort.Slice(aligned, func(i, j int) bool {
		return aligned[i].Off < aligned[j].Off
	})

	merged := make([]Range, 0, len(aligned))
	current := aligned[0]
	for _, next := range aligned[1:] {
		if next.Off <= current.End() {
			current.Len = max(current.End(), next.End()) - current.Off
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}

// Flush syncs every coalesced range through s and clears the tracker.
//
// The context is checked between ranges. If it is cancelled part way, the
// ranges already synced are durable and the tracker keeps its state so the
// flush can be retried.
func (t *Tracker) Flush(ctx context.Context, s Syncer) error {
	for _, r := range t.Ranges() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Sync(r.Off, r.Len); err != nil {
			return err
		}
	}
	t.Reset()
	return nil
}

package trace

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/heap/region"
	"github.com/joshuapare/heapkit/internal/format"
)

// ctxCheckInterval is how many ops run between context checks.
const ctxCheckInterval = 1024

// Options configures a replay.
type Options struct {
	MaxHeap  int           // region reservation (0 = region.DefaultMaxHeap)
	Config   *alloc.Config // allocator configuration (nil = alloc.DefaultConfig)
	Validate bool          // run the heap checker after every operation

	// Image, when set, replays into a file-backed region at this path and
	// flushes it when the replay finishes, leaving a heap image on disk.
	Image string
}

// Result summarizes one replay.
type Result struct {
	Name        string        `json:"name"`
	Ops         int           `json:"ops"`
	Weight      int           `json:"weight"`
	PeakPayload int           `json:"peak_payload"` // max sum of live request sizes
	HeapSize    int           `json:"heap_size"`    // bytes claimed from the region
	Elapsed     time.Duration `json:"elapsed_ns"`
	Stats       alloc.Stats   `json:"stats"`
}

// Utilization is peak live payload over final heap size.
func (r Result) Utilization() float64 {
	if r.HeapSize == 0 {
		return 0
	}
	return float64(r.PeakPayload) / float64(r.HeapSize)
}

// Throughput returns operations per second.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// ReplayError reports the operation at which a replay failed.
type ReplayError struct {
	Trace string
	Index int
	Op    Op
	Err   error
}

func (e *ReplayError) Error() string {
	return fmt.Sprintf("%s: op %d (line %d, %v): %v", e.Trace, e.Index, e.Op.Line, e.Op, e.Err)
}

func (e *ReplayError) Unwrap() error { return e.Err }

type liveBlock struct {
	p    alloc.Ptr
	size int
}

// replayer holds the state of one replay.
type replayer struct {
	t    *Trace
	a    *alloc.Allocator
	r    alloc.Region
	dt   alloc.DirtyTracker // payload fills, nil without an image
	opts Options

	live    []liveBlock
	spans   intervals
	payload int
	peak    int
}

// Replay runs every op of t against a fresh allocator.
func Replay(ctx context.Context, t *Trace, opts Options) (Result, error) {
	var (
		r      alloc.Region
		dt     *dirty.Tracker
		mapped *region.Mapped
	)
	if opts.Image != "" {
		m, err := region.CreateFile(opts.Image, opts.MaxHeap)
		if err != nil {
			return Result{}, err
		}
		defer m.Close()
		r, dt, mapped = m, dirty.NewTracker(), m
	} else {
		r = region.NewMemory(opts.MaxHeap)
	}

	var tracker alloc.DirtyTracker
	if dt != nil {
		tracker = dt
	}
	a, err := alloc.New(r, tracker, opts.Config)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", t.Name, err)
	}

	rp := &replayer{
		t:    t,
		a:    a,
		r:    r,
		dt:   tracker,
		opts: opts,
		live: make([]liveBlock, t.NumIDs),
	}

	start := time.Now()
	for i, op := range t.Ops {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		if err := rp.step(op); err != nil {
			return Result{}, &ReplayError{Trace: t.Name, Index: i, Op: op, Err: err}
		}
	}
	elapsed := time.Since(start)

	if mapped != nil {
		if err := dt.Flush(ctx, mapped); err != nil {
			return Result{}, fmt.Errorf("%s: flush image: %w", t.Name, err)
		}
	}

	return Result{
		Name:        t.Name,
		Ops:         len(t.Ops),
		Weight:      t.Weight,
		PeakPayload: rp.peak,
		HeapSize:    a.HeapSize(),
		Elapsed:     elapsed,
		Stats:       a.Stats(),
	}, nil
}

func (rp *replayer) step(op Op) error {
	switch op.Kind {
	case OpAlloc:
		if rp.live[op.ID].p != alloc.Nil {
			return fmt.Errorf("block %d is already live", op.ID)
		}
		p, err := rp.a.Malloc(op.Size)
		if err != nil {
			return err
		}
		if err := rp.track(op.ID, p, op.Size); err != nil {
			return err
		}

	case OpRealloc:
		old := rp.live[op.ID]
		if err := rp.checkPattern(op.ID, old); err != nil {
			return err
		}
		p, err := rp.a.Realloc(old.p, op.Size)
		if err != nil {
			return err
		}
		rp.untrack(op.ID)
		if err := rp.checkPattern(op.ID, liveBlock{p, min(old.size, op.Size)}); err != nil {
			return fmt.Errorf("resize lost data: %w", err)
		}
		if err := rp.track(op.ID, p, op.Size); err != nil {
			return err
		}

	case OpFree:
		old := rp.live[op.ID]
		if err := rp.checkPattern(op.ID, old); err != nil {
			return err
		}
		rp.untrack(op.ID)
		if err := rp.a.Free(old.p); err != nil {
			return err
		}
	}

	if rp.opts.Validate {
		if err := rp.a.CheckHeap(false); err != nil {
			return err
		}
	}
	return nil
}

// track records a new live payload after checking its placement and fills
// it with the block's pattern. The fill is reported to the dirty tracker so
// image flushes cover payload pages as well as metadata.
func (rp *replayer) track(id int, p alloc.Ptr, size int) error {
	if p == alloc.Nil {
		if size != 0 {
			return errors.New("allocator returned nil")
		}
		return nil
	}

	lo := int(p)
	if !format.IsAligned(lo) {
		return fmt.Errorf("payload 0x%X not %d-byte aligned", lo, format.Alignment)
	}
	if lo < rp.r.Lo() || lo+size > rp.r.Hi() {
		return fmt.Errorf("payload [0x%X, 0x%X) outside heap [0x%X, 0x%X)", lo, lo+size, rp.r.Lo(), rp.r.Hi())
	}
	if size > 0 {
		if err := rp.spans.insert(lo, lo+size, id); err != nil {
			return err
		}
	}

	payload := rp.a.Payload(p)
	for i := range size {
		payload[i] = pattern(id, i)
	}
	if rp.dt != nil {
		rp.dt.Add(lo, size)
	}

	rp.live[id] = liveBlock{p, size}
	rp.payload += size
	rp.peak = max(rp.peak, rp.payload)
	return nil
}

func (rp *replayer) untrack(id int) {
	old := rp.live[id]
	if old.size > 0 {
		rp.spans.remove(int(old.p))
	}
	rp.payload -= old.size
	rp.live[id] = liveBlock{}
}

// checkPattern verifies that the first b.size bytes at b.p still hold the
// pattern of block id.
func (rp *replayer) checkPattern(id int, b liveBlock) error {
	if b.p == alloc.Nil || b.size == 0 {
		return nil
	}
	payload := rp.a.Payload(b.p)
	if len(payload) < b.size {
		return fmt.Errorf("block %d at 0x%X: capacity %d below %d", id, int(b.p), len(payload), b.size)
	}
	for i := range b.size {
		if payload[i] != pattern(id, i) {
			return fmt.Errorf("block %d at 0x%X: payload byte %d overwritten", id, int(b.p), i)
		}
	}
	return nil
}

func pattern(id, i int) byte {
	return byte(id*7 + i)
}

// ReplayAll replays traces in parallel, each on its own allocator. The first
// failure cancels the remaining replays. Results keep the order of traces.
func ReplayAll(ctx context.Context, traces []*Trace, opts Options) ([]Result, error) {
	if opts.Image != "" && len(traces) > 1 {
		return nil, fmt.Errorf("trace: image output needs a single trace, got %d", len(traces))
	}

	results := make([]Result, len(traces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, t := range traces {
		g.Go(func() error {
			res, err := Replay(gctx, t, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

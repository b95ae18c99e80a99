package trace

import (
	"fmt"
	"slices"
)

// span is the payload range [lo, hi) of a live block.
type span struct {
	lo, hi int
	id     int
}

// intervals is the set of live payloads, kept sorted by start offset.
type intervals struct {
	spans []span
}

func (s *intervals) search(lo int) (int, bool) {
	return slices.BinarySearchFunc(s.spans, lo, func(e span, lo int) int { return e.lo - lo })
}

// insert adds [lo, hi) for block id, failing if it overlaps a live payload.
func (s *intervals) insert(lo, hi, id int) error {
	i, found := s.search(lo)
	if found {
		return fmt.Errorf("payload [0x%X, 0x%X) of block %d overlaps block %d at 0x%X",
			lo, hi, id, s.spans[i].id, s.spans[i].lo)
	}
	if i > 0 && s.spans[i-1].hi > lo {
		p := s.spans[i-1]
		return fmt.Errorf("payload [0x%X, 0x%X) of block %d overlaps block %d [0x%X, 0x%X)",
			lo, hi, id, p.id, p.lo, p.hi)
	}
	if i < len(s.spans) && s.spans[i].lo < hi {
		n := s.spans[i]
		return fmt.Errorf("payload [0x%X, 0x%X) of block %d overlaps block %d [0x%X, 0x%X)",
			lo, hi, id, n.id, n.lo, n.hi)
	}
	s.spans = slices.Insert(s.spans, i, span{lo, hi, id})
	return nil
}

// remove drops the span starting at lo.
func (s *intervals) remove(lo int) {
	if i, found := s.search(lo); found {
		s.spans = slices.Delete(s.spans, i, i+1)
	}
}

func (s *intervals) len() int { return len(s.spans) }

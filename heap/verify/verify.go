package verify

import (
	"fmt"
	"io"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Error types for different validation failures.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Layout locates the heap structures inside a byte image.
type Layout struct {
	Data   []byte
	Base   int   // offset of the list-head table
	Bounds []int // class thresholds; len(Bounds)+1 lists
	Lo, Hi int   // valid region [Lo, Hi)
}

// NumClasses returns the number of free lists.
func (l Layout) NumClasses() int { return len(l.Bounds) + 1 }

// Prologue returns the payload offset of the prologue block.
func (l Layout) Prologue() int { return l.Base + format.PrologueBlock(l.NumClasses()) }

// FirstBlock returns the payload offset of the first block after the prologue.
func (l Layout) FirstBlock() int { return l.Base + format.FirstBlock(l.NumClasses()) }

// ListHead returns the head of free list c.
func (l Layout) ListHead(c int) int {
	return int(format.ReadU64(l.Data, l.Base+c*format.LinkSize))
}

// ClassRange returns the (lo, hi] block size range of list c. The last list
// has no upper bound (hi = -1).
func (l Layout) ClassRange(c int) (int, int) {
	lo := 0
	if c > 0 {
		lo = l.Bounds[c-1]
	}
	if c >= len(l.Bounds) {
		return lo, -1
	}
	return lo, l.Bounds[c]
}

func (l Layout) inClass(c, size int) bool {
	lo, hi := l.ClassRange(c)
	return size > lo && (hi < 0 || size <= hi)
}

// Check validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
// When w is non-nil, a trace of every block and list is written to it.
func Check(l Layout, w io.Writer) error {
	if err := Region(l); err != nil {
		return err
	}
	if err := Prologue(l); err != nil {
		return err
	}
	heapFree, err := Blocks(l, w)
	if err != nil {
		return err
	}
	listFree, err := FreeLists(l, w)
	if err != nil {
		return err
	}
	if heapFree != listFree {
		return &ValidationError{
			Type:    "FreeCount",
			Message: fmt.Sprintf("%d free blocks in heap order, %d on free lists", heapFree, listFree),
			Offset:  -1,
			Details: map[string]interface{}{
				"heap":  heapFree,
				"lists": listFree,
			},
		}
	}
	return nil
}

// Region validates that the layout fits in its data and leaves room for the
// fixed structures (list table, prologue, epilogue).
func Region(l Layout) error {
	if !buf.Has(l.Data, l.Lo, l.Hi-l.Lo) || l.Lo > l.Base {
		return &ValidationError{
			Type:    "Region",
			Message: fmt.Sprintf("bad region [0x%X, 0x%X) for %d bytes, table at 0x%X", l.Lo, l.Hi, len(l.Data), l.Base),
			Offset:  -1,
		}
	}
	if need := l.Base + format.InitialSize(l.NumClasses()); l.Hi < need {
		return &ValidationError{
			Type:    "Region",
			Message: fmt.Sprintf("heap too small: %d bytes (need %d)", l.Hi, need),
			Offset:  -1,
		}
	}
	for i := 1; i < len(l.Bounds); i++ {
		if l.Bounds[i] <= l.Bounds[i-1] {
			return &ValidationError{
				Type:    "Region",
				Message: fmt.Sprintf("class thresholds not increasing at %d: %v", i, l.Bounds),
				Offset:  -1,
			}
		}
	}
	return nil
}

// Prologue validates the permanently allocated sentinel block.
func Prologue(l Layout) error {
	bp := l.Prologue()
	hdr := block.HeaderTag(l.Data, bp)
	ftr := block.Read(l.Data, bp)
	if hdr.Size() != format.PrologueSize || !hdr.Allocated() {
		return &ValidationError{
			Type:    "Prologue",
			Message: fmt.Sprintf("bad prologue header %v", hdr),
			Offset:  block.Header(bp),
		}
	}
	if hdr != ftr {
		return &ValidationError{
			Type:    "Prologue",
			Message: fmt.Sprintf("header %v does not match footer %v", hdr, ftr),
			Offset:  bp,
		}
	}
	return nil
}

// BlockInfo describes one block found by Walk.
type BlockInfo struct {
	Off           int // payload offset
	Size          int
	Allocated     bool
	PrevAllocated bool
}

// Walk calls fn for every block between the prologue and the epilogue in
// address order. It stops at the first structural error or the first error
// returned by fn.
func Walk(l Layout, fn func(BlockInfo) error) error {
	bp := l.FirstBlock()
	for {
		hdrOff := block.Header(bp)
		if err := buf.CheckSpan(l.Lo, l.Hi, hdrOff, format.WordSize); err != nil {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("header out of bounds: %v", err),
				Offset:  hdrOff,
			}
		}
		hdr := block.Read(l.Data, hdrOff)
		if hdr.Size() == 0 {
			return epilogue(l, bp, hdr)
		}

		size := hdr.Size()
		if !format.IsAligned(bp) {
			return &ValidationError{
				Type:    "Blocks",
				Message: "payload not 8-byte aligned",
				Offset:  bp,
			}
		}
		if size < format.MinBlockSize {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("block size %d below minimum %d", size, format.MinBlockSize),
				Offset:  bp,
			}
		}
		// The block plus the next header must fit.
		if err := buf.CheckSpan(l.Lo, l.Hi, hdrOff, size+format.WordSize); err != nil {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("block of %d bytes exceeds heap: %v", size, err),
				Offset:  bp,
			}
		}

		if err := fn(BlockInfo{
			Off:           bp,
			Size:          size,
			Allocated:     hdr.Allocated(),
			PrevAllocated: hdr.PrevAllocated(),
		}); err != nil {
			return err
		}
		bp += size
	}
}

// epilogue validates the terminating header found at bp.
func epilogue(l Layout, bp int, hdr block.Tag) error {
	if !hdr.IsEpilogue() {
		return &ValidationError{
			Type:    "Epilogue",
			Message: fmt.Sprintf("zero-size block not allocated: %v", hdr),
			Offset:  block.Header(bp),
		}
	}
	if block.Header(bp) != l.Hi-format.WordSize {
		return &ValidationError{
			Type:    "Epilogue",
			Message: fmt.Sprintf("epilogue not at last word of heap (hi=0x%X)", l.Hi),
			Offset:  block.Header(bp),
		}
	}
	return nil
}

// Blocks walks the heap in address order and validates every block's tags.
// Returns the number of free blocks seen.
func Blocks(l Layout, w io.Writer) (int, error) {
	free := 0
	prevAlloc := true // prologue
	last := l.Prologue()

	err := Walk(l, func(b BlockInfo) error {
		hdr := block.HeaderTag(l.Data, b.Off)
		if w != nil {
			printBlock(w, l, b)
		}
		if b.PrevAllocated != prevAlloc {
			return &ValidationError{
				Type:    "Blocks",
				Message: fmt.Sprintf("predecessor flag %t but predecessor allocated=%t", b.PrevAllocated, prevAlloc),
				Offset:  b.Off,
			}
		}
		if !b.Allocated {
			ftr := block.Read(l.Data, block.Footer(l.Data, b.Off))
			if ftr != hdr {
				return &ValidationError{
					Type:    "Blocks",
					Message: fmt.Sprintf("header %v does not match footer %v", hdr, ftr),
					Offset:  b.Off,
					Details: map[string]interface{}{
						"header": uint32(hdr),
						"footer": uint32(ftr),
					},
				}
			}
			if !prevAlloc {
				return &ValidationError{
					Type:    "Blocks",
					Message: fmt.Sprintf("adjacent free blocks at 0x%X and 0x%X", last, b.Off),
					Offset:  b.Off,
				}
			}
			free++
		}
		prevAlloc = b.Allocated
		last = b.Off
		return nil
	})
	if err != nil {
		return 0, err
	}

	// Walk stopped on a valid epilogue; its flag must describe the last block.
	end := block.HeaderTag(l.Data, l.Hi)
	if end.PrevAllocated() != prevAlloc {
		return 0, &ValidationError{
			Type:    "Epilogue",
			Message: fmt.Sprintf("predecessor flag %t but last block allocated=%t", end.PrevAllocated(), prevAlloc),
			Offset:  block.Header(l.Hi),
		}
	}
	if w != nil {
		fmt.Fprintf(w, "0x%X: EOL\n", l.Hi)
	}
	return free, nil
}

// FreeLists validates every segregated list: link bounds, cycle freedom,
// membership, size ranges and link symmetry. Returns the number of listed blocks.
func FreeLists(l Layout, w io.Writer) (int, error) {
	total := 0
	for c := range l.NumClasses() {
		if err := acyclic(l, c); err != nil {
			return 0, err
		}

		prev := 0
		for bp := l.ListHead(c); bp != 0; bp = block.NextFree(l.Data, bp) {
			if err := node(l, c, bp); err != nil {
				return 0, err
			}
			hdr := block.HeaderTag(l.Data, bp)
			if hdr.Allocated() {
				return 0, &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("list %d holds allocated block %v", c, hdr),
					Offset:  bp,
				}
			}
			if !l.inClass(c, hdr.Size()) {
				lo, hi := l.ClassRange(c)
				return 0, &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("block of %d bytes on list %d (%d, %d]", hdr.Size(), c, lo, hi),
					Offset:  bp,
					Details: map[string]interface{}{
						"class": c,
						"size":  hdr.Size(),
					},
				}
			}
			if got := block.PrevFree(l.Data, bp); got != prev {
				return 0, &ValidationError{
					Type:    "FreeLists",
					Message: fmt.Sprintf("list %d: previous link 0x%X, expected 0x%X", c, got, prev),
					Offset:  bp,
				}
			}
			if w != nil {
				fmt.Fprintf(w, "list %d: 0x%X size %d next 0x%X prev 0x%X\n",
					c, bp, hdr.Size(), block.NextFree(l.Data, bp), prev)
			}
			prev = bp
			total++
		}
	}
	return total, nil
}

// node checks that a list member's header and links can be read.
func node(l Layout, c, bp int) error {
	if !format.IsAligned(bp) || bp < l.FirstBlock() {
		return &ValidationError{
			Type:    "FreeLists",
			Message: fmt.Sprintf("list %d: bad link 0x%X", c, bp),
			Offset:  bp,
		}
	}
	if err := buf.CheckSpan(l.Lo, l.Hi, block.Header(bp), format.WordSize+2*format.LinkSize); err != nil {
		return &ValidationError{
			Type:    "FreeLists",
			Message: fmt.Sprintf("list %d: link out of bounds: %v", c, err),
			Offset:  bp,
		}
	}
	return nil
}

// acyclic runs a two-speed walk over list c. Links are bounds checked before
// they are followed so a corrupt list cannot fault the walk.
func acyclic(l Layout, c int) error {
	step := func(bp int) (int, error) {
		if err := node(l, c, bp); err != nil {
			return 0, err
		}
		return block.NextFree(l.Data, bp), nil
	}

	slow, fast := l.ListHead(c), l.ListHead(c)
	for fast != 0 {
		var err error
		if fast, err = step(fast); err != nil || fast == 0 {
			return err
		}
		if fast, err = step(fast); err != nil {
			return err
		}
		if slow, err = step(slow); err != nil {
			return err
		}
		if fast != 0 && slow == fast {
			return &ValidationError{
				Type:    "FreeLists",
				Message: fmt.Sprintf("list %d contains a cycle", c),
				Offset:  slow,
			}
		}
	}
	return nil
}

func printBlock(w io.Writer, l Layout, b BlockInfo) {
	hdr := block.HeaderTag(l.Data, b.Off)
	if b.Allocated {
		fmt.Fprintf(w, "0x%X: header %v\n", b.Off, hdr)
		return
	}
	ftr := block.Read(l.Data, block.Footer(l.Data, b.Off))
	fmt.Fprintf(w, "0x%X: header %v footer %v\n", b.Off, hdr, ftr)
}

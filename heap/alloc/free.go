package alloc

import (
	"github.com/joshuapare/heapkit/heap/block"
)

// Free releases the block at p. Releasing Nil is a no-op.
//
// Pointers that were never returned by the allocator yield ErrBadPointer and
// releasing an already free block yields ErrDoubleFree; in both cases the
// heap is left untouched.
func (a *Allocator) Free(p Ptr) error {
	if p == Nil {
		return nil
	}
	bp := int(p)
	if err := a.checkPointer(bp); err != nil {
		return err
	}

	a.stats.FreeCalls++
	hdr := block.HeaderTag(a.bytes(), bp)
	size := hdr.Size()
	a.stats.BytesFreed += int64(size)

	a.writeFree(bp, size, hdr.PrevAllocated())
	a.setPrevAllocated(bp+size, false)
	a.coalesce(bp)
	return nil
}

// coalesceCase classifies a newly freed block by the state of its neighbours.
type coalesceCase int

const (
	neitherFree coalesceCase = iota
	predecessorFree
	successorFree
	bothFree
)

func (c coalesceCase) String() string {
	switch c {
	case neitherFree:
		return "neither"
	case predecessorFree:
		return "predecessor"
	case successorFree:
		return "successor"
	case bothFree:
		return "both"
	default:
		return "unknown"
	}
}

func classifyNeighbours(prevAlloc, nextAlloc bool) coalesceCase {
	switch {
	case prevAlloc && nextAlloc:
		return neitherFree
	case !prevAlloc && nextAlloc:
		return predecessorFree
	case prevAlloc && !nextAlloc:
		return successorFree
	default:
		return bothFree
	}
}

// coalesce merges the free block at bp with any free neighbour, files the
// result in its list and returns its payload offset. bp must carry a free
// header and footer and must not be on any list yet.
func (a *Allocator) coalesce(bp int) int {
	data := a.bytes()
	hdr := block.HeaderTag(data, bp)
	next := bp + hdr.Size()

	var merged, size int
	switch classifyNeighbours(hdr.PrevAllocated(), block.HeaderTag(data, next).Allocated()) {
	case neitherFree:
		merged, size = bp, hdr.Size()
	case successorFree:
		merged, size = a.mergeSuccessor(bp)
	case predecessorFree:
		merged, size = a.mergePredecessor(bp)
	case bothFree:
		merged, _ = a.mergeSuccessor(bp)
		merged, size = a.mergePredecessor(merged)
	}

	a.insert(merged, size)
	if debugAlloc {
		debugLogf("coalesce(0x%X) -> 0x%X size=%d", bp, merged, size)
	}
	return merged
}

// mergeSuccessor absorbs the free block following bp.
func (a *Allocator) mergeSuccessor(bp int) (int, int) {
	data := a.bytes()
	hdr := block.HeaderTag(data, bp)
	next := bp + hdr.Size()
	nsize := block.HeaderTag(data, next).Size()

	a.remove(next, nsize)
	size := hdr.Size() + nsize
	a.writeFree(bp, size, hdr.PrevAllocated())
	a.stats.CoalesceForward++
	return bp, size
}

// mergePredecessor absorbs bp into the free block preceding it. The merged
// block keeps the predecessor's own flag.
func (a *Allocator) mergePredecessor(bp int) (int, int) {
	data := a.bytes()
	size := block.HeaderTag(data, bp).Size()
	prev := block.Prev(data, bp)
	phdr := block.HeaderTag(data, prev)

	a.remove(prev, phdr.Size())
	size += phdr.Size()
	a.writeFree(prev, size, phdr.PrevAllocated())
	a.stats.CoalesceBackward++
	return prev, size
}

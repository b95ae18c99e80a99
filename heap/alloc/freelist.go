package alloc

import (
	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

// Free lists are LIFO, doubly linked through the payload of each free block.
// The head of class c is the 8-byte word at base + c*8; 0 terminates a list.

func (a *Allocator) headOffset(c int) int { return a.base + c*format.LinkSize }

func (a *Allocator) head(c int) int {
	return int(format.ReadU64(a.bytes(), a.headOffset(c)))
}

func (a *Allocator) setHead(c, bp int) {
	off := a.headOffset(c)
	format.PutU64(a.bytes(), off, uint64(bp))
	a.markDirty(off, format.LinkSize)
}

func (a *Allocator) setNextFree(bp, next int) {
	block.SetNextFree(a.bytes(), bp, next)
	a.markDirty(bp, format.LinkSize)
}

func (a *Allocator) setPrevFree(bp, prev int) {
	block.SetPrevFree(a.bytes(), bp, prev)
	a.markDirty(bp+format.LinkSize, format.LinkSize)
}

// insert pushes the free block at bp onto the head of its class list.
func (a *Allocator) insert(bp, size int) {
	c := a.sizeTable.classify(size)
	head := a.head(c)
	a.setNextFree(bp, head)
	a.setPrevFree(bp, 0)
	if head != 0 {
		a.setPrevFree(head, bp)
	}
	a.setHead(c, bp)
}

// remove splices the free block at bp out of its class list.
func (a *Allocator) remove(bp, size int) {
	c := a.sizeTable.classify(size)
	data := a.bytes()
	next := block.NextFree(data, bp)
	prev := block.PrevFree(data, bp)

	switch {
	case prev == 0 && next == 0:
		a.setHead(c, 0)
	case prev == 0:
		a.setHead(c, next)
		a.setPrevFree(next, 0)
	case next == 0:
		a.setNextFree(prev, 0)
	default:
		a.setNextFree(prev, next)
		a.setPrevFree(next, prev)
	}
}

// findFit returns the first free block of at least asize bytes, scanning from
// the request's own class upward. Returns 0 when nothing fits.
func (a *Allocator) findFit(asize int) int {
	data := a.bytes()
	for c := a.sizeTable.classify(asize); c < a.sizeTable.numClasses; c++ {
		for bp := a.head(c); bp != 0; bp = block.NextFree(data, bp) {
			if block.HeaderTag(data, bp).Size() >= asize {
				return bp
			}
		}
	}
	return 0
}

// FreeLists returns the number of blocks on each class list.
func (a *Allocator) FreeLists() []int {
	data := a.bytes()
	counts := make([]int, a.sizeTable.numClasses)
	for c := range counts {
		for bp := a.head(c); bp != 0; bp = block.NextFree(data, bp) {
			counts[c]++
		}
	}
	return counts
}

// Package block encodes and decodes the boundary tags that describe every
// block in a managed heap, and derives header, footer and neighbour offsets
// from a block's payload offset.
//
// Layout of a 4-byte tag (little-endian):
//
//	31                              3  2  1  0
//	+--------------------------------+--+--+--+
//	|          size >> 3             | 0|pa| a|
//	+--------------------------------+--+--+--+
//
// Allocated blocks carry only a header. Free blocks carry a header, a footer
// that mirrors it, and two 8-byte free-list links at the start of the payload.
// Every offset handled here is a payload offset ("bp") into the heap bytes.
package block

import (
	"fmt"

	"github.com/joshuapare/heapkit/internal/format"
)

// Tag is one encoded header or footer word.
type Tag uint32

// Pack builds a tag from a block size and its two state flags.
// size must be a multiple of 8 and at most format.MaxBlockSize.
func Pack(size int, prevAlloc, alloc bool) Tag {
	t := Tag(uint32(size) &^ format.FlagMask)
	if prevAlloc {
		t |= format.PrevAllocBit
	}
	if alloc {
		t |= format.AllocBit
	}
	return t
}

// Size returns the block size in bytes, flags excluded.
func (t Tag) Size() int { return int(uint32(t) &^ format.FlagMask) }

// Allocated reports whether the block is in use.
func (t Tag) Allocated() bool { return t&format.AllocBit != 0 }

// PrevAllocated reports whether the block immediately before this one is in use.
func (t Tag) PrevAllocated() bool { return t&format.PrevAllocBit != 0 }

// WithPrevAllocated returns t with the predecessor-allocated flag set to v.
func (t Tag) WithPrevAllocated(v bool) Tag {
	if v {
		return t | format.PrevAllocBit
	}
	return t &^ format.PrevAllocBit
}

// WithAllocated returns t with the allocated flag set to v.
func (t Tag) WithAllocated(v bool) Tag {
	if v {
		return t | format.AllocBit
	}
	return t &^ format.AllocBit
}

// IsEpilogue reports whether t is the zero-size allocated end marker.
func (t Tag) IsEpilogue() bool { return t.Size() == 0 && t.Allocated() }

func (t Tag) String() string {
	state := 'f'
	if t.Allocated() {
		state = 'a'
	}
	prev := 'f'
	if t.PrevAllocated() {
		prev = 'a'
	}
	return fmt.Sprintf("[%d:%c prev=%c]", t.Size(), state, prev)
}

// Read decodes the tag stored at off.
func Read(data []byte, off int) Tag {
	return Tag(format.ReadU32(data, off))
}

// Write stores t at off.
func Write(data []byte, off int, t Tag) {
	format.PutU32(data, off, uint32(t))
}

// Header returns the offset of the header of the block whose payload starts at bp.
func Header(bp int) int { return bp - format.WordSize }

// HeaderTag reads the header of the block at bp.
func HeaderTag(data []byte, bp int) Tag { return Read(data, Header(bp)) }

// Footer returns the offset of the footer of the block at bp, computed from
// the block's own header size. Only free blocks (and the prologue) have one.
func Footer(data []byte, bp int) int {
	return bp + HeaderTag(data, bp).Size() - format.DoubleWordSize
}

// Next returns the payload offset of the block following bp.
func Next(data []byte, bp int) int {
	return bp + HeaderTag(data, bp).Size()
}

// Prev returns the payload offset of the block preceding bp by reading the
// predecessor's footer. The caller must have checked PrevAllocated first:
// an allocated predecessor has no footer and the result would be garbage.
func Prev(data []byte, bp int) int {
	return bp - Read(data, bp-format.DoubleWordSize).Size()
}

// NextFree returns the next link of the free block at bp (0 when none).
func NextFree(data []byte, bp int) int { return int(format.ReadU64(data, bp)) }

// PrevFree returns the previous link of the free block at bp (0 when none).
func PrevFree(data []byte, bp int) int { return int(format.ReadU64(data, bp+format.LinkSize)) }

// SetNextFree stores the next link of the free block at bp.
func SetNextFree(data []byte, bp, next int) { format.PutU64(data, bp, uint64(next)) }

// SetPrevFree stores the previous link of the free block at bp.
func SetPrevFree(data []byte, bp, prev int) {
	format.PutU64(data, bp+format.LinkSize, uint64(prev))
}

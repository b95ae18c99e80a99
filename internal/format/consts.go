// Package format holds the low-level layout of a managed heap image: word
// sizes, flag bits, block size limits and the little-endian encoding used for
// every metadata word. Higher-level packages build on these constants so the
// layout is defined in exactly one place.
package format

const (
	// WordSize is the size of a boundary tag (header or footer) in bytes.
	WordSize = 4

	// DoubleWordSize is the alignment unit of the heap. Block sizes and
	// payload offsets are always multiples of it.
	DoubleWordSize = 8

	// Alignment is the payload alignment guaranteed to callers.
	Alignment = DoubleWordSize

	// AlignmentMask is used to round values up to Alignment.
	AlignmentMask = Alignment - 1

	// LinkSize is the size of one free-list link (next or previous offset).
	LinkSize = 8

	// Overhead is the space taken by a free block's header and footer.
	Overhead = 2 * WordSize

	// MinBlockSize is the smallest block the allocator will create:
	// header + next link + previous link + footer.
	//
	//	Offset  Size  Description
	//	bp-4    4     Header
	//	bp+0    8     Next free block (payload offset, 0 = none)
	//	bp+8    8     Previous free block
	//	bp+16   4     Footer
	MinBlockSize = 24

	// ChunkSize is the default number of bytes requested from the region
	// when no free block fits.
	ChunkSize = 168

	// PrologueSize is the size of the permanently allocated prologue block
	// (header + footer, no payload).
	PrologueSize = DoubleWordSize

	// MaxBlockSize is the largest size representable in a 32-bit tag once
	// the low flag bits are reserved.
	MaxBlockSize = 0xFFFFFFF8
)

// Tag flag bits. The low three bits of every header/footer are reserved for
// flags; sizes are multiples of 8 so they never overlap.
const (
	// AllocBit marks the block itself as allocated.
	AllocBit = 0x1

	// PrevAllocBit marks the immediately preceding block as allocated.
	PrevAllocBit = 0x2

	// FlagMask covers every reserved low bit.
	FlagMask = 0x7
)

const (
	// PageSize is the granularity used for dirty tracking and file syncs.
	PageSize = 0x1000

	// PageAlignmentMask is used to round values to PageSize.
	PageAlignmentMask = PageSize - 1
)

// PrologueBlock returns the payload offset of the prologue for a heap whose
// bucket table holds numClasses heads. The table is followed by 4 bytes of
// padding and the prologue header, so the prologue payload (its footer) lands
// on an 8-byte boundary.
func PrologueBlock(numClasses int) int {
	return numClasses*LinkSize + 2*WordSize
}

// FirstBlock returns the payload offset of the first real block.
func FirstBlock(numClasses int) int {
	return PrologueBlock(numClasses) + PrologueSize
}

// InitialSize returns the number of bytes the heap occupies before its first
// growth: bucket table, padding, prologue and epilogue.
func InitialSize(numClasses int) int {
	return numClasses*LinkSize + 4*WordSize
}

package alloc

import (
	"github.com/joshuapare/heapkit/heap/dirty"
	"github.com/joshuapare/heapkit/internal/format"
)

// Ptr is the payload offset of an allocated block inside the region.
type Ptr int

// Nil is the null Ptr. Offset 0 holds the list-head table, so no payload can live there.
const Nil Ptr = 0

// DirtyTracker is a type alias for the canonical interface defined in heap/dirty.
type DirtyTracker = dirty.DirtyTracker

// Region is the backing memory consumed by the allocator.
//
// Implementations:
//   - region.Memory: byte slice with a fixed reservation
//   - region.Mapped: mmap reservation, optionally file backed
type Region interface {
	// Sbrk grows the region by n bytes and returns the previous break,
	// or an error if the region cannot grow.
	Sbrk(n int) (int, error)

	// Bytes returns the region contents up to the current break.
	Bytes() []byte

	// Lo returns the lowest valid offset.
	Lo() int

	// Hi returns the current break (exclusive upper bound).
	Hi() int
}

// Config controls heap growth and the size class layout.
type Config struct {
	// ChunkSize is the minimum number of bytes requested from the region
	// whenever no free block fits. Rounded up to 8.
	ChunkSize int

	// Classes selects the segregated list thresholds (nil = ConfigPowerOfTwo).
	Classes *SizeClassConfig
}

// DefaultConfig matches the classic layout: 168-byte chunks and 12
// power-of-two lists.
var DefaultConfig = Config{
	ChunkSize: format.ChunkSize,
	Classes:   &ConfigPowerOfTwo,
}

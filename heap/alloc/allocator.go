package alloc

import (
	"fmt"
	"io"
	"os"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/format"
)

// Debug flag - set to true to enable verbose logging (compile-time toggle).
const debugAlloc = false

// Runtime debug flag for allocation logging - controlled by HEAP_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAP_LOG_ALLOC") != ""

// Allocator manages a region with segregated explicit free lists.
// - Each list is doubly linked through the payloads of its free blocks
// - Boundary tags let Free merge with both neighbours in O(1)
// - List heads live at the start of the region, so the region alone is the heap.
type Allocator struct {
	r  Region
	dt DirtyTracker // Dirty page tracker for metadata writes (nil = disabled)

	sizeTable *sizeClassTable
	chunkSize int

	base     int // offset of the list-head table
	prologue int // payload offset of the prologue block

	// Statistics for testing and instrumentation
	stats Stats

	// Test hook: called with the byte count before each growth (nil in production)
	onGrow func(int)
}

// New initializes an empty heap in r and returns an allocator over it.
//
// The region must be fresh: the allocator claims everything from the current
// break upward. dt may be nil. cfg == nil selects DefaultConfig.
func New(r Region, dt DirtyTracker, cfg *Config) (*Allocator, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	classes := cfg.Classes
	if classes == nil {
		classes = &ConfigPowerOfTwo
	}
	table, err := newSizeClassTable(*classes)
	if err != nil {
		return nil, err
	}
	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = format.ChunkSize
	}
	chunk = format.Align8(chunk)
	if chunk < format.MinBlockSize || !format.FitsBlockSize(chunk) {
		return nil, fmt.Errorf("%w: chunk size %d", ErrBadConfig, cfg.ChunkSize)
	}

	n := table.numClasses
	base, err := r.Sbrk(format.InitialSize(n))
	if err != nil {
		return nil, fmt.Errorf("%w: initial heap: %w", ErrNoSpace, err)
	}
	if !format.IsAligned(base) {
		return nil, fmt.Errorf("%w: break at 0x%X", ErrRegionMisaligned, base)
	}

	a := &Allocator{
		r:         r,
		dt:        dt,
		sizeTable: table,
		chunkSize: chunk,
		base:      base,
		prologue:  base + format.PrologueBlock(n),
	}

	data := a.bytes()
	clear(data[base : base+n*format.LinkSize+format.WordSize])
	a.markDirty(base, n*format.LinkSize+format.WordSize)

	prologue := block.Pack(format.PrologueSize, true, true)
	a.writeTag(block.Header(a.prologue), prologue)
	a.writeTag(a.prologue, prologue)
	a.writeTag(block.Header(a.prologue+format.PrologueSize), block.Pack(0, true, true))

	if _, err := a.grow(a.chunkSize); err != nil {
		return nil, err
	}
	return a, nil
}

// ============================================================================
// Allocation
// ============================================================================

// Malloc allocates a block with at least size payload bytes and returns its
// payload offset, aligned to 8. A non-positive size returns (Nil, nil).
func (a *Allocator) Malloc(size int) (Ptr, error) {
	a.stats.AllocCalls++
	if size <= 0 {
		return Nil, nil
	}

	if debugAlloc && a.stats.AllocCalls%25000 == 0 {
		a.PrintStats(os.Stderr)
	}

	asize, err := adjustSize(size)
	if err != nil {
		return Nil, err
	}

	bp := a.findFit(asize)
	if bp != 0 {
		a.stats.AllocFastPath++
	} else {
		a.stats.AllocSlowPath++
		if logAlloc {
			fmt.Fprintf(os.Stderr, "[ALLOC] Malloc(%d): no fit for %d, growing by %d\n",
				size, asize, max(asize, a.chunkSize))
		}
		bp, err = a.grow(max(asize, a.chunkSize))
		if err != nil {
			if debugAlloc {
				debugLogf("Malloc(%d): FAILED grow: %v", size, err)
				a.dumpAllocatorState(asize)
			}
			return Nil, err
		}
	}

	a.place(bp, asize)
	a.stats.BytesAllocated += int64(block.HeaderTag(a.bytes(), bp).Size())
	return Ptr(bp), nil
}

// adjustSize converts a request into a block size: room for the header,
// rounded to the alignment, never below the minimum block.
func adjustSize(size int) (int, error) {
	if !format.FitsBlockSize(size) || !format.FitsBlockSize(size+format.WordSize) {
		return 0, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return max(format.MinBlockSize, format.Align8(size+format.WordSize)), nil
}

// place carves an allocation of asize out of the free block at bp.
// A remainder of at least MinBlockSize is split off and filed as a new free
// block; smaller remainders are left inside the allocation.
func (a *Allocator) place(bp, asize int) {
	data := a.bytes()
	hdr := block.HeaderTag(data, bp)
	bsize := hdr.Size()
	a.remove(bp, bsize)

	if rem := bsize - asize; rem >= format.MinBlockSize {
		a.writeTag(block.Header(bp), block.Pack(asize, hdr.PrevAllocated(), true))
		next := bp + asize
		a.writeFree(next, rem, true)
		a.insert(next, rem)
		a.stats.SplitCount++
		if debugAlloc {
			debugLogf("place(0x%X): split %d -> %d + %d", bp, bsize, asize, rem)
		}
		return
	}

	a.writeTag(block.Header(bp), block.Pack(bsize, hdr.PrevAllocated(), true))
	a.setPrevAllocated(bp+bsize, true)
}

// ============================================================================
// Accessors
// ============================================================================

// Payload returns the usable bytes of the allocated block at p. The slice
// covers the whole capacity of the block, which is at least the requested size.
// It returns nil for Nil or an invalid pointer.
func (a *Allocator) Payload(p Ptr) []byte {
	if p == Nil || a.checkPointer(int(p)) != nil {
		return nil
	}
	data := a.bytes()
	bp := int(p)
	payload, ok := buf.Slice(data, bp, block.HeaderTag(data, bp).Size()-format.WordSize)
	if !ok {
		return nil
	}
	return payload[:len(payload):len(payload)]
}

// Capacity returns the number of payload bytes available at p.
func (a *Allocator) Capacity(p Ptr) int {
	return len(a.Payload(p))
}

// NumClasses returns the number of segregated lists.
func (a *Allocator) NumClasses() int { return a.sizeTable.numClasses }

// SizeClass returns the list index used for a block of the given size.
func (a *Allocator) SizeClass(size int) int { return a.sizeTable.classify(size) }

// Layout describes the heap for the validator and other read-only tooling.
func (a *Allocator) Layout() verify.Layout {
	return verify.Layout{
		Data:   a.bytes(),
		Base:   a.base,
		Bounds: a.sizeTable.bounds,
		Lo:     a.r.Lo(),
		Hi:     a.r.Hi(),
	}
}

// CheckHeap validates every heap invariant. With verbose set, a block-by-block
// trace is written to stderr.
func (a *Allocator) CheckHeap(verbose bool) error {
	var w io.Writer
	if verbose {
		w = os.Stderr
	}
	return verify.Check(a.Layout(), w)
}

// ImageLayout describes a heap image produced by an allocator configured with
// classes (nil = ConfigPowerOfTwo) whose list table starts at offset 0.
func ImageLayout(data []byte, classes *SizeClassConfig) (verify.Layout, error) {
	if classes == nil {
		classes = &ConfigPowerOfTwo
	}
	bounds, err := classes.Bounds()
	if err != nil {
		return verify.Layout{}, err
	}
	return verify.Layout{
		Data:   data,
		Bounds: bounds,
		Lo:     0,
		Hi:     len(data),
	}, nil
}

// ============================================================================
// Metadata writes
// ============================================================================

func (a *Allocator) bytes() []byte { return a.r.Bytes() }

func (a *Allocator) markDirty(off, n int) {
	if a.dt != nil {
		a.dt.Add(off, n)
	}
}

func (a *Allocator) writeTag(off int, t block.Tag) {
	block.Write(a.bytes(), off, t)
	a.markDirty(off, format.WordSize)
}

// writeFree formats a free block of size bytes at bp: header and footer.
func (a *Allocator) writeFree(bp, size int, prevAlloc bool) {
	t := block.Pack(size, prevAlloc, false)
	a.writeTag(block.Header(bp), t)
	a.writeTag(bp+size-format.DoubleWordSize, t)
}

// setPrevAllocated updates the predecessor flag of the block at bp, keeping
// the footer of a free block in sync. The epilogue has no footer.
func (a *Allocator) setPrevAllocated(bp int, v bool) {
	t := block.HeaderTag(a.bytes(), bp).WithPrevAllocated(v)
	a.writeTag(block.Header(bp), t)
	if !t.Allocated() {
		a.writeTag(bp+t.Size()-format.DoubleWordSize, t)
	}
}

// checkPointer reports whether bp looks like a live allocation.
// Detection is best effort: a pointer into the middle of a payload can only
// be caught when the bytes in front of it do not resemble an allocated header.
func (a *Allocator) checkPointer(bp int) error {
	first := a.prologue + format.PrologueSize
	if bp < first || bp >= a.r.Hi() || !format.IsAligned(bp) {
		return fmt.Errorf("%w: 0x%X", ErrBadPointer, bp)
	}
	hdr := block.HeaderTag(a.bytes(), bp)
	size := hdr.Size()
	if size < format.MinBlockSize || bp+size > a.r.Hi() {
		return fmt.Errorf("%w: 0x%X has bad header %v", ErrBadPointer, bp, hdr)
	}
	if !hdr.Allocated() {
		return fmt.Errorf("%w: 0x%X", ErrDoubleFree, bp)
	}
	return nil
}

package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/heapkit/heap/block"
	"github.com/joshuapare/heapkit/internal/format"
)

// grow extends the heap by n bytes (rounded up to 8) and returns the payload
// offset of the resulting free block, already merged with a free predecessor
// and filed in its list.
//
// The new block starts where the old epilogue header was, so it inherits the
// epilogue's predecessor flag; a fresh epilogue is written at the new end.
func (a *Allocator) grow(n int) (int, error) {
	n = format.Align8(n)
	if !format.FitsBlockSize(n) {
		return 0, fmt.Errorf("%w: grow by %d", ErrTooLarge, n)
	}

	if a.onGrow != nil {
		a.onGrow(n)
	}

	bp, err := a.r.Sbrk(n)
	if err != nil {
		return 0, fmt.Errorf("%w: grow by %d: %w", ErrNoSpace, n, err)
	}

	a.stats.GrowCalls++
	a.stats.GrowBytes += int64(n)
	if logAlloc {
		fmt.Fprintf(os.Stderr, "[GROW] +%d bytes at 0x%X (heap now %d bytes)\n", n, bp, a.r.Hi())
	}

	epilogue := block.HeaderTag(a.bytes(), bp)
	a.writeFree(bp, n, epilogue.PrevAllocated())
	a.writeTag(block.Header(bp+n), block.Pack(0, false, true))

	return a.coalesce(bp), nil
}

package alloc

import (
	"fmt"
	"io"

	"github.com/joshuapare/heapkit/heap/block"
)

// Stats holds allocator counters. Byte counts include block overhead.
type Stats struct {
	GrowCalls        int   // Number of grow() calls
	GrowBytes        int64 // Total bytes added via grow()
	AllocCalls       int   // Total Malloc() calls (Realloc/Calloc included)
	AllocFastPath    int   // Allocations served from a free list
	AllocSlowPath    int   // Allocations that required grow()
	FreeCalls        int   // Successful Free() calls
	BytesAllocated   int64 // Total block bytes handed out
	BytesFreed       int64 // Total block bytes released
	SplitCount       int   // Number of block splits
	CoalesceForward  int   // Merges with a free successor
	CoalesceBackward int   // Merges with a free predecessor
}

// Stats returns the current counters.
func (a *Allocator) Stats() Stats {
	return a.stats
}

// HeapSize returns the number of bytes currently claimed from the region.
func (a *Allocator) HeapSize() int {
	return a.r.Hi() - a.base
}

// FreeBytes returns the total size of all free blocks.
func (a *Allocator) FreeBytes() int {
	data := a.bytes()
	total := 0
	for c := range a.sizeTable.numClasses {
		for bp := a.head(c); bp != 0; bp = block.NextFree(data, bp) {
			total += block.HeaderTag(data, bp).Size()
		}
	}
	return total
}

// PrintStats writes allocator statistics to w.
func (a *Allocator) PrintStats(w io.Writer) {
	s := a.stats
	fmt.Fprintf(w, "\n=== ALLOCATOR STATISTICS ===\n")
	fmt.Fprintf(w, "Size classes:       %s (%d lists)\n", a.sizeTable, a.sizeTable.numClasses)
	fmt.Fprintf(w, "Heap size:          %d bytes (%d free)\n", a.HeapSize(), a.FreeBytes())
	fmt.Fprintf(w, "Grow calls:         %d (%d bytes added)\n", s.GrowCalls, s.GrowBytes)
	fmt.Fprintf(
		w,
		"Alloc calls:        %d (fast: %d, slow: %d)\n",
		s.AllocCalls,
		s.AllocFastPath,
		s.AllocSlowPath,
	)
	fmt.Fprintf(w, "Free calls:         %d\n", s.FreeCalls)
	fmt.Fprintf(w, "Bytes allocated:    %d\n", s.BytesAllocated)
	fmt.Fprintf(w, "Bytes freed:        %d\n", s.BytesFreed)
	fmt.Fprintf(w, "Net allocated:      %d\n", s.BytesAllocated-s.BytesFreed)
	fmt.Fprintf(w, "Block splits:       %d\n", s.SplitCount)
	fmt.Fprintf(w, "Coalesce fwd:       %d\n", s.CoalesceForward)
	fmt.Fprintf(w, "Coalesce back:      %d\n", s.CoalesceBackward)
	fmt.Fprintf(w, "============================\n")
}

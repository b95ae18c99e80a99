package alloc

import (
	"fmt"
	"os"

	"github.com/joshuapare/heapkit/heap/block"
)

// debugLogf prints debug messages if debugAlloc is enabled.
func debugLogf(format string, args ...any) {
	if debugAlloc {
		fmt.Fprintf(os.Stderr, "[ALLOC] "+format+"\n", args...)
	}
}

// dumpAllocatorState dumps the free lists for debugging.
func (a *Allocator) dumpAllocatorState(need int) {
	if !debugAlloc {
		return
	}

	fmt.Fprintf(os.Stderr, "\n=== ALLOCATOR STATE DUMP (need=%d) ===\n", need)
	fmt.Fprintf(os.Stderr, "Heap: [0x%X, 0x%X)\n", a.r.Lo(), a.r.Hi())

	data := a.bytes()
	totalFree, totalBytes := 0, 0
	for c := range a.sizeTable.numClasses {
		count, minSize, maxSize := 0, 0, 0
		for bp := a.head(c); bp != 0; bp = block.NextFree(data, bp) {
			size := block.HeaderTag(data, bp).Size()
			if count == 0 || size < minSize {
				minSize = size
			}
			maxSize = max(maxSize, size)
			count++
			totalBytes += size
		}
		if count > 0 {
			lo, hi := a.sizeTable.classRange(c)
			fmt.Fprintf(os.Stderr, "  SC[%d] (%d, %d]: %d blocks, size range [%d, %d]\n",
				c, lo, hi, count, minSize, maxSize)
		}
		totalFree += count
	}

	fmt.Fprintf(os.Stderr, "Total: %d free blocks, %d bytes free\n", totalFree, totalBytes)
	fmt.Fprintf(os.Stderr, "===================================\n\n")
}

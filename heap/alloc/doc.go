// Package alloc implements a general-purpose heap allocator over a single
// growable region, using segregated free lists and boundary-tag coalescing.
//
// # Overview
//
// Every piece of allocator state lives inside the managed region itself: the
// table of free-list heads sits at the start of the region, block headers and
// footers are 4-byte tags in front of and behind each block, and free blocks
// store their list links in their own payload. Addresses handed to callers are
// payload offsets (Ptr) into the region, never Go pointers.
//
// # Heap Layout
//
//	+------------------+-----+----------+----------+--------- ... -+----------+
//	| list heads (8B*N)| pad | prologue | prologue |   blocks      | epilogue |
//	|                  |  4B | header   | footer   |               | header   |
//	+------------------+-----+----------+----------+--------- ... -+----------+
//
// The prologue and epilogue are permanently allocated sentinels, so coalescing
// never needs to special-case the ends of the heap.
//
// # Size Classes
//
// The default configuration keeps 12 segregated lists:
//
//	Class 0:      0 -    128 bytes
//	Class 1:    129 -    256 bytes
//	Class 2:    257 -    512 bytes
//	...
//	Class 10: 65537 - 131072 bytes
//	Class 11: 131073+        bytes (catch-all)
//
// Allocation searches the smallest class that could hold the request and
// moves upward, taking the first block that fits in each list.
//
// # Usage Example
//
//	r := region.NewMemory(0)
//	a, err := alloc.New(r, nil, nil)
//	if err != nil {
//	    return err
//	}
//
//	p, err := a.Malloc(100)
//	if err != nil {
//	    return err
//	}
//	copy(a.Payload(p), data)
//
//	p, err = a.Realloc(p, 400)
//	...
//	err = a.Free(p)
//
// # Thread Safety
//
// Allocator instances are not thread-safe. Independent instances share no
// state and may be used from different goroutines.
//
// # Related Packages
//
//   - github.com/joshuapare/heapkit/heap/block: tag encoding and block arithmetic
//   - github.com/joshuapare/heapkit/heap/region: backing memory
//   - github.com/joshuapare/heapkit/heap/verify: heap consistency checker
//   - github.com/joshuapare/heapkit/heap/dirty: modified-page tracking
package alloc

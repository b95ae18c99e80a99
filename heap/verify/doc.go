// Package verify provides consistency checks for heaps managed by heap/alloc.
//
// # Overview
//
// Check walks a heap image twice: once in address order over every block,
// and once over every segregated free list. It never modifies the image, so
// it can run against a live allocator, a mapped file or a copy.
//
// Validation categories:
//   - Prologue: permanently allocated 8-byte sentinel, header == footer
//   - Blocks: in bounds, aligned, at least the minimum size
//   - Free blocks: header == footer, never two free blocks in a row
//   - Predecessor flags: each block's flag matches its neighbour's state
//   - Epilogue: zero-size allocated header in the last word of the region
//   - Free lists: in bounds, symmetric links, members free and in range,
//     no cycles
//   - Counts: free blocks in address order == free blocks on lists
//
// # Quick Start
//
//	if err := verify.Check(a.Layout(), nil); err != nil {
//	    fmt.Printf("Heap corrupt: %v\n", err)
//	}
//
// Pass a writer to get a block-by-block trace:
//
//	_ = verify.Check(a.Layout(), os.Stdout)
//
// # ValidationError
//
// Every failure is a *ValidationError carrying the check that failed, the
// offending offset (-1 when not tied to one) and optional details:
//
//	var verr *verify.ValidationError
//	if errors.As(err, &verr) {
//	    fmt.Println(verr.Type, verr.Offset)
//	}
package verify

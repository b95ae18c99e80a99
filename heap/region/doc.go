// Package region provides the backing memory managed by the allocator.
//
// # Overview
//
// A region is one contiguous, byte-addressable buffer that only grows. The
// allocator asks for more space with Sbrk and addresses everything as offsets
// from the start of the buffer, so the region never hands out native pointers.
//
// # Implementations
//
// Memory: a Go byte slice whose capacity is reserved up front (default 20 MiB)
// so growth never moves the data.
//
// Mapped: an mmap reservation. Anonymous by default; when created with
// CreateFile the mapping is shared with a file that is extended on every Sbrk
// and can be flushed page by page with Sync, leaving a heap image on disk.
//
// # Bounds
//
// Lo returns the first valid offset (always 0) and Hi returns the current
// break, one past the last valid byte. The heap validator uses both for its
// in-bounds checks.
//
// # Thread Safety
//
// Regions are not thread-safe. They are owned by exactly one allocator.
package region

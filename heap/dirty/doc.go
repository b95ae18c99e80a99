// Package dirty tracks which byte ranges of a heap image were modified so a
// file-backed region can flush only the pages that changed.
//
// # Overview
//
// The allocator reports every metadata word it writes (headers, footers,
// free-list links, bucket heads) through the DirtyTracker interface. The
// Tracker records those ranges cheaply and coalesces them at flush time:
//
//	Dirty writes: [0x10+4, 0x1008+8, 0x1010+4] → Ranges: [0x0-0x2000]
//
// # Usage
//
//	dt := dirty.NewTracker()
//	a, err := alloc.New(r, dt, nil)
//	...
//	if err := dt.Flush(ctx, r); err != nil { ... }
//
// # Thread Safety
//
// Tracker instances are not thread-safe.
package dirty

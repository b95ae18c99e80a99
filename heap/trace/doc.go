// Package trace replays allocation traces against heap/alloc and measures
// correctness, space utilization and throughput.
//
// # Trace Format
//
// A trace is a text file with four header numbers followed by one operation
// per line:
//
//	20000      suggested heap size (informational)
//	2          number of distinct block ids
//	5          number of operations
//	1          weight
//	a 0 512    allocate 512 bytes for block 0
//	a 1 128
//	r 0 640    resize block 0 to 640 bytes
//	f 1        free block 1
//	f 0
//
// Blank lines and lines starting with '#' are ignored.
//
// # Checks
//
// Replay verifies that every payload is 8-byte aligned, lies inside the
// region and never overlaps another live payload. Each payload is filled with
// a per-block pattern that must survive until the block is resized or freed.
// With Options.Validate set, the heap checker also runs after every operation.
//
// # Usage Example
//
//	t, err := trace.LoadFile("traces/binary.rep")
//	if err != nil {
//	    return err
//	}
//	res, err := trace.Replay(ctx, t, trace.Options{Validate: true})
//	if err != nil {
//	    return err
//	}
//	trace.WriteReport(os.Stdout, []trace.Result{res})
package trace

// Package buf contains overflow-safe size arithmetic and bounds helpers shared
// by the allocator and the heap validator.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulSizeSafe multiplies two non-negative sizes, returning ok = false when
// either operand is negative or the product would overflow int.
// This is the count * elementSize guard used by zero-filled allocation.
func MulSizeSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// CheckSpan validates that the n bytes starting at off lie inside [lo, hi).
// Returns an error describing the specific failure (overflow or out of bounds).
//
//	if err := buf.CheckSpan(l.Lo, l.Hi, hdr, format.WordSize); err != nil {
//	    return fmt.Errorf("header: %w", err)
//	}
func CheckSpan(lo, hi, off, n int) error {
	if n < 0 {
		return fmt.Errorf("negative length: %d", n)
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok {
		return fmt.Errorf("overflow: offset=%d + size=%d", off, n)
	}
	if off < lo {
		return fmt.Errorf("bounds: offset=%d < lo=%d", off, lo)
	}
	if end > hi {
		return fmt.Errorf("bounds: end=%d > hi=%d", end, hi)
	}
	return nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}

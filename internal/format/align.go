package format

// Align8 returns n aligned up to the next 8-byte boundary.
// Used for block sizes and payload offsets.
//
// Example:
//
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(9)  = 16
//	Align8(16) = 16
func Align8(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// AlignPage returns n aligned up to the next 4KB boundary.
//
// Example:
//
//	AlignPage(1)    = 4096
//	AlignPage(4096) = 4096
//	AlignPage(4097) = 8192
func AlignPage(n int) int {
	return (n + PageAlignmentMask) & ^PageAlignmentMask
}

// TruncPage returns n rounded down to a 4KB boundary.
func TruncPage(n int) int {
	return n & ^PageAlignmentMask
}

// FitsBlockSize reports whether n can be stored in a block tag. The limit is
// compared as uint64 so the check holds where int is 32 bits wide.
func FitsBlockSize(n int) bool {
	return n >= 0 && uint64(n) <= MaxBlockSize
}

// IsAligned reports whether n is a multiple of Alignment.
func IsAligned(n int) bool {
	return n&AlignmentMask == 0
}

package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free block was large enough and the region could not grow.
	ErrNoSpace = errors.New("alloc: out of memory")

	// ErrTooLarge indicates a request whose block size cannot be represented in a tag.
	ErrTooLarge = errors.New("alloc: request too large")

	// ErrOverflow indicates that count*size overflowed in Calloc.
	ErrOverflow = errors.New("alloc: size computation overflows")

	// ErrNegativeSize indicates a negative size passed to Realloc or Calloc.
	ErrNegativeSize = errors.New("alloc: negative size")

	// ErrBadPointer indicates a pointer that was not returned by this allocator.
	ErrBadPointer = errors.New("alloc: invalid pointer")

	// ErrDoubleFree indicates releasing a block that is already free.
	ErrDoubleFree = errors.New("alloc: block already free")

	// ErrBadConfig indicates an unusable size class or chunk configuration.
	ErrBadConfig = errors.New("alloc: invalid configuration")

	// ErrRegionMisaligned indicates the region's break was not 8-byte aligned at init.
	ErrRegionMisaligned = errors.New("alloc: region break not aligned")
)

package region

import "errors"

var (
	// ErrExhausted indicates the region cannot grow by the requested amount.
	ErrExhausted = errors.New("region: out of memory")

	// ErrNegativeGrow indicates a negative Sbrk increment; regions never shrink.
	ErrNegativeGrow = errors.New("region: negative increment")

	// ErrClosed indicates use of a region after Close.
	ErrClosed = errors.New("region: closed")
)

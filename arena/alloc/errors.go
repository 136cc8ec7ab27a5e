package alloc

import "errors"

var (
	// ErrTooLarge indicates a request above MaxAllocationSize. The pool
	// remains usable after returning it.
	ErrTooLarge = errors.New("alloc: allocation is too large")

	// ErrBadAlign indicates an alignment that is not a power of two or
	// exceeds MaxAlignment.
	ErrBadAlign = errors.New("alloc: alignment must be a power of two not larger than 64")

	// ErrNeedBytes indicates a request for zero or negative bytes.
	ErrNeedBytes = errors.New("alloc: need at least one byte")
)

package alloc

import "errors"

var (
	// ErrBadAlign indicates an alignment that is zero, not a power of two, or
	// larger than MaxAlign.
	ErrBadAlign = errors.New("alloc: alignment must be a power of two <= MaxAlign")

	// ErrBackingFailed indicates the backing could not supply memory. The
	// allocator treats this as fatal.
	ErrBackingFailed = errors.New("alloc: backing allocation failed")

	// ErrNegativeSize indicates a negative allocation size.
	ErrNegativeSize = errors.New("alloc: negative size")
)

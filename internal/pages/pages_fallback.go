//go:build !unix

// Package pages provides platform-specific helpers for obtaining raw,
// page-aligned memory outside the Go heap.
package pages

import (
	"fmt"
	"unsafe"
)

const fallbackPageSize = 4096

// Size returns the page size assumed on this platform.
func Size() int {
	return fallbackPageSize
}

// Map allocates from the Go heap when anonymous mappings are not available.
// The region is page-aligned by over-allocating and trimming.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("pages: invalid size %d", size)
	}
	size = RoundUp(size)
	raw := make([]byte, size+fallbackPageSize)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	skip := int((fallbackPageSize - base%fallbackPageSize) % fallbackPageSize)
	return raw[skip : skip+size : skip+size], func() error { return nil }, nil
}

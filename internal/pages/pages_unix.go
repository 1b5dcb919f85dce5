//go:build unix

// Package pages provides platform-specific helpers for obtaining raw,
// page-aligned memory outside the Go heap.
package pages

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Size returns the OS page size.
func Size() int {
	return unix.Getpagesize()
}

// Map returns a zeroed, page-aligned, read-write region of at least size
// bytes backed by an anonymous private mapping. The returned release func
// unmaps the region; calling it more than once is a no-op.
//
// The region is invisible to the garbage collector: callers must never store
// Go pointers in it.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("pages: invalid size %d", size)
	}
	size = RoundUp(size)
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("pages: mmap %d bytes: %w", size, err)
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, release, nil
}

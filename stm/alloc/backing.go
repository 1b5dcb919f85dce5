package alloc

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/stmkit/internal/pages"
)

// MaxAlign is the largest alignment Allocate accepts. Every block handed out
// by a Backing starts on a MaxAlign boundary.
const MaxAlign = 64

// Backing supplies and reclaims the raw blocks a BumpAllocator carves from.
type Backing interface {
	// Acquire returns a zeroed region of exactly size bytes whose first byte
	// is MaxAlign-aligned.
	Acquire(size int) ([]byte, error)

	// Release returns a region previously obtained from Acquire.
	Release(block []byte) error
}

// HeapBacking allocates blocks on the Go heap.
type HeapBacking struct{}

// Acquire over-allocates by MaxAlign and trims the front to align the block.
func (HeapBacking) Acquire(size int) ([]byte, error) {
	raw := make([]byte, size+MaxAlign)
	skip := alignPad(uintptr(unsafe.Pointer(unsafe.SliceData(raw))), MaxAlign)
	return raw[skip : skip+uintptr(size) : skip+uintptr(size)], nil
}

// Release is a no-op; the garbage collector reclaims heap blocks.
func (HeapBacking) Release([]byte) error { return nil }

// PageBacking allocates blocks as anonymous page mappings. Block sizes are
// rounded up to whole pages internally but Acquire returns exactly the
// requested length.
type PageBacking struct {
	releasers map[*byte]func() error
}

// NewPageBacking creates an empty PageBacking.
func NewPageBacking() *PageBacking {
	return &PageBacking{releasers: make(map[*byte]func() error)}
}

// Acquire maps a fresh region.
func (pb *PageBacking) Acquire(size int) ([]byte, error) {
	data, release, err := pages.Map(size)
	if err != nil {
		return nil, err
	}
	pb.releasers[unsafe.SliceData(data)] = release
	return data[:size:size], nil
}

// Release unmaps a region obtained from Acquire.
func (pb *PageBacking) Release(block []byte) error {
	key := unsafe.SliceData(block)
	release, ok := pb.releasers[key]
	if !ok {
		return fmt.Errorf("alloc: release of unknown block %p", key)
	}
	delete(pb.releasers, key)
	return release()
}

// Outstanding returns the number of mapped regions not yet released.
func (pb *PageBacking) Outstanding() int {
	return len(pb.releasers)
}

// alignPad returns the padding needed to bring addr up to align.
func alignPad(addr, align uintptr) uintptr {
	return (align - addr&(align-1)) & (align - 1)
}

var (
	_ Backing = HeapBacking{}
	_ Backing = (*PageBacking)(nil)
)

package alloc

import (
	"fmt"
	"unsafe"
)

const (
	// defaultBlockSize is the size of the first block (4KB).
	defaultBlockSize = 4096

	// defaultGrowthPct doubles each new block.
	defaultGrowthPct = 200

	// defaultMaxBlockSize caps block growth (1MB).
	defaultMaxBlockSize = 1 << 20
)

// Options configures a BumpAllocator.
//
// Use DefaultOptions() for general-purpose defaults.
type Options struct {
	// BlockSize is the size of the first block in bytes.
	// Default: 4096
	BlockSize int

	// GrowthPct is the size of each new block as a percentage of the
	// previous block. Values below 100 are treated as 100 (fixed size).
	// Default: 200
	GrowthPct int

	// MaxBlockSize caps block growth. Requests larger than the current block
	// size are still served, as dedicated oversized allocations.
	// Default: 1MB
	MaxBlockSize int

	// Backing supplies raw blocks.
	// Default: HeapBacking{}
	Backing Backing
}

// DefaultOptions returns growing 4KB..1MB heap-backed blocks.
func DefaultOptions() Options {
	return Options{
		BlockSize:    defaultBlockSize,
		GrowthPct:    defaultGrowthPct,
		MaxBlockSize: defaultMaxBlockSize,
		Backing:      HeapBacking{},
	}
}

// FixedOptions returns options for fixed-size, non-growing blocks.
func FixedOptions(blockSize int) Options {
	return Options{
		BlockSize:    blockSize,
		GrowthPct:    100,
		MaxBlockSize: blockSize,
		Backing:      HeapBacking{},
	}
}

// BumpAllocator is an append-only block allocator.
//
// Key characteristics:
//   - O(1) allocation: pure bump pointer within the current block
//   - No per-allocation free: Reset releases everything at once
//   - Oversized requests bypass blocks and go straight to the backing
//   - Absorb transfers ownership of another allocator's memory
type BumpAllocator struct {
	opts Options

	// cur is the block allocations are currently carved from; nil until the
	// first allocation.
	cur []byte

	// offset is the bump pointer within cur.
	offset int

	// blockSize is the size the next block will be acquired with.
	blockSize int

	// owned holds every block and oversized region to release on Reset,
	// including memory absorbed from other allocators.
	owned [][]byte

	blocks int
	large  int
	used   uintptr
}

// New creates a BumpAllocator. Zero-valued option fields take their defaults.
//
// Parameters:
//   - opts: Block sizing and backing. GrowthPct values between 1 and 99 are
//     raised to 100; a MaxBlockSize below BlockSize is raised to the default
//
// No memory is acquired until the first Allocate.
func New(opts Options) *BumpAllocator {
	def := DefaultOptions()
	if opts.BlockSize <= 0 {
		opts.BlockSize = def.BlockSize
	}
	if opts.GrowthPct < 100 {
		if opts.GrowthPct == 0 {
			opts.GrowthPct = def.GrowthPct
		} else {
			opts.GrowthPct = 100
		}
	}
	if opts.MaxBlockSize < opts.BlockSize {
		opts.MaxBlockSize = max(opts.BlockSize, def.MaxBlockSize)
	}
	if opts.Backing == nil {
		opts.Backing = def.Backing
	}
	return &BumpAllocator{
		opts:      opts,
		blockSize: opts.BlockSize,
	}
}

// Allocate returns a zeroed region of size bytes aligned to align.
//
// Parameters:
//   - size: Number of bytes. Zero returns nil; negative panics
//   - align: Power of two, at most MaxAlign
//
// This method:
//  1. Serves requests larger than the current block size as a dedicated
//     oversized region from the backing
//  2. Otherwise bumps the offset in the current block, padding for align
//  3. Acquires the next (possibly larger) block when the current one is full
//
// The returned slice has len == cap == size, so appending to it never
// overwrites a neighbouring allocation.
//
// Allocate panics if align is invalid or the backing fails; both are fatal.
//
// Performance: O(1), no Go allocation on the fast path. A new block costs one
// backing acquire (a heap allocation or one mmap).
func (ba *BumpAllocator) Allocate(size, align int) []byte {
	if size < 0 {
		panic(ErrNegativeSize)
	}
	if align <= 0 || align > MaxAlign || align&(align-1) != 0 {
		panic(fmt.Errorf("%w: got %d", ErrBadAlign, align))
	}
	if size == 0 {
		return nil
	}

	if size > ba.blockSize {
		region := ba.acquire(size)
		ba.large++
		ba.used += uintptr(size)
		return region
	}

	start := ba.alignedOffset(align)
	if ba.cur == nil || start+size > len(ba.cur) {
		if ba.cur != nil {
			ba.blockSize = ba.nextBlockSize()
		}
		ba.cur = ba.acquire(ba.blockSize)
		ba.blocks++
		ba.offset = 0
		start = 0
	}

	ba.offset = start + size
	ba.used += uintptr(size)
	return ba.cur[start:ba.offset:ba.offset]
}

// Reset returns every block and oversized region to the backing. The
// allocator is reusable afterwards and starts again from BlockSize.
func (ba *BumpAllocator) Reset() {
	for _, region := range ba.owned {
		if err := ba.opts.Backing.Release(region); err != nil {
			panic(fmt.Errorf("%w: release: %w", ErrBackingFailed, err))
		}
	}
	clear(ba.owned)
	ba.owned = ba.owned[:0]
	ba.cur = nil
	ba.offset = 0
	ba.blockSize = ba.opts.BlockSize
	ba.blocks = 0
	ba.large = 0
	ba.used = 0
}

// Absorb takes ownership of everything other has allocated. Regions handed
// out by other stay valid and are released by this allocator's Reset. other
// is left empty and must share this allocator's backing.
func (ba *BumpAllocator) Absorb(other *BumpAllocator) {
	if other == nil || other == ba {
		return
	}
	ba.owned = append(ba.owned, other.owned...)
	ba.blocks += other.blocks
	ba.large += other.large
	ba.used += other.used

	clear(other.owned)
	other.owned = other.owned[:0]
	other.cur = nil
	other.offset = 0
	other.blockSize = other.opts.BlockSize
	other.blocks = 0
	other.large = 0
	other.used = 0
}

// Used returns the number of bytes handed out since the last Reset.
func (ba *BumpAllocator) Used() uintptr {
	return ba.used
}

// BlockCount returns the number of regular blocks owned.
func (ba *BumpAllocator) BlockCount() int {
	return ba.blocks
}

// LargeCount returns the number of oversized allocations owned.
func (ba *BumpAllocator) LargeCount() int {
	return ba.large
}

// Remaining returns the bytes left in the current block.
func (ba *BumpAllocator) Remaining() int {
	return len(ba.cur) - ba.offset
}

// Backing returns the backing this allocator draws from.
func (ba *BumpAllocator) Backing() Backing {
	return ba.opts.Backing
}

func (ba *BumpAllocator) acquire(size int) []byte {
	region, err := ba.opts.Backing.Acquire(size)
	if err != nil {
		panic(fmt.Errorf("%w: %d bytes: %w", ErrBackingFailed, size, err))
	}
	ba.owned = append(ba.owned, region)
	return region
}

func (ba *BumpAllocator) alignedOffset(align int) int {
	if ba.cur == nil {
		return 0
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(ba.cur)))
	return ba.offset + int(alignPad(base+uintptr(ba.offset), uintptr(align)))
}

func (ba *BumpAllocator) nextBlockSize() int {
	next := ba.blockSize * ba.opts.GrowthPct / 100
	if next > ba.opts.MaxBlockSize {
		next = ba.opts.MaxBlockSize
	}
	if next < ba.blockSize {
		next = ba.blockSize
	}
	return next
}

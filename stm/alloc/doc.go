// Package alloc provides the block (bump) allocator used for transaction-scoped
// storage such as write-log data.
//
// # Overview
//
// A BumpAllocator carves allocations out of large blocks obtained from a
// Backing. Allocation is a pointer bump within the current block; when the
// block is exhausted a fresh one is acquired. Requests larger than the current
// block size are served as dedicated oversized allocations.
//
// There is no per-allocation free. All memory is returned to the backing in
// bulk by Reset, which is what the owning write log does when a transaction
// nest finishes.
//
// # Growth
//
// Options.GrowthPct controls the size of each new block relative to the
// previous one:
//
//	GrowthPct = 100  → fixed-size blocks
//	GrowthPct = 200  → each block doubles, up to MaxBlockSize
//
// With fixed-size blocks, N same-size same-alignment allocations land at
// strictly increasing contiguous offsets until BlockSize/size allocations have
// been made; the next allocation starts a new block.
//
// # Backings
//
//   - HeapBacking: blocks are Go byte slices (default)
//   - PageBacking: blocks are anonymous page mappings outside the Go heap
//
// Memory from either backing must only hold pointer-free data.
//
// # Failure
//
// A backing failure is fatal: Allocate panics with an error wrapping
// ErrBackingFailed. There is no recoverable error path.
//
// # Thread Safety
//
// BumpAllocator is not thread-safe. Each transaction nest owns its own.
package alloc

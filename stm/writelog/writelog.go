package writelog

import (
	"encoding/binary"
	"fmt"
	"iter"
	"unsafe"

	"github.com/cespare/xxhash/v2"

	"github.com/joshuapare/stmkit/stm/alloc"
)

const (
	// MaxEntrySize is the largest number of bytes a single entry holds.
	MaxEntrySize = 1<<15 - 1

	// entriesPerChunk is the number of entry headers per chunk.
	entriesPerChunk = 128
)

// Entry is the original content of one logged memory region.
type Entry struct {
	// LogicalAddress is where Data is restored to. It is held as a pointer so
	// the logged memory stays alive for as long as the log does.
	LogicalAddress unsafe.Pointer

	// Data is a copy of the bytes at LogicalAddress before the write. It is
	// nil for typed undo entries.
	Data []byte

	// Size is the number of bytes covered by the entry.
	Size uintptr

	// NoMemoryValidation excludes the entry from Hash.
	NoMemoryValidation bool

	undo func()
}

// IsUndo reports whether the entry restores via a func rather than bytes.
func (e Entry) IsUndo() bool {
	return e.undo != nil
}

// Restore writes the entry's original content back to its logical address.
func (e Entry) Restore() {
	if e.undo != nil {
		e.undo()
		return
	}
	if len(e.Data) == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(e.LogicalAddress), len(e.Data)), e.Data)
}

// Current returns the live memory the entry covers. Undo entries without an
// address return nil.
func (e Entry) Current() []byte {
	if e.LogicalAddress == nil || e.Size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(e.LogicalAddress), e.Size)
}

type chunk struct {
	entries [entriesPerChunk]Entry
	n       int
}

// WriteLog is an append-only, chunked sequence of entries.
//
// NOT thread-safe.
type WriteLog struct {
	a      *alloc.BumpAllocator
	chunks []*chunk
	spare  []*chunk
	num    int
	total  uintptr

	// keepAlive retains the addresses of pushes folded into an earlier entry.
	keepAlive []unsafe.Pointer

	// barrier blocks coalescing into the current last entry.
	barrier bool
}

// New creates an empty write log drawing data storage from a.
//
// Parameters:
//   - a: Allocator for entry data. The log owns it from here on and resets it
//     on Reset. nil creates one with alloc.DefaultOptions
func New(a *alloc.BumpAllocator) *WriteLog {
	if a == nil {
		a = alloc.New(alloc.DefaultOptions())
	}
	return &WriteLog{a: a}
}

// Allocator returns the allocator entry data is carved from.
func (l *WriteLog) Allocator() *alloc.BumpAllocator {
	return l.a
}

// Push appends e, copying e.Data into log storage. e.Size is taken from
// len(e.Data). An empty push is a no-op.
//
// Push panics with ErrEntryTooLarge if len(e.Data) > MaxEntrySize.
func (l *WriteLog) Push(e Entry) {
	size := len(e.Data)
	if size == 0 {
		return
	}
	if size > MaxEntrySize {
		panic(fmt.Errorf("%w: %d bytes", ErrEntryTooLarge, size))
	}
	data := l.a.Allocate(size, 1)
	copy(data, e.Data)
	l.append(e.LogicalAddress, data, e.NoMemoryValidation)
}

// Record snapshots size bytes at p and appends them. A zero size is a no-op.
//
// Parameters:
//   - p: Start of the region about to be written. Must hold no Go pointers
//   - size: Number of bytes to snapshot
//   - noValidation: Exclude the entries from Hash
//
// This method:
//  1. Splits the region into pieces of at most MaxEntrySize bytes
//  2. Copies each piece into allocator storage
//  3. Folds the piece into the last entry when both the addresses and the
//     copies are contiguous, otherwise starts a new entry
//
// Performance: O(size) copy, no Go allocation unless a new entry chunk or
// allocator block is needed.
func (l *WriteLog) Record(p unsafe.Pointer, size uintptr, noValidation bool) {
	for size > 0 {
		n := min(size, MaxEntrySize)
		data := l.a.Allocate(int(n), 1)
		copy(data, unsafe.Slice((*byte)(p), n))
		l.append(p, data, noValidation)
		p = unsafe.Add(p, n)
		size -= n
	}
}

// PushUndo appends a typed undo entry covering size bytes at p. On rollback
// undo is called instead of copying bytes. p may be nil for writes that have
// no stable address, such as map assignments.
func (l *WriteLog) PushUndo(p unsafe.Pointer, size uintptr, noValidation bool, undo func()) {
	e := l.next()
	*e = Entry{
		LogicalAddress:     p,
		Size:               size,
		NoMemoryValidation: noValidation || p == nil,
		undo:               undo,
	}
	l.total += size
	l.barrier = true
}

// MarkBoundary prevents the next push from being folded into the current
// last entry. Entries before the boundary keep their size until Reset.
func (l *WriteLog) MarkBoundary() {
	l.barrier = true
}

// Num returns the number of (possibly coalesced) entries.
func (l *WriteLog) Num() int {
	return l.num
}

// TotalSize returns the sum of all pushed sizes.
func (l *WriteLog) TotalSize() uintptr {
	return l.total
}

// IsEmpty reports whether the log holds no entries.
func (l *WriteLog) IsEmpty() bool {
	return l.num == 0
}

// All yields entries in push order.
func (l *WriteLog) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, c := range l.chunks {
			for i := 0; i < c.n; i++ {
				if !yield(c.entries[i]) {
					return
				}
			}
		}
	}
}

// Backward yields entries in reverse push order.
func (l *WriteLog) Backward() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for ci := len(l.chunks) - 1; ci >= 0; ci-- {
			c := l.chunks[ci]
			for i := c.n - 1; i >= 0; i-- {
				if !yield(c.entries[i]) {
					return
				}
			}
		}
	}
}

// Hash returns a hash of the current memory at the logical addresses of the
// first count entries, including the addresses themselves. Entries marked
// NoMemoryValidation are skipped. A count beyond Num() hashes every entry.
func (l *WriteLog) Hash(count int) uint64 {
	d := xxhash.New()
	var addrBuf [8]byte
	seen := 0
	for e := range l.All() {
		if seen == count {
			break
		}
		seen++
		if e.NoMemoryValidation {
			continue
		}
		cur := e.Current()
		if cur == nil {
			continue
		}
		binary.LittleEndian.PutUint64(addrBuf[:], uint64(uintptr(e.LogicalAddress)))
		_, _ = d.Write(addrBuf[:])
		_, _ = d.Write(cur)
	}
	return d.Sum64()
}

// Rollback restores every entry, newest first. The log is left intact; call
// Reset to discard it.
func (l *WriteLog) Rollback() {
	for e := range l.Backward() {
		e.Restore()
	}
}

// Reset empties the log and releases data storage back to the allocator.
func (l *WriteLog) Reset() {
	for _, c := range l.chunks {
		clear(c.entries[:c.n])
		c.n = 0
		l.spare = append(l.spare, c)
	}
	clear(l.chunks)
	l.chunks = l.chunks[:0]
	clear(l.keepAlive)
	l.keepAlive = l.keepAlive[:0]
	l.num = 0
	l.total = 0
	l.barrier = false
	l.a.Reset()
}

// Merge appends every entry of other after this log's entries, preserving
// order, and takes ownership of other's data storage. other is left empty.
//
// This is how a committed child nest hands its log to the parent:
//  1. other's entry chunks are linked after this log's chunks
//  2. other's allocator blocks move to this log's allocator (alloc.Absorb)
//  3. a boundary is set so later writes never fold into merged entries
//
// Both logs must use allocators sharing one backing.
//
// Performance: O(chunks), independent of the number of bytes logged.
func (l *WriteLog) Merge(other *WriteLog) {
	if other == nil || other == l || other.num == 0 && other.a.Used() == 0 {
		return
	}
	l.chunks = append(l.chunks, other.chunks...)
	l.keepAlive = append(l.keepAlive, other.keepAlive...)
	l.num += other.num
	l.total += other.total
	l.a.Absorb(other.a)
	l.barrier = true

	clear(other.chunks)
	other.chunks = other.chunks[:0]
	clear(other.keepAlive)
	other.keepAlive = other.keepAlive[:0]
	other.num = 0
	other.total = 0
	other.barrier = false
}

func (l *WriteLog) append(p unsafe.Pointer, data []byte, noValidation bool) {
	size := uintptr(len(data))
	l.total += size

	if last := l.last(); last != nil && l.canFold(last, p, data, noValidation) {
		last.Data = unsafe.Slice(unsafe.SliceData(last.Data), len(last.Data)+len(data))
		last.Size += size
		l.keepAlive = append(l.keepAlive, p)
		return
	}

	e := l.next()
	*e = Entry{
		LogicalAddress:     p,
		Data:               data,
		Size:               size,
		NoMemoryValidation: noValidation,
	}
	l.barrier = false
}

func (l *WriteLog) canFold(last *Entry, p unsafe.Pointer, data []byte, noValidation bool) bool {
	if l.barrier || last.undo != nil || last.NoMemoryValidation != noValidation {
		return false
	}
	if last.Size+uintptr(len(data)) > MaxEntrySize {
		return false
	}
	if uintptr(last.LogicalAddress)+last.Size != uintptr(p) {
		return false
	}
	dataEnd := uintptr(unsafe.Pointer(unsafe.SliceData(last.Data))) + uintptr(len(last.Data))
	return dataEnd == uintptr(unsafe.Pointer(unsafe.SliceData(data)))
}

func (l *WriteLog) last() *Entry {
	if len(l.chunks) == 0 {
		return nil
	}
	c := l.chunks[len(l.chunks)-1]
	if c.n == 0 {
		return nil
	}
	return &c.entries[c.n-1]
}

// next reserves a fresh entry slot.
func (l *WriteLog) next() *Entry {
	var c *chunk
	if len(l.chunks) > 0 {
		c = l.chunks[len(l.chunks)-1]
	}
	if c == nil || c.n == entriesPerChunk {
		if n := len(l.spare); n > 0 {
			c = l.spare[n-1]
			l.spare = l.spare[:n-1]
		} else {
			c = new(chunk)
		}
		l.chunks = append(l.chunks, c)
	}
	e := &c.entries[c.n]
	c.n++
	l.num++
	return e
}

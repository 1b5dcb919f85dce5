// Package newmem tracks memory regions allocated inside a transaction nest.
//
// Memory that did not exist before the nest began has no prior content worth
// restoring, so instrumented writes that fall entirely inside a tracked region
// need not be logged. Regions are kept in an ordered B-tree keyed by start
// address; lookups find the closest region starting at or before an address.
package newmem

import (
	"unsafe"

	"github.com/tidwall/btree"
)

type span struct {
	start uintptr
	end   uintptr

	// p keeps the region alive while it is tracked, so its address cannot
	// be recycled for an unrelated allocation.
	p unsafe.Pointer
}

func byStart(a, b span) bool {
	return a.start < b.start
}

// Tracker is an ordered set of allocated regions.
//
// NOT thread-safe.
type Tracker struct {
	tr *btree.BTreeG[span]
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{tr: btree.NewBTreeG(byStart)}
}

// Add records that size bytes at p were freshly allocated. A region starting
// at the same address replaces the previous one.
func (t *Tracker) Add(p unsafe.Pointer, size uintptr) {
	if p == nil || size == 0 {
		return
	}
	start := uintptr(p)
	t.tr.Set(span{start: start, end: start + size, p: p})
}

// Remove forgets the region starting at p. It reports whether one existed.
func (t *Tracker) Remove(p unsafe.Pointer) bool {
	_, ok := t.tr.Delete(span{start: uintptr(p)})
	return ok
}

// Contains reports whether [p, p+size) lies entirely inside one region.
func (t *Tracker) Contains(p unsafe.Pointer, size uintptr) bool {
	if t.tr.Len() == 0 {
		return false
	}
	addr := uintptr(p)
	found := false
	t.tr.Descend(span{start: addr}, func(s span) bool {
		found = s.start <= addr && addr+size <= s.end
		return false
	})
	return found
}

// Merge adds every region of other to t and empties other.
func (t *Tracker) Merge(other *Tracker) {
	if other == nil || other == t || other.tr.Len() == 0 {
		return
	}
	other.tr.Scan(func(s span) bool {
		t.tr.Set(s)
		return true
	})
	other.Reset()
}

// Len returns the number of tracked regions.
func (t *Tracker) Len() int {
	return t.tr.Len()
}

// Reset forgets every region.
func (t *Tracker) Reset() {
	if t.tr.Len() == 0 {
		return
	}
	t.tr = btree.NewBTreeG(byStart)
}

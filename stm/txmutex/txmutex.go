// Package txmutex provides a mutex that stays held for the rest of the
// transaction that acquired it.
//
// Memory guarded by a lock may be rolled back any time before the outermost
// transaction finishes, so releasing the lock early would let another
// goroutine observe writes that are later undone. A Mutex locked inside a
// transaction is therefore released only when the transaction aborts, and
// an Unlock inside a transaction takes effect only when it commits.
//
// Outside a transaction a Mutex behaves like sync.Mutex.
package txmutex

import (
	"sync"
	"sync/atomic"

	"github.com/joshuapare/stmkit/stm"
)

// Mutex is a transaction-aware mutual exclusion lock. The zero value is
// unlocked. A Mutex must not be copied after first use.
type Mutex struct {
	mu    sync.Mutex
	owner atomic.Pointer[stm.Thread]

	// releasing is set by an Unlock inside a transaction whose physical
	// release waits for commit. Written through stm.Store, so an abort
	// clears it.
	releasing bool
}

// Lock acquires m for th.
func (m *Mutex) Lock(th *stm.Thread) {
	if !th.IsClosed() {
		m.mu.Lock()
		m.owner.Store(th)
		return
	}
	if m.owner.Load() == th && m.releasing {
		// Still physically held: take back a release queued by this
		// transaction.
		stm.Store(th, &m.releasing, false)
		return
	}
	th.Open(func() {
		m.mu.Lock()
		m.owner.Store(th)
	})
	th.OnAbort(m.release)
}

// TryLock acquires m for th if it is free and reports whether it did.
func (m *Mutex) TryLock(th *stm.Thread) bool {
	if !th.IsClosed() {
		if !m.mu.TryLock() {
			return false
		}
		m.owner.Store(th)
		return true
	}
	if m.owner.Load() == th && m.releasing {
		stm.Store(th, &m.releasing, false)
		return true
	}
	ok := stm.OpenValue(th, func() bool {
		if !m.mu.TryLock() {
			return false
		}
		m.owner.Store(th)
		return true
	})
	if ok {
		th.OnAbort(m.release)
	}
	return ok
}

// Unlock releases m. Inside a transaction the release happens when the
// outermost transaction commits; if it aborts, m keeps the state it had
// before the transaction.
func (m *Mutex) Unlock(th *stm.Thread) {
	if !th.IsClosed() {
		m.release()
		return
	}
	stm.Store(th, &m.releasing, true)
	th.OnCommit(func() {
		if m.releasing {
			m.releasing = false
			m.release()
		}
	})
}

// Owner returns the thread holding m, or nil.
func (m *Mutex) Owner() *stm.Thread {
	return m.owner.Load()
}

func (m *Mutex) release() {
	m.owner.Store(nil)
	m.mu.Unlock()
}

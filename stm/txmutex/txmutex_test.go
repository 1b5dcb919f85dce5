package txmutex_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/stmkit/stm"
	"github.com/joshuapare/stmkit/stm/txmutex"
)

func TestMutex_OutsideTransaction(t *testing.T) {
	th := stm.NewThread()
	var m txmutex.Mutex

	m.Lock(th)
	assert.Same(t, th, m.Owner())
	assert.False(t, m.TryLock(stm.NewThread()))
	m.Unlock(th)
	assert.Nil(t, m.Owner())
	assert.True(t, m.TryLock(th))
	m.Unlock(th)
}

func TestMutex_LockUnlockCommitted(t *testing.T) {
	th := stm.NewThread()
	other := stm.NewThread()
	var m txmutex.Mutex

	res := th.Transact(func() {
		m.Lock(th)
		m.Unlock(th)
		assert.False(t, m.TryLock(other), "release waits for commit")
	})

	require.Equal(t, stm.Committed, res)
	assert.Nil(t, m.Owner())
	assert.True(t, m.TryLock(other))
	m.Unlock(other)
}

func TestMutex_LockedInAbortedTransaction(t *testing.T) {
	th := stm.NewThread()
	var m txmutex.Mutex

	res := th.Transact(func() {
		m.Lock(th)
		th.AbortTransaction()
	})

	require.Equal(t, stm.AbortedByRequest, res)
	assert.Nil(t, m.Owner())
	assert.True(t, m.TryLock(th))
	m.Unlock(th)
}

func TestMutex_HeldAcrossCommitUntilUnlocked(t *testing.T) {
	th := stm.NewThread()
	var m txmutex.Mutex

	th.Transact(func() { m.Lock(th) })
	assert.Same(t, th, m.Owner())

	th.Transact(func() { m.Unlock(th) })
	assert.Nil(t, m.Owner())
}

func TestMutex_UnlockInAbortedTransactionKeepsLock(t *testing.T) {
	th := stm.NewThread()
	var m txmutex.Mutex
	m.Lock(th)

	res := th.Transact(func() {
		m.Unlock(th)
		th.AbortTransaction()
	})

	require.Equal(t, stm.AbortedByRequest, res)
	assert.Same(t, th, m.Owner())
	m.Unlock(th)
	assert.Nil(t, m.Owner())
}

func TestMutex_RelockInSameTransaction(t *testing.T) {
	th := stm.NewThread()
	var m txmutex.Mutex

	res := th.Transact(func() {
		m.Lock(th)
		m.Unlock(th)
		m.Lock(th)
		assert.False(t, m.TryLock(th), "already held by this transaction")
	})

	require.Equal(t, stm.Committed, res)
	assert.Same(t, th, m.Owner(), "final Lock wins")

	th.Transact(func() {
		m.Unlock(th)
		assert.True(t, m.TryLock(th), "reclaims the queued release")
	})
	assert.Same(t, th, m.Owner())
	m.Unlock(th)
}

func TestMutex_NestedAbortReleasesInnerLock(t *testing.T) {
	th := stm.NewThread()
	var a, b txmutex.Mutex

	th.Transact(func() {
		a.Lock(th)
		th.Transact(func() {
			b.Lock(th)
			th.AbortTransaction()
		})
		assert.Nil(t, b.Owner())
		assert.Same(t, th, a.Owner())
		a.Unlock(th)
	})

	assert.Nil(t, a.Owner())
}

func TestMutex_Contention(t *testing.T) {
	const workers = 8
	const rounds = 200

	var m txmutex.Mutex
	counter := 0

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			th := stm.NewThread()
			for i := range rounds {
				th.Transact(func() {
					m.Lock(th)
					stm.Store(th, &counter, counter+1)
					m.Unlock(th)
					if i%4 == 0 {
						th.AbortTransaction()
					}
				})
			}
		})
	}
	wg.Wait()

	assert.Equal(t, workers*rounds*3/4, counter)
	assert.Nil(t, m.Owner())
}

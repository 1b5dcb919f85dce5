package stm_test

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/stmkit/stm"
)

// =============================================================================
// Ordering
// =============================================================================

func TestOnAbort_RunsNewestFirst(t *testing.T) {
	th, _ := newTestThread(t)
	var order []int

	th.Transact(func() {
		for i := range 4 {
			th.OnAbort(func() { order = append(order, i) })
		}
		th.AbortTransaction()
	})

	assert.Equal(t, []int{3, 2, 1, 0}, order)
}

func TestOnCommit_RunsInRegistrationOrder(t *testing.T) {
	th, _ := newTestThread(t)
	var order []int

	th.Transact(func() {
		for i := range 4 {
			th.OnCommit(func() { order = append(order, i) })
		}
		th.OnAbort(func() { t.Fatal("on-abort must not run on commit") })
	})

	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestOnCommit_NestedRunsAfterOutermost(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	res := th.Transact(func() {
		th.OnCommit(func() { order = append(order, "before") })
		th.Transact(func() {
			th.OnCommit(func() { order = append(order, "inner") })
		})
		assert.Empty(t, order, "nested commit must not run handlers")
		th.OnCommit(func() { order = append(order, "after") })
	})

	require.Equal(t, stm.Committed, res)
	assert.Equal(t, []string{"before", "inner", "after"}, order)
}

func TestOnCommit_DiscardedWithAbortedNest(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	th.Transact(func() {
		th.Transact(func() {
			th.OnCommit(func() { order = append(order, "aborted") })
			th.AbortTransaction()
		})
		th.OnCommit(func() { order = append(order, "kept") })
	})

	assert.Equal(t, []string{"kept"}, order)
}

func TestOnAbort_CommittedChildRunsWithParent(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	th.Transact(func() {
		th.OnAbort(func() { order = append(order, "outer") })
		th.Transact(func() {
			th.OnAbort(func() { order = append(order, "inner") })
		})
		assert.Empty(t, order)
		th.AbortTransaction()
	})

	assert.Equal(t, []string{"inner", "outer"}, order)
}

func TestOnAbort_HandlerRegisteredDuringAbortGoesToParent(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	th.Transact(func() {
		th.Transact(func() {
			th.OnAbort(func() {
				th.OnAbort(func() { order = append(order, "late") })
				order = append(order, "inner")
			})
			th.AbortTransaction()
		})
		th.AbortTransaction()
	})

	assert.Equal(t, []string{"inner", "late"}, order)
}

// =============================================================================
// Keyed Handlers
// =============================================================================

func TestPopOnAbortHandler_RemovesMostRecent(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	th.Transact(func() {
		th.PushOnAbortHandler("k", func() { order = append(order, "k1") })
		th.OnAbort(func() { order = append(order, "plain") })
		th.PushOnAbortHandler("k", func() { order = append(order, "k2") })
		th.PopOnAbortHandler("k")
		th.AbortTransaction()
	})

	assert.Equal(t, []string{"plain", "k1"}, order)
}

func TestPopOnAbortHandler_AppliesToParentOnCommit(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	th.Transact(func() {
		th.PushOnAbortHandler("k", func() { order = append(order, "outer-k") })
		th.Transact(func() {
			th.PopOnAbortHandler("k")
		})
		th.AbortTransaction()
	})

	assert.Empty(t, order)
}

func TestPopOnAbortHandler_LostWhenChildAborts(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	th.Transact(func() {
		th.PushOnAbortHandler("k", func() { order = append(order, "outer-k") })
		th.Transact(func() {
			th.PopOnAbortHandler("k")
			th.AbortTransaction()
		})
		th.AbortTransaction()
	})

	assert.Equal(t, []string{"outer-k"}, order)
}

func TestPopAllOnAbortHandlers(t *testing.T) {
	th, _ := newTestThread(t)
	var order []string

	th.Transact(func() {
		th.PushOnAbortHandler("k", func() { order = append(order, "outer-k") })
		th.PushOnAbortHandler("j", func() { order = append(order, "outer-j") })
		th.Transact(func() {
			th.PushOnAbortHandler("k", func() { order = append(order, "inner-k1") })
			th.PopAllOnAbortHandlers("k")
			th.PushOnAbortHandler("k", func() { order = append(order, "inner-k2") })
		})
		th.AbortTransaction()
	})

	assert.Equal(t, []string{"inner-k2", "outer-j"}, order)
}

func TestPushOnAbortHandler_DistinctKeyTypes(t *testing.T) {
	th, _ := newTestThread(t)
	type key struct{ id int }
	var order []string

	th.Transact(func() {
		th.PushOnAbortHandler(key{1}, func() { order = append(order, "struct") })
		th.PushOnAbortHandler(1, func() { order = append(order, "int") })
		th.PopOnAbortHandler(key{1})
		th.AbortTransaction()
	})

	assert.Equal(t, []string{"int"}, order)
}

// =============================================================================
// Ordering Law (randomized)
// =============================================================================

type modelHandler struct {
	key string
	id  int
}

type modelPop struct {
	key string
	all bool
}

// modelNest predicts on-abort execution with plain slices.
type modelNest struct {
	nested   bool
	handlers []modelHandler
	pops     []modelPop
}

func (m *modelNest) pop(key string, all bool) {
	if all {
		m.handlers = slices.DeleteFunc(m.handlers, func(h modelHandler) bool { return h.key == key })
		if m.nested {
			m.pops = append(m.pops, modelPop{key: key, all: true})
		}
		return
	}
	for i := len(m.handlers) - 1; i >= 0; i-- {
		if m.handlers[i].key == key {
			m.handlers = slices.Delete(m.handlers, i, i+1)
			return
		}
	}
	if m.nested {
		m.pops = append(m.pops, modelPop{key: key})
	}
}

func (m *modelNest) absorb(child *modelNest) {
	for _, p := range child.pops {
		m.pop(p.key, p.all)
	}
	m.handlers = append(m.handlers, child.handlers...)
}

func (m *modelNest) runOrder() []int {
	ids := make([]int, 0, len(m.handlers))
	for i := len(m.handlers) - 1; i >= 0; i-- {
		ids = append(ids, m.handlers[i].id)
	}
	return ids
}

func TestOnAbort_OrderingLawRandomized(t *testing.T) {
	keys := []string{"a", "b", "c"}

	for seed := range uint64(200) {
		th := stm.NewThread()
		rng := rand.New(rand.NewPCG(seed, 7))
		var ran, want []int
		nextID := 0
		var stack []*modelNest

		var body func(depth int)
		body = func(depth int) {
			m := &modelNest{nested: depth > 0}
			stack = append(stack, m)

			for range rng.IntN(10) {
				key := keys[rng.IntN(len(keys))]
				switch rng.IntN(6) {
				case 0:
					id := nextID
					nextID++
					th.OnAbort(func() { ran = append(ran, id) })
					m.handlers = append(m.handlers, modelHandler{id: id})
				case 1:
					id := nextID
					nextID++
					th.PushOnAbortHandler(key, func() { ran = append(ran, id) })
					m.handlers = append(m.handlers, modelHandler{key: key, id: id})
				case 2:
					th.PopOnAbortHandler(key)
					m.pop(key, false)
				case 3:
					th.PopAllOnAbortHandlers(key)
					m.pop(key, true)
				default:
					if depth < 4 {
						th.Transact(func() { body(depth + 1) })
					}
				}
			}

			stack = stack[:len(stack)-1]
			if depth > 0 && rng.IntN(2) == 0 {
				stack[len(stack)-1].absorb(m)
				return
			}
			want = append(want, m.runOrder()...)
			th.AbortTransaction()
		}

		res := th.Transact(func() { body(0) })
		require.Equal(t, stm.AbortedByRequest, res, "seed %d", seed)
		require.Equal(t, want, ran, "seed %d", seed)
	}
}

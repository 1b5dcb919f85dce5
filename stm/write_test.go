package stm_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/stmkit/stm"
	"github.com/joshuapare/stmkit/stm/alloc"
	"github.com/joshuapare/stmkit/stm/writelog"
)

type point struct {
	X, Y int32
	Tag  [4]byte
}

type record struct {
	Name  string
	Items []int
	Next  *record
}

func abortAfter(th *stm.Thread, body func()) stm.Result {
	return th.Transact(func() {
		body()
		th.AbortTransaction()
	})
}

// =============================================================================
// Store
// =============================================================================

func TestStore_RestoresAllKinds(t *testing.T) {
	th, _ := newTestThread(t)

	i := 1
	f := 1.5
	p := point{X: 1, Y: 2, Tag: [4]byte{'a'}}
	s := "before"
	r := record{Name: "r", Items: []int{1}}
	next := &record{Name: "next"}
	var iface any = 1

	res := abortAfter(th, func() {
		stm.Store(th, &i, 2)
		stm.Store(th, &f, 2.5)
		stm.Store(th, &p, point{X: 9})
		stm.Store(th, &s, "after")
		stm.Store(th, &r, record{Name: "changed", Next: next})
		stm.Store(th, &iface, any("str"))
	})

	require.Equal(t, stm.AbortedByRequest, res)
	assert.Equal(t, 1, i)
	assert.Equal(t, 1.5, f)
	assert.Equal(t, point{X: 1, Y: 2, Tag: [4]byte{'a'}}, p)
	assert.Equal(t, "before", s)
	assert.Equal(t, record{Name: "r", Items: []int{1}}, r)
	assert.Equal(t, 1, iface)
}

func TestStore_RepeatedWritesRestoreOriginal(t *testing.T) {
	th, _ := newTestThread(t)
	s := "v0"
	n := uint16(0)

	abortAfter(th, func() {
		for i := range 10 {
			stm.Store(th, &s, "v"+string(rune('1'+i)))
			stm.Store(th, &n, uint16(i+1))
		}
	})

	assert.Equal(t, "v0", s)
	assert.Equal(t, uint16(0), n)
}

func TestStore_NotRecordedInOpen(t *testing.T) {
	th, _ := newTestThread(t)
	x := 1

	abortAfter(th, func() {
		th.Open(func() { stm.Store(th, &x, 2) })
	})

	assert.Equal(t, 2, x)
}

// =============================================================================
// RecordWrite
// =============================================================================

func TestRecordWrite_RawBytes(t *testing.T) {
	th, _ := newTestThread(t)
	buf := []byte("hello world")

	abortAfter(th, func() {
		th.RecordWrite(unsafe.Pointer(&buf[0]), 5)
		copy(buf, "HELLO")
		th.RecordWrite(unsafe.Pointer(&buf[3]), 5)
		copy(buf[3:], "xxxxx")
	})

	assert.Equal(t, "hello world", string(buf))
}

func TestRecordWrite_LargerThanEntryLimit(t *testing.T) {
	th, _ := newTestThread(t)
	size := writelog.MaxEntrySize*2 + 100
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = byte(i)
	}
	want := append([]byte(nil), buf...)

	abortAfter(th, func() {
		th.RecordWrite(unsafe.Pointer(&buf[0]), uintptr(size))
		clear(buf)
	})

	assert.Equal(t, want, buf)
}

func TestRecordWrite_PageBacking(t *testing.T) {
	th, _ := newTestThread(t,
		stm.WithAllocatorOptions(alloc.FixedOptions(256)),
		stm.WithPageBacking(),
	)
	vals := make([]uint64, 512)

	for round := range 3 {
		res := abortAfter(th, func() {
			th.Transact(func() {
				for i := range vals {
					stm.Store(th, &vals[i], uint64(round+i+1))
				}
			})
		})
		require.Equal(t, stm.AbortedByRequest, res)
	}

	for _, v := range vals {
		require.Zero(t, v)
	}
}

// =============================================================================
// Append
// =============================================================================

func TestAppend_WithinCapacity(t *testing.T) {
	th, _ := newTestThread(t)
	backing := make([]int, 2, 8)
	backing[0], backing[1] = 1, 2
	s := backing
	spare := backing[:4]
	spare[2], spare[3] = 30, 40

	abortAfter(th, func() {
		stm.Append(th, &s, 3, 4)
		assert.Equal(t, []int{1, 2, 3, 4}, s)
	})

	assert.Equal(t, []int{1, 2}, s)
	assert.Equal(t, []int{1, 2, 30, 40}, spare, "spare capacity is restored")
}

func TestAppend_Grows(t *testing.T) {
	th, _ := newTestThread(t)
	var names []string

	res := th.Transact(func() {
		stm.Append(th, &names, "a")
		stm.Append(th, &names, "b", "c")
	})
	require.Equal(t, stm.Committed, res)
	assert.Equal(t, []string{"a", "b", "c"}, names)

	names = names[:1:3]
	abortAfter(th, func() {
		stm.Append(th, &names, "x")
	})
	assert.Equal(t, []string{"a"}, names)
	assert.Equal(t, "b", names[:2][1])
}

// =============================================================================
// Maps
// =============================================================================

func TestMapSetDelete_Restore(t *testing.T) {
	th, _ := newTestThread(t)
	m := map[string]int{"a": 1, "b": 2}

	abortAfter(th, func() {
		stm.MapSet(th, m, "a", 10)
		stm.MapSet(th, m, "c", 3)
		stm.MapDelete(th, m, "b")
		stm.MapDelete(th, m, "missing")
		stm.MapSet(th, m, "b", 20)
	})

	assert.Equal(t, map[string]int{"a": 1, "b": 2}, m)

	th.Transact(func() {
		stm.MapSet(th, m, "c", 3)
		stm.MapDelete(th, m, "a")
	})
	assert.Equal(t, map[string]int{"b": 2, "c": 3}, m)
}

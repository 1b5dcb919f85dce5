package stm

import (
	"reflect"
	"sync"
	"unsafe"
)

// RecordWrite snapshots size bytes at p before instrumented code overwrites
// them. It does nothing outside instrumented code, and for memory allocated
// by the running transaction. p must not hold Go pointers.
func (th *Thread) RecordWrite(p unsafe.Pointer, size uintptr) {
	if !th.closed || size == 0 {
		return
	}
	n := th.cur
	if n.mem.Contains(p, size) {
		return
	}
	n.log.Record(p, size, false)
}

// Store writes v to *p, recording the old value when instrumented.
func Store[T any](th *Thread, p *T, v T) {
	if th.closed {
		record(th.cur, p, false)
	}
	*p = v
}

// Append appends vals to *s, recording the slice header and any spare
// capacity the append overwrites in place.
func Append[T any](th *Thread, s *[]T, vals ...T) {
	if len(vals) == 0 {
		return
	}
	if th.closed {
		old := *s
		if len(old)+len(vals) <= cap(old) {
			recordSlice(th.cur, old[len(old):len(old)+len(vals)])
		}
		record(th.cur, s, false)
	}
	*s = append(*s, vals...)
}

// MapSet assigns m[k] = v, recording how to undo it when instrumented.
func MapSet[K comparable, V any](th *Thread, m map[K]V, k K, v V) {
	if th.closed {
		old, existed := m[k]
		th.cur.log.PushUndo(nil, 0, true, func() {
			if existed {
				m[k] = old
			} else {
				delete(m, k)
			}
		})
	}
	m[k] = v
}

// MapDelete deletes m[k], recording how to undo it when instrumented.
func MapDelete[K comparable, V any](th *Thread, m map[K]V, k K) {
	if th.closed {
		old, existed := m[k]
		if !existed {
			return
		}
		th.cur.log.PushUndo(nil, 0, true, func() { m[k] = old })
	}
	delete(m, k)
}

func record[T any](n *nest, p *T, noValidation bool) {
	size := unsafe.Sizeof(*p)
	addr := unsafe.Pointer(p)
	if size == 0 || n.mem.Contains(addr, size) {
		return
	}
	if pointerFree[T]() {
		n.log.Record(addr, size, noValidation)
		return
	}
	old := *p
	n.log.PushUndo(addr, size, noValidation, func() { *p = old })
}

func recordSlice[T any](n *nest, s []T) {
	if len(s) == 0 {
		return
	}
	if !pointerFree[T]() {
		for i := range s {
			record(n, &s[i], false)
		}
		return
	}
	addr := unsafe.Pointer(unsafe.SliceData(s))
	size := unsafe.Sizeof(s[0]) * uintptr(len(s))
	if size == 0 || n.mem.Contains(addr, size) {
		return
	}
	n.log.Record(addr, size, false)
}

// pointerFreeTypes caches hasPointers per type.
var pointerFreeTypes sync.Map // reflect.Type -> bool

func pointerFree[T any]() bool {
	t := reflect.TypeFor[T]()
	if v, ok := pointerFreeTypes.Load(t); ok {
		return v.(bool)
	}
	free := !hasPointers(t)
	pointerFreeTypes.Store(t, free)
	return free
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

package task

import "iter"

const none int32 = -1

type slot[K comparable] struct {
	task  Task
	key   K
	keyed bool
	prev  int32
	next  int32
}

// Array is an ordered collection of tasks with optional per-task keys.
//
// The zero value is ready to use. NOT thread-safe.
type Array[K comparable] struct {
	slots []slot[K]
	free  []int32
	head  int32
	tail  int32
	n     int

	// keys maps each key to its slots in push order.
	keys map[K][]int32

	init bool
}

func (a *Array[K]) lazyInit() {
	if !a.init {
		a.head, a.tail = none, none
		a.init = true
	}
}

// Len returns the number of tasks.
func (a *Array[K]) Len() int {
	return a.n
}

// IsEmpty reports whether the array holds no tasks.
func (a *Array[K]) IsEmpty() bool {
	return a.n == 0
}

// Add appends an unkeyed task.
func (a *Array[K]) Add(t Task) {
	a.push(t, *new(K), false)
}

// AddKeyed appends a task associated with key. Several tasks may share a key.
func (a *Array[K]) AddKeyed(key K, t Task) {
	i := a.push(t, key, true)
	if a.keys == nil {
		a.keys = make(map[K][]int32)
	}
	a.keys[key] = append(a.keys[key], i)
}

// DeleteKey removes the most recently added task with key. It reports
// whether one was found.
func (a *Array[K]) DeleteKey(key K) bool {
	stack := a.keys[key]
	if len(stack) == 0 {
		return false
	}
	i := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(a.keys, key)
	} else {
		a.keys[key] = stack[:len(stack)-1]
	}
	a.unlink(i)
	a.release(i)
	return true
}

// DeleteAllMatchingKeys removes every task with key. It reports whether any
// existed.
func (a *Array[K]) DeleteAllMatchingKeys(key K) bool {
	stack, ok := a.keys[key]
	if !ok {
		return false
	}
	delete(a.keys, key)
	for _, i := range stack {
		a.unlink(i)
		a.release(i)
	}
	return len(stack) > 0
}

// RemoveEachForward removes every task in push order, calling fn with each.
func (a *Array[K]) RemoveEachForward(fn func(Task)) {
	a.drain(fn, true)
}

// RemoveEachBackward removes every task in reverse push order, calling fn
// with each.
func (a *Array[K]) RemoveEachBackward(fn func(Task)) {
	a.drain(fn, false)
}

// AddAll appends every task of other, in other's push order, after this
// array's tasks. Keys are preserved. other is left empty.
func (a *Array[K]) AddAll(other *Array[K]) {
	if other == nil || other == a || other.n == 0 {
		return
	}
	for i := other.head; i != none; i = other.slots[i].next {
		s := &other.slots[i]
		if s.keyed {
			a.AddKeyed(s.key, s.task)
		} else {
			a.Add(s.task)
		}
	}
	other.Reset()
}

// Reset drops every task without calling it.
func (a *Array[K]) Reset() {
	clear(a.slots)
	a.slots = a.slots[:0]
	a.free = a.free[:0]
	clear(a.keys)
	a.head, a.tail = none, none
	a.n = 0
	a.init = true
}

// All yields tasks in push order without removing them.
func (a *Array[K]) All() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		if a.n == 0 {
			return
		}
		for i := a.head; i != none; i = a.slots[i].next {
			if !yield(a.slots[i].task) {
				return
			}
		}
	}
}

func (a *Array[K]) push(t Task, key K, keyed bool) int32 {
	a.lazyInit()
	var i int32
	if n := len(a.free); n > 0 {
		i = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[K]{})
		i = int32(len(a.slots) - 1)
	}
	a.slots[i] = slot[K]{task: t, key: key, keyed: keyed, prev: a.tail, next: none}
	if a.tail != none {
		a.slots[a.tail].next = i
	} else {
		a.head = i
	}
	a.tail = i
	a.n++
	return i
}

func (a *Array[K]) unlink(i int32) {
	s := &a.slots[i]
	if s.prev != none {
		a.slots[s.prev].next = s.next
	} else {
		a.head = s.next
	}
	if s.next != none {
		a.slots[s.next].prev = s.prev
	} else {
		a.tail = s.prev
	}
	a.n--
}

func (a *Array[K]) release(i int32) {
	a.slots[i] = slot[K]{}
	a.free = append(a.free, i)
}

func (a *Array[K]) drain(fn func(Task), forward bool) {
	if a.n == 0 {
		return
	}
	i := a.head
	if !forward {
		i = a.tail
	}
	a.head, a.tail = none, none
	a.n = 0
	clear(a.keys)

	for i != none {
		s := a.slots[i]
		next := s.next
		if !forward {
			next = s.prev
		}
		a.release(i)
		fn(s.task)
		i = next
	}
}

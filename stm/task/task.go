package task

// Task is a deferred callback.
type Task struct {
	fn func()
}

// New wraps fn. A nil fn yields an unset Task.
func New(fn func()) Task {
	return Task{fn: fn}
}

// IsSet reports whether the task holds a callable.
func (t Task) IsSet() bool {
	return t.fn != nil
}

// Call runs the task. The task must be set.
func (t Task) Call() {
	t.fn()
}

// Reset clears the task. Resetting an unset task is a no-op.
func (t *Task) Reset() {
	t.fn = nil
}

// Take moves the callable out of t, leaving t unset.
func (t *Task) Take() Task {
	out := *t
	t.fn = nil
	return out
}

package stm

import "github.com/joshuapare/stmkit/stm/task"

// OnCommit registers fn to run after the outermost transaction commits.
// Handlers run in registration order. Outside a transaction fn runs
// immediately. Handlers of an aborted nest are discarded.
func (th *Thread) OnCommit(fn func()) {
	if th.cur == nil {
		fn()
		return
	}
	th.cur.onCommit.Add(task.New(fn))
}

// OnAbort registers fn to run if the innermost nest, or any nest it commits
// into, aborts. Handlers run newest first. Outside a transaction fn is
// dropped.
func (th *Thread) OnAbort(fn func()) {
	if th.cur == nil {
		return
	}
	th.cur.onAbort.Add(task.New(fn))
}

// PushOnAbortHandler registers fn like OnAbort, under key. key must be
// comparable.
func (th *Thread) PushOnAbortHandler(key any, fn func()) {
	if th.cur == nil {
		return
	}
	th.cur.onAbort.AddKeyed(key, task.New(fn))
}

// PopOnAbortHandler removes the most recent handler pushed under key. When
// the innermost nest holds none, the pop is applied to the parent once this
// nest commits, and is lost if it aborts.
func (th *Thread) PopOnAbortHandler(key any) {
	if th.cur == nil {
		return
	}
	th.cur.popOnAbort(key, false)
}

// PopAllOnAbortHandlers removes every handler pushed under key in this nest
// and, once it commits, in every enclosing nest.
func (th *Thread) PopAllOnAbortHandlers(key any) {
	if th.cur == nil {
		return
	}
	th.cur.popOnAbort(key, true)
}

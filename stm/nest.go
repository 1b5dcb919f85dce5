package stm

import (
	"github.com/joshuapare/stmkit/stm/alloc"
	"github.com/joshuapare/stmkit/stm/newmem"
	"github.com/joshuapare/stmkit/stm/task"
	"github.com/joshuapare/stmkit/stm/writelog"
)

// deferredPop is a PopOnAbortHandler (or PopAllOnAbortHandlers when all is
// set) that found nothing in its own nest and must be replayed against the
// parent when the nest commits.
type deferredPop struct {
	key any
	all bool
}

// nest is one level of transaction nesting.
type nest struct {
	parent *nest
	depth  int
	status ContextStatus

	log      *writelog.WriteLog
	onCommit task.Array[any]
	onAbort  task.Array[any]
	pops     []deferredPop
	mem      *newmem.Tracker
}

func (th *Thread) push() *nest {
	var n *nest
	if k := len(th.spare); k > 0 {
		n = th.spare[k-1]
		th.spare[k-1] = nil
		th.spare = th.spare[:k-1]
	} else {
		n = &nest{
			log: writelog.New(alloc.New(th.allocOpts)),
			mem: newmem.New(),
		}
	}
	n.parent = th.cur
	n.depth = 1
	if n.parent != nil {
		n.depth = n.parent.depth + 1
	}
	n.status = StatusOnTrack
	th.cur = n
	th.stats.Started++
	return n
}

// recycle returns a detached nest to the spare list, releasing its log.
func (th *Thread) recycle(n *nest) {
	n.log.Reset()
	n.onCommit.Reset()
	n.onAbort.Reset()
	clear(n.pops)
	n.pops = n.pops[:0]
	n.mem.Reset()
	n.parent = nil
	n.status = StatusIdle
	th.spare = append(th.spare, n)
}

func (n *nest) popOnAbort(key any, all bool) {
	if all {
		n.onAbort.DeleteAllMatchingKeys(key)
		if n.parent != nil {
			n.pops = append(n.pops, deferredPop{key: key, all: true})
		}
		return
	}
	if n.onAbort.DeleteKey(key) {
		return
	}
	if n.parent != nil {
		n.pops = append(n.pops, deferredPop{key: key})
	}
}

// absorb folds a committed child into n. Deferred pops apply first so they
// only reach handlers that were registered before the child started.
func (n *nest) absorb(child *nest) {
	for _, op := range child.pops {
		n.popOnAbort(op.key, op.all)
	}
	n.onAbort.AddAll(&child.onAbort)
	n.onCommit.AddAll(&child.onCommit)
	n.log.Merge(child.log)
	n.mem.Merge(child.mem)
}

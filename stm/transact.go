package stm

import (
	"fmt"

	"github.com/joshuapare/stmkit/stm/task"
)

// unwind is the panic value carrying an abort from the point it was
// requested to the Transact (or Close) frame that handles it.
type unwind struct {
	target  *nest
	status  ContextStatus
	cascade bool
	post    func()
}

// Transact runs body as a transaction.
//
// Memory writes that body records (Store, RecordWrite and friends) are kept
// if body returns normally and undone if it aborts. Transact nests: a call
// from inside a transaction starts a child whose effects merge into the
// parent on commit. Called from an Open section it starts a child as well.
//
// A panic that is not an abort rolls back the nest, runs its on-abort
// handlers and continues unwinding.
//
// Called from an on-commit or on-abort handler, Transact does not run body
// and returns AbortedByTransactInOnCommit or AbortedByTransactInOnAbort.
//
// Each attempt:
//  1. Pushes a nest and switches to closed (instrumented) mode
//  2. Runs body
//  3. On return, a child folds its log and handlers into the parent; the
//     outermost nest runs its on-commit handlers and drops its log
//  4. On abort, replays the nest's log newest first, pops the nest and runs
//     its on-abort handlers newest first
//
// With a retry policy the first successful attempt is rolled back as in
// step 4 and body runs again.
//
// Performance: O(1) per nest. Nests and their logs are reused across
// transactions; each recorded pointer-free write costs one log append.
func (th *Thread) Transact(body func()) Result {
	switch th.phase {
	case phaseCommitting:
		th.stats.Rejected++
		th.log.Debug().Msg("transact rejected during commit")
		return AbortedByTransactInOnCommit
	case phaseAborting:
		th.stats.Rejected++
		th.log.Debug().Msg("transact rejected during abort")
		return AbortedByTransactInOnAbort
	}

	if th.cur == nil && !th.cfg.Enabled.IsEnabled() {
		body()
		return Committed
	}

	retries := th.retryBudget()
	for {
		res, again := th.run(body, retries > 0)
		if !again {
			return res
		}
		retries--
	}
}

func (th *Thread) retryBudget() int {
	switch th.cfg.Retry {
	case RetryNestedToo:
		return 1
	case RetryNonNested:
		if th.cur == nil {
			return 1
		}
	}
	return 0
}

// run executes one attempt of body in a fresh nest. It reports again when the
// attempt was rolled back for a retry.
func (th *Thread) run(body func(), retry bool) (res Result, again bool) {
	n := th.push()
	wasClosed := th.closed
	th.closed = true

	// An abort captured by Close in an enclosing Open section stays pending
	// until that section returns, whatever this nest does.
	outerPending := th.pending
	th.pending = nil
	defer func() { th.pending = outerPending }()

	completed := false
	defer func() {
		if !completed {
			// A nil recover means runtime.Goexit is unwinding the goroutine.
			res, again = th.unwound(n, wasClosed, recover())
		}
	}()

	body()
	completed = true

	if retry {
		th.stats.Retries++
		th.log.Debug().Int("depth", n.depth).Msg("retrying transaction")
		th.rollbackNest(n, StatusAbortedByRequest, wasClosed)
		return Committed, true
	}
	th.commitNest(n, wasClosed)
	return Committed, false
}

func (th *Thread) unwound(n *nest, wasClosed bool, r any) (Result, bool) {
	outermost := n.parent == nil

	u, ok := r.(*unwind)
	switch {
	case r == nil:
		th.abortNest(n, StatusAbortedByLanguage, wasClosed)
		return AbortedByLanguage, false

	case !ok:
		th.log.Debug().Int("depth", n.depth).Msg("panic crossed transaction")
		th.abortNest(n, StatusAbortedByLanguage, wasClosed)
		panic(r)

	case u.cascade:
		th.abortNest(n, StatusAbortedByCascade, wasClosed)
		if !outermost {
			panic(u)
		}
		if u.post != nil {
			u.post()
		}
		return AbortedByCascade, false

	case u.target != n:
		th.abortNest(n, StatusAbortedByCascade, wasClosed)
		panic(u)

	default:
		th.abortNest(n, u.status, wasClosed)
		return resultFor(u.status), false
	}
}

// commitNest finishes a nest that ran to completion. A child folds into its
// parent and runs nothing; the outermost nest runs its on-commit handlers.
func (th *Thread) commitNest(n *nest, wasClosed bool) {
	th.stats.Committed++
	n.status = StatusCommitted
	th.cur = n.parent

	defer th.release(n, wasClosed)

	if n.parent != nil {
		n.parent.absorb(n)
		return
	}
	th.finalize(phaseCommitting, &n.onCommit, true)
}

func (th *Thread) abortNest(n *nest, status ContextStatus, wasClosed bool) {
	switch status {
	case StatusAbortedByLanguage:
		th.stats.AbortedByLanguage++
	case StatusAbortedByCascade:
		th.stats.AbortedByCascade++
	default:
		th.stats.AbortedByRequest++
	}
	th.rollbackNest(n, status, wasClosed)
}

// rollbackNest undoes the nest's writes newest first, then runs its on-abort
// handlers newest first.
func (th *Thread) rollbackNest(n *nest, status ContextStatus, wasClosed bool) {
	n.status = status
	n.log.Rollback()
	th.cur = n.parent

	defer th.release(n, wasClosed)
	th.finalize(phaseAborting, &n.onAbort, false)
}

// release recycles a finished nest and restores the caller's mode. It also
// runs when a handler panics.
func (th *Thread) release(n *nest, wasClosed bool) {
	th.recycle(n)
	th.closed = wasClosed
}

func (th *Thread) finalize(p phase, handlers *task.Array[any], forward bool) {
	prev := th.phase
	th.phase = p
	th.closed = false
	defer func() { th.phase = prev }()

	if forward {
		handlers.RemoveEachForward(task.Task.Call)
	} else {
		handlers.RemoveEachBackward(task.Task.Call)
	}
}

// AbortTransaction aborts the innermost nest. Its writes are undone, its
// on-abort handlers run and the Transact that started it returns
// AbortedByRequest. Execution does not continue past the call.
//
// Outside a transaction, or from a handler, it does nothing.
func (th *Thread) AbortTransaction() {
	th.raise(StatusAbortedByRequest, nil, false)
}

// CascadingAbortTransaction aborts every nest. Each one is rolled back and
// runs its on-abort handlers, innermost first. Once the outermost nest is
// done, post (if non-nil) runs outside any transaction and the outermost
// Transact returns AbortedByCascade.
func (th *Thread) CascadingAbortTransaction(post func()) {
	th.raise(StatusAbortedByCascade, post, true)
}

func (th *Thread) raise(status ContextStatus, post func(), cascade bool) {
	if th.cur == nil {
		th.log.Debug().Stringer("status", status).Msg("abort outside transaction ignored")
		return
	}
	if th.phase != phaseNone {
		th.log.Warn().Stringer("status", status).Msg("abort from handler ignored")
		return
	}
	th.cur.status = status
	panic(&unwind{target: th.cur, status: status, cascade: cascade, post: post})
}

// InternalAbort reports that instrumented code reached something that cannot
// be rolled back. With InternalAbortAbort the innermost nest aborts as
// AbortedByLanguage; with InternalAbortCrash it panics with an error wrapping
// ErrInternalAbort. Outside instrumented code it does nothing.
func (th *Thread) InternalAbort(reason string) {
	if !th.closed || th.cur == nil {
		return
	}
	if th.cfg.EnsureOnInternalAbort {
		th.log.Error().Str("reason", reason).Msg("transaction aborted by language")
	}
	if th.cfg.InternalAbortAction == InternalAbortCrash {
		panic(fmt.Errorf("%w: %s", ErrInternalAbort, reason))
	}
	th.raise(StatusAbortedByLanguage, nil, false)
}

// Commit runs Transact and returns an error wrapping ErrUnexpectedResult
// unless it committed.
func (th *Thread) Commit(body func()) error {
	return expect(th.Transact(body), Committed)
}

// Abort runs Transact and returns an error wrapping ErrUnexpectedResult
// unless it was aborted by request.
func (th *Thread) Abort(body func()) error {
	return expect(th.Transact(body), AbortedByRequest)
}

func expect(got, want Result) error {
	if got != want {
		return fmt.Errorf("%w: want %s, got %s", ErrUnexpectedResult, want, got)
	}
	return nil
}

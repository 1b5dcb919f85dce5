// Package stm implements transactional memory for explicitly instrumented Go
// code.
//
// # Overview
//
// A Thread runs bodies as transactions. Inside a transaction, writes made
// through the recording primitives (Store, Append, MapSet, RecordWrite) are
// logged before they happen. When the body returns the transaction commits
// and the log is discarded; when it aborts the log is replayed newest first
// and memory returns to its state when the transaction started.
//
//	th := stm.NewThread()
//	x := 42
//	res := th.Transact(func() {
//	    stm.Store(th, &x, 5)
//	    th.AbortTransaction()
//	})
//	// res == stm.AbortedByRequest, x == 42
//
// # Nesting
//
// Transact nests. A child that commits folds its write log, its on-commit
// handlers and its on-abort handlers into the parent; nothing becomes final
// until the outermost transaction commits. A child that aborts is rolled back
// on its own and the parent continues. CascadingAbortTransaction rolls back
// every nest instead.
//
// # Open and Closed Code
//
// Transaction bodies run closed: recording primitives log their writes. Open
// runs a function with recording off. Its effects are irrevocable unless it
// registers them with RecordOpenWrite or an on-abort handler. Close re-enters
// the transaction from inside an Open section; an abort raised there is
// reported by Close and resumes when the Open section returns.
//
// # Handlers
//
//   - OnCommit: runs after the outermost commit, in registration order
//   - OnAbort: runs when the owning nest aborts, newest first
//   - PushOnAbortHandler / PopOnAbortHandler: keyed on-abort handlers that
//     can be cancelled before the nest finishes
//
// Handlers run in open mode. Calling Transact from a handler is refused with
// AbortedByTransactInOnCommit or AbortedByTransactInOnAbort.
//
// # Pointer Safety
//
// RecordWrite and RecordOpenWrite copy raw bytes and must only be used on
// memory without Go pointers. The generic helpers inspect the type and fall
// back to a typed undo closure when the value holds pointers.
//
// # Thread Safety
//
// A Thread belongs to one goroutine. Goroutines that run transactions
// concurrently each use their own Thread; sharing memory between them is the
// caller's business (see package txmutex).
package stm

package stm

import (
	"unsafe"

	"github.com/rs/zerolog"
)

// openCheck is the write-log fingerprint taken when an Open section starts.
type openCheck struct {
	active       bool
	count        int
	hash         uint64
	closeSeq     uint64
	openWriteSeq uint64
}

// Open runs body uninstrumented: its writes are not recorded and survive an
// abort. Outside instrumented code it just calls body.
//
// If body calls Close and the closed section aborts, the abort resumes when
// body returns.
func (th *Thread) Open(body func()) {
	if !th.closed {
		body()
		return
	}
	n := th.cur
	th.closed = false
	defer func() { th.closed = true }()

	chk := th.beginCheck(n)
	body()
	if u := th.pending; u != nil {
		th.pending = nil
		panic(u)
	}
	if chk.active {
		th.endCheck(n, chk)
	}
}

// OpenValue runs body with Thread.Open and returns its result.
func OpenValue[T any](th *Thread, body func() T) T {
	var v T
	th.Open(func() { v = body() })
	return v
}

// AlwaysOpen wraps fn so that every call runs it with Thread.Open.
func (th *Thread) AlwaysOpen(fn func()) func() {
	return func() { th.Open(fn) }
}

// Close runs body instrumented from inside an Open section and returns the
// transaction status when it finishes. If body aborts the transaction, Close
// returns the abort status instead of unwinding, and the abort resumes when
// the enclosing Open section returns.
//
// Once an abort is pending, later calls in the same Open section skip body
// and return the pending status.
//
// Outside a transaction Close runs body directly and returns StatusIdle.
// Inside instrumented code it runs body and returns StatusOnTrack.
func (th *Thread) Close(body func()) (status ContextStatus) {
	if th.cur == nil {
		body()
		return StatusIdle
	}
	if th.closed {
		body()
		return th.cur.status
	}
	if u := th.pending; u != nil {
		return u.status
	}

	th.closed = true
	th.closeSeq++
	completed := false
	defer func() {
		th.closed = false
		if completed {
			return
		}
		r := recover()
		if u, ok := r.(*unwind); ok {
			th.pending = u
			status = u.status
			return
		}
		if r != nil {
			panic(r)
		}
	}()
	body()
	completed = true
	return StatusOnTrack
}

// RecordOpenWrite registers size bytes at p, about to be written from an
// Open section, so that an abort restores them. p must not hold Go pointers;
// use RecordOpenWriteOf for typed values.
func (th *Thread) RecordOpenWrite(p unsafe.Pointer, size uintptr) {
	th.recordOpen(p, size, false)
}

// RecordOpenWriteNoMemoryValidation is RecordOpenWrite for memory that the
// Open section is expected to modify further.
func (th *Thread) RecordOpenWriteNoMemoryValidation(p unsafe.Pointer, size uintptr) {
	th.recordOpen(p, size, true)
}

func (th *Thread) recordOpen(p unsafe.Pointer, size uintptr, noValidation bool) {
	if th.cur == nil || size == 0 {
		return
	}
	th.openWriteSeq++
	th.cur.log.Record(p, size, noValidation)
}

// RecordOpenWriteOf registers *p like RecordOpenWrite, for any T.
func RecordOpenWriteOf[T any](th *Thread, p *T) {
	if th.cur == nil {
		return
	}
	th.openWriteSeq++
	record(th.cur, p, false)
}

// DidAllocate tells the transaction that size bytes at p were allocated by
// it. Writes there are not recorded until the outermost nest finishes.
func (th *Thread) DidAllocate(p unsafe.Pointer, size uintptr) {
	if th.cur == nil || size == 0 {
		return
	}
	th.cur.mem.Add(p, size)
}

// DidFree tells the transaction that the region at p was released, so that
// later writes to reused memory are recorded again.
func (th *Thread) DidFree(p unsafe.Pointer) {
	for n := th.cur; n != nil; n = n.parent {
		n.mem.Remove(p)
	}
}

func (th *Thread) beginCheck(n *nest) openCheck {
	if th.cfg.MemoryValidation == ValidationDisabled {
		return openCheck{}
	}
	n.log.MarkBoundary()
	count := n.log.Num()
	return openCheck{
		active:       true,
		count:        count,
		hash:         n.log.Hash(count),
		closeSeq:     th.closeSeq,
		openWriteSeq: th.openWriteSeq,
	}
}

// endCheck reports an Open section that modified memory the transaction had
// already logged. Sections that re-entered the transaction or recorded open
// writes are exempt. Detection is best-effort and never changes the outcome.
func (th *Thread) endCheck(n *nest, chk openCheck) {
	if th.closeSeq != chk.closeSeq || th.openWriteSeq != chk.openWriteSeq {
		return
	}
	if n.log.Num() < chk.count || n.log.Hash(chk.count) == chk.hash {
		return
	}
	th.stats.Hazards++

	var ev *zerolog.Event
	if th.cfg.MemoryValidation == ValidationError {
		ev = th.log.Error()
	} else {
		ev = th.log.Warn()
	}
	ev.Int("depth", n.depth).
		Int("entries", chk.count).
		Msg("memory modified in a transaction was also modified in a call to Open")
}

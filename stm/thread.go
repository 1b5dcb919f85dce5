package stm

import (
	"github.com/rs/zerolog"

	"github.com/joshuapare/stmkit/stm/alloc"
)

type phase uint8

const (
	phaseNone phase = iota
	phaseCommitting
	phaseAborting
)

// Stats counts transaction activity on a Thread.
type Stats struct {
	// Started counts nests entered, including retried runs.
	Started uint64

	// Committed counts nests that committed, nested ones included.
	Committed uint64

	AbortedByRequest  uint64
	AbortedByLanguage uint64
	AbortedByCascade  uint64

	// Rejected counts Transact calls refused during commit or abort
	// finalization.
	Rejected uint64

	// Retries counts runs that were rolled back by the retry policy.
	Retries uint64

	// Hazards counts Open sections that modified transactionally logged
	// memory.
	Hazards uint64
}

// Thread is the transactional context of a single goroutine.
//
// All state that the runtime keeps per execution thread lives here: the stack
// of nests, the closed/open flag, the commit/abort phase and the config. A
// Thread must only be used from one goroutine at a time; independent
// goroutines use independent Threads.
type Thread struct {
	cfg Config
	log zerolog.Logger

	// cur is the innermost nest, nil outside any transaction.
	cur *nest

	// closed is true while instrumented code runs.
	closed bool

	phase phase

	// pending is the abort captured by Close, raised again when the
	// enclosing Open section returns.
	pending *unwind

	// closeSeq and openWriteSeq let Open tell whether its body entered the
	// transaction or registered writes, which exempts it from validation.
	closeSeq     uint64
	openWriteSeq uint64

	allocOpts alloc.Options
	spare     []*nest

	stats Stats
}

// Option configures a Thread.
type Option func(*Thread)

// WithConfig sets the initial configuration.
func WithConfig(cfg Config) Option {
	return func(th *Thread) { th.cfg = cfg }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(th *Thread) { th.log = l }
}

// WithAllocatorOptions sets the options of every nest's write-log allocator.
// A nil Backing keeps the one already selected.
func WithAllocatorOptions(opts alloc.Options) Option {
	return func(th *Thread) {
		if opts.Backing == nil {
			opts.Backing = th.allocOpts.Backing
		}
		th.allocOpts = opts
	}
}

// WithPageBacking stores write-log data in anonymous page mappings instead of
// the Go heap.
func WithPageBacking() Option {
	return func(th *Thread) { th.allocOpts.Backing = alloc.NewPageBacking() }
}

// NewThread creates a Thread with DefaultConfig and a discarding logger.
func NewThread(opts ...Option) *Thread {
	th := &Thread{
		cfg:       DefaultConfig(),
		log:       zerolog.Nop(),
		allocOpts: alloc.DefaultOptions(),
	}
	for _, opt := range opts {
		opt(th)
	}
	// All nests share one backing so absorbed blocks are released to the
	// backing that produced them.
	if th.allocOpts.Backing == nil {
		th.allocOpts.Backing = alloc.HeapBacking{}
	}
	th.log = th.log.With().Str("component", "stm").Logger()
	return th
}

// IsTransactional reports whether a transaction is running, including its
// commit or abort finalization.
func (th *Thread) IsTransactional() bool {
	return th.cur != nil || th.phase != phaseNone
}

// IsClosed reports whether instrumented code is running.
func (th *Thread) IsClosed() bool {
	return th.closed
}

// IsCommittingOrAborting reports whether on-commit or on-abort handlers are
// running.
func (th *Thread) IsCommittingOrAborting() bool {
	return th.phase != phaseNone
}

// Depth returns the number of live nests.
func (th *Thread) Depth() int {
	if th.cur == nil {
		return 0
	}
	return th.cur.depth
}

// Status returns the status of the innermost nest, or StatusIdle.
func (th *Thread) Status() ContextStatus {
	if th.cur == nil {
		return StatusIdle
	}
	return th.cur.status
}

// Stats returns a snapshot of the counters.
func (th *Thread) Stats() Stats {
	return th.stats
}

// Logger returns the thread's logger.
func (th *Thread) Logger() *zerolog.Logger {
	return &th.log
}

package stm

// Result is the outcome of a Transact call.
type Result int

const (
	// Committed means the body ran to completion and its writes were kept.
	Committed Result = iota

	// AbortedByRequest means the body called AbortTransaction.
	AbortedByRequest

	// AbortedByLanguage means the body hit an operation that cannot be
	// soundly instrumented, or panicked through the transaction.
	AbortedByLanguage

	// AbortedByCascade means a CascadingAbortTransaction unwound every nest.
	// Only the outermost Transact reports it.
	AbortedByCascade

	// AbortedByTransactInOnCommit means Transact was called from an
	// on-commit handler. The body was not run.
	AbortedByTransactInOnCommit

	// AbortedByTransactInOnAbort means Transact was called from an on-abort
	// handler. The body was not run.
	AbortedByTransactInOnAbort
)

func (r Result) String() string {
	switch r {
	case Committed:
		return "Committed"
	case AbortedByRequest:
		return "AbortedByRequest"
	case AbortedByLanguage:
		return "AbortedByLanguage"
	case AbortedByCascade:
		return "AbortedByCascade"
	case AbortedByTransactInOnCommit:
		return "AbortedByTransactInOnCommit"
	case AbortedByTransactInOnAbort:
		return "AbortedByTransactInOnAbort"
	default:
		return "Result(?)"
	}
}

// ContextStatus is the state of a transaction nest.
type ContextStatus int

const (
	// StatusIdle means no transaction is running.
	StatusIdle ContextStatus = iota
	StatusOnTrack
	StatusAbortedByRequest
	StatusAbortedByLanguage
	StatusAbortedByCascade
	StatusCommitted
)

func (s ContextStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusOnTrack:
		return "OnTrack"
	case StatusAbortedByRequest:
		return "AbortedByRequest"
	case StatusAbortedByLanguage:
		return "AbortedByLanguage"
	case StatusAbortedByCascade:
		return "AbortedByCascade"
	case StatusCommitted:
		return "Committed"
	default:
		return "ContextStatus(?)"
	}
}

// IsAborting reports whether s is one of the abort states.
func (s ContextStatus) IsAborting() bool {
	return s == StatusAbortedByRequest || s == StatusAbortedByLanguage || s == StatusAbortedByCascade
}

func resultFor(s ContextStatus) Result {
	switch s {
	case StatusAbortedByLanguage:
		return AbortedByLanguage
	case StatusAbortedByCascade:
		return AbortedByCascade
	case StatusCommitted:
		return Committed
	default:
		return AbortedByRequest
	}
}

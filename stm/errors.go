package stm

import "errors"

var (
	// ErrUnexpectedResult is returned by Commit and Abort when Transact
	// reports a different outcome than the helper expects.
	ErrUnexpectedResult = errors.New("stm: unexpected transaction result")

	// ErrInternalAbort is the panic value (wrapped) raised by InternalAbort
	// when the internal abort action is InternalAbortCrash.
	ErrInternalAbort = errors.New("stm: internal abort")
)

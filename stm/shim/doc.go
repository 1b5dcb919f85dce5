// Package shim provides transaction-aware versions of common library calls.
//
// Every shim falls into one of three groups:
//
//   - Recorded: the shim registers the memory it is about to modify with the
//     running transaction (Memcpy, Memset, AppendString, Sprintf, the text
//     codecs), so an abort restores it.
//   - Always open: the effect is irrevocable and excluded from rollback
//     (Fprintln, Fprintf).
//   - Unsupported: the shim cannot be made safe and aborts the transaction
//     as AbortedByLanguage (Unsupported, and Sprintf with %n).
//
// Outside a transaction every shim behaves like the call it wraps.
package shim

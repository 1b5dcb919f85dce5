package shim

import (
	"fmt"
	"io"

	"github.com/joshuapare/stmkit/stm"
)

// Sprintf formats into *dst, replacing its contents, and returns the length.
//
// A %n verb aborts the transaction as AbortedByLanguage. The verb writes
// through an argument pointer the shim cannot record.
func Sprintf(th *stm.Thread, dst *[]byte, format string, args ...any) int {
	if hasVerb(format, 'n') {
		th.InternalAbort("Sprintf: %n is not supported in a transaction")
	}
	out := fmt.Appendf(nil, format, args...)
	replace(th, dst, out)
	return len(out)
}

// hasVerb reports whether format uses verb. Escaped percents are skipped, as
// are flags, argument indexes, width and precision.
func hasVerb(format string, verb byte) bool {
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			continue
		}
		i++
		for i < len(format) && isVerbModifier(format[i]) {
			if format[i] == '[' {
				for i < len(format) && format[i] != ']' {
					i++
				}
			}
			i++
		}
		if i < len(format) && format[i] == verb {
			return true
		}
	}
	return false
}

func isVerbModifier(c byte) bool {
	switch c {
	case '+', '-', '#', ' ', '0', '.', '*', '[':
		return true
	}
	return c >= '1' && c <= '9'
}

// Fprintln writes to w immediately, even inside a transaction. The output is
// not undone by an abort.
func Fprintln(th *stm.Thread, w io.Writer, args ...any) (n int, err error) {
	th.Open(func() { n, err = fmt.Fprintln(w, args...) })
	return n, err
}

// Fprintf is the formatted form of Fprintln.
func Fprintf(th *stm.Thread, w io.Writer, format string, args ...any) (n int, err error) {
	th.Open(func() { n, err = fmt.Fprintf(w, format, args...) })
	return n, err
}

// Unsupported aborts the transaction as AbortedByLanguage, naming the call
// that cannot run inside one. Outside instrumented code it does nothing.
func Unsupported(th *stm.Thread, call string) {
	th.InternalAbort(call + " is not supported in a transaction")
}

package shim

import (
	"unsafe"

	"github.com/joshuapare/stmkit/stm"
)

// Memcpy copies src into dst and returns the number of bytes copied.
func Memcpy(th *stm.Thread, dst, src []byte) int {
	n := min(len(dst), len(src))
	if n == 0 {
		return 0
	}
	th.RecordWrite(unsafe.Pointer(&dst[0]), uintptr(n))
	return copy(dst, src[:n])
}

// Memset fills dst with c.
func Memset(th *stm.Thread, dst []byte, c byte) {
	if len(dst) == 0 {
		return
	}
	th.RecordWrite(unsafe.Pointer(&dst[0]), uintptr(len(dst)))
	for i := range dst {
		dst[i] = c
	}
}

// AppendString appends s to *dst.
func AppendString(th *stm.Thread, dst *[]byte, s string) {
	stm.Append(th, dst, []byte(s)...)
}

// replace sets *dst to a copy of b, reusing its storage when it fits.
func replace(th *stm.Thread, dst *[]byte, b []byte) {
	if len(b) <= cap(*dst) {
		buf := (*dst)[:len(b)]
		Memcpy(th, buf, b)
		stm.Store(th, dst, buf)
		return
	}
	stm.Store(th, dst, append([]byte(nil), b...))
}

package writelog

import (
	"testing"
	"unsafe"
)

func BenchmarkWriteLog_Record8(b *testing.B) {
	l := newLog()
	buf := make([]int64, 1024)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l.Record(unsafe.Pointer(&buf[(i*2)%len(buf)]), 8, false)
		if l.Num() >= 1<<16 {
			l.Reset()
		}
	}
}

func BenchmarkWriteLog_Hash(b *testing.B) {
	l := newLog()
	buf := make([]byte, 64<<10)
	for off := 0; off < len(buf); off += 64 {
		l.Record(unsafe.Pointer(&buf[off]), 32, false)
	}
	b.SetBytes(int64(l.TotalSize()))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = l.Hash(l.Num())
	}
}

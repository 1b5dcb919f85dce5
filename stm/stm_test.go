package stm_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"

	"github.com/joshuapare/stmkit/stm"
)

// newTestThread returns a thread logging into buf.
func newTestThread(t *testing.T, opts ...stm.Option) (*stm.Thread, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts = append([]stm.Option{stm.WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))}, opts...)
	return stm.NewThread(opts...), &buf
}

// recoverValue runs fn and returns what it panicked with.
func recoverValue(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}

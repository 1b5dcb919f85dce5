package shim

import "errors"

// ErrEncode is returned when a text codec rejects its input.
var ErrEncode = errors.New("shim: encoding failed")

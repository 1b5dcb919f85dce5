package shim

import (
	"fmt"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/joshuapare/stmkit/stm"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeUTF16 writes s to *dst as UTF-16LE without a byte order mark.
func EncodeUTF16(th *stm.Thread, dst *[]byte, s string) error {
	out, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return fmt.Errorf("%w: utf-16: %w", ErrEncode, err)
	}
	replace(th, dst, out)
	return nil
}

// DecodeUTF16 writes UTF-16LE src to *dst as UTF-8.
func DecodeUTF16(th *stm.Thread, dst *[]byte, src []byte) error {
	if len(src)%2 != 0 {
		return fmt.Errorf("%w: utf-16 input has odd length %d", ErrEncode, len(src))
	}
	out, err := utf16le.NewDecoder().Bytes(src)
	if err != nil {
		return fmt.Errorf("%w: utf-16: %w", ErrEncode, err)
	}
	replace(th, dst, out)
	return nil
}

// EncodeWindows1252 writes s to *dst in the Windows-1252 code page.
func EncodeWindows1252(th *stm.Thread, dst *[]byte, s string) error {
	out, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return fmt.Errorf("%w: windows-1252: %w", ErrEncode, err)
	}
	replace(th, dst, out)
	return nil
}

// DecodeWindows1252 writes Windows-1252 src to *dst as UTF-8.
func DecodeWindows1252(th *stm.Thread, dst *[]byte, src []byte) error {
	out, err := charmap.Windows1252.NewDecoder().Bytes(src)
	if err != nil {
		return fmt.Errorf("%w: windows-1252: %w", ErrEncode, err)
	}
	replace(th, dst, out)
	return nil
}

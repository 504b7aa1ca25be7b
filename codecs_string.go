package boxon

import (
	"reflect"
	"unicode/utf16"

	"github.com/kungfusheep/boxon/bitio"
)

// stringCodec handles fixed-size and terminator-scanned string fields
// (§4.3's STRING binding). size, when >= 0, is the number of bytes to
// read/write (already resolved from binding.SizeExpr by the engine); a
// negative size means "terminator-delimited".
type stringCodec struct{}

func decodeCharset(charset string, b []byte) string {
	switch charset {
	case "UTF-16", "UTF-16BE":
		return decodeUTF16(b, false)
	case "UTF-16LE":
		return decodeUTF16(b, true)
	default: // "UTF-8", "ASCII", "" all decode as raw bytes
		return string(b)
	}
}

func encodeCharset(charset, s string) []byte {
	switch charset {
	case "UTF-16", "UTF-16BE":
		return encodeUTF16(s, false)
	case "UTF-16LE":
		return encodeUTF16(s, true)
	default:
		return []byte(s)
	}
}

func decodeUTF16(b []byte, little bool) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		if little {
			units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
		} else {
			units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
		}
	}
	return string(utf16.Decode(units))
}

func encodeUTF16(s string, little bool) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		if little {
			out[2*i] = byte(u)
			out[2*i+1] = byte(u >> 8)
		} else {
			out[2*i] = byte(u >> 8)
			out[2*i+1] = byte(u)
		}
	}
	return out
}

// decodeFixed reads exactly size bytes and decodes them per charset.
func (stringCodec) decodeFixed(r *bitio.Reader, charset string, size int) (string, error) {
	if size < 0 {
		return "", &CodecError{Kind: "STRING", Message: "negative fixed size"}
	}
	b := r.ReadBytes(uint64(size))
	return decodeCharset(charset, b), nil
}

// decodeTerminated scans forward to binding.Terminator, decodes the
// bytes up to (not including) it, and optionally consumes the terminator.
func (stringCodec) decodeTerminated(r *bitio.Reader, charset string, term byte, consume bool) (string, error) {
	start := r.BytePosition()
	found := r.SkipUntilTerminator(term)
	if !found {
		return "", &DataError{Message: "terminator not found while decoding string"}
	}
	end := r.BytePosition()
	raw := r.Array()[start:end]
	if consume {
		r.Skip(8) // advance past the terminator byte itself
	}
	return decodeCharset(charset, raw), nil
}

// Decode is not used directly by the engine (string fields carry a
// resolved size from the template compiler/engine instead); kept to
// satisfy the Codec interface for registry completeness and direct unit
// testing.
func (c stringCodec) Decode(r *bitio.Reader, t reflect.Type, binding Binding) (any, error) {
	if binding.SizeExpr == "" {
		return c.decodeTerminated(r, binding.Charset, binding.Terminator, binding.ConsumeTerminator)
	}
	return nil, &CodecError{Kind: "STRING", Type: t.String(), Message: "stringCodec.Decode requires a resolved size; use decodeFixed via the engine"}
}

func (c stringCodec) Encode(w *bitio.Writer, value any, binding Binding) error {
	s, ok := value.(string)
	if !ok {
		return &CodecError{Kind: "STRING", Message: "expected a string value"}
	}
	b := encodeCharset(binding.Charset, s)
	w.WriteBytes(b)
	if binding.SizeExpr == "" && binding.ConsumeTerminator {
		w.WriteByte(binding.Terminator)
	}
	return nil
}

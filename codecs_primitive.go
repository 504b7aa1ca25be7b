package boxon

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"reflect"

	"github.com/kungfusheep/boxon/bitio"
)

// primitiveCodec handles fixed-width booleans, integers, and floats,
// including sub-byte "N bits" widths (§4.3's PRIMITIVE binding).
type primitiveCodec struct{}

func byteOrderOrDefault(o binary.ByteOrder) binary.ByteOrder {
	if o == nil {
		return binary.BigEndian
	}
	return o
}

func bitWidthOf(t reflect.Type, requested uint) uint {
	if requested > 0 {
		return requested
	}
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 8
	case reflect.Int16, reflect.Uint16:
		return 16
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 32
	case reflect.Int64, reflect.Uint64, reflect.Int, reflect.Uint, reflect.Float64:
		return 64
	default:
		return 0
	}
}

func (primitiveCodec) Decode(r *bitio.Reader, t reflect.Type, binding Binding) (any, error) {
	order := byteOrderOrDefault(binding.ByteOrder)
	width := bitWidthOf(t, binding.BitWidth)

	switch t.Kind() {
	case reflect.Bool:
		return r.ReadBits(width, bitio.MSBFirst) != 0, nil

	case reflect.Int8:
		return int8(r.ReadBits(width, bitio.MSBFirst)), nil
	case reflect.Int16:
		if width == 16 && r.Aligned() {
			return int16(r.ReadUint16(order)), nil
		}
		return int16(r.ReadBits(width, bitio.MSBFirst)), nil
	case reflect.Int32:
		if width == 32 && r.Aligned() {
			return int32(r.ReadUint32(order)), nil
		}
		return int32(r.ReadBits(width, bitio.MSBFirst)), nil
	case reflect.Int64, reflect.Int:
		if width == 64 && r.Aligned() {
			v := r.ReadUint64(order)
			if t.Kind() == reflect.Int {
				return int(int64(v)), nil
			}
			return int64(v), nil
		}
		v := r.ReadBits(width, bitio.MSBFirst)
		if t.Kind() == reflect.Int {
			return int(v), nil
		}
		return int64(v), nil

	case reflect.Uint8:
		return uint8(r.ReadBits(width, bitio.MSBFirst)), nil
	case reflect.Uint16:
		if width == 16 && r.Aligned() {
			return r.ReadUint16(order), nil
		}
		return uint16(r.ReadBits(width, bitio.MSBFirst)), nil
	case reflect.Uint32:
		if width == 32 && r.Aligned() {
			return r.ReadUint32(order), nil
		}
		return uint32(r.ReadBits(width, bitio.MSBFirst)), nil
	case reflect.Uint64, reflect.Uint:
		if width == 64 && r.Aligned() {
			v := r.ReadUint64(order)
			if t.Kind() == reflect.Uint {
				return uint(v), nil
			}
			return v, nil
		}
		v := r.ReadBits(width, bitio.MSBFirst)
		if t.Kind() == reflect.Uint {
			return uint(v), nil
		}
		return v, nil

	case reflect.Float32:
		return math.Float32frombits(r.ReadUint32(order)), nil
	case reflect.Float64:
		return math.Float64frombits(r.ReadUint64(order)), nil

	default:
		return nil, &CodecError{Kind: "PRIMITIVE", Type: t.String(), Message: "unsupported primitive kind " + t.Kind().String()}
	}
}

func (primitiveCodec) Encode(w *bitio.Writer, value any, binding Binding) error {
	order := byteOrderOrDefault(binding.ByteOrder)
	v := reflect.ValueOf(value)
	t := v.Type()
	width := bitWidthOf(t, binding.BitWidth)

	switch t.Kind() {
	case reflect.Bool:
		var b uint64
		if v.Bool() {
			b = 1 << (width - 1) // the flag bit leads, the rest of the width is zero
		}
		w.WriteBits(b, width, bitio.MSBFirst)
		return nil

	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		u := uint64(v.Int())
		if width%8 == 0 && width > 8 {
			switch width {
			case 16:
				w.WriteUint16(uint16(u), order)
				return nil
			case 32:
				w.WriteUint32(uint32(u), order)
				return nil
			case 64:
				w.WriteUint64(u, order)
				return nil
			}
		}
		w.WriteBits(u&mask(width), width, bitio.MSBFirst)
		return nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		u := v.Uint()
		if width%8 == 0 && width > 8 {
			switch width {
			case 16:
				w.WriteUint16(uint16(u), order)
				return nil
			case 32:
				w.WriteUint32(uint32(u), order)
				return nil
			case 64:
				w.WriteUint64(u, order)
				return nil
			}
		}
		w.WriteBits(u&mask(width), width, bitio.MSBFirst)
		return nil

	case reflect.Float32:
		w.WriteUint32(math.Float32bits(float32(v.Float())), order)
		return nil
	case reflect.Float64:
		w.WriteUint64(math.Float64bits(v.Float()), order)
		return nil

	default:
		return &CodecError{Kind: "PRIMITIVE", Type: t.String(), Message: "unsupported primitive kind " + t.Kind().String()}
	}
}

func mask(width uint) uint64 {
	if width >= 64 {
		return math.MaxUint64
	}
	return (uint64(1) << width) - 1
}

// bigIntCodec handles *big.Int fields of an arbitrary byte-multiple width
// (§2's "arbitrary-width integers" domain need).
type bigIntCodec struct{}

func (bigIntCodec) Decode(r *bitio.Reader, t reflect.Type, binding Binding) (any, error) {
	order := byteOrderOrDefault(binding.ByteOrder)
	width := binding.BitWidth
	if width == 0 {
		return nil, &CodecError{Kind: "PRIMITIVE", Type: t.String(), Message: "big.Int binding requires an explicit bit width"}
	}
	return r.ReadBigInt(width, order), nil
}

func (bigIntCodec) Encode(w *bitio.Writer, value any, binding Binding) error {
	order := byteOrderOrDefault(binding.ByteOrder)
	bi, ok := value.(*big.Int)
	if !ok {
		return fmt.Errorf("boxon: bigIntCodec.Encode expected *big.Int, got %T", value)
	}
	w.WriteBigInt(bi, binding.BitWidth, order)
	return nil
}

func registerPrimitiveCodecs(reg *CodecRegistry) {
	p := primitiveCodec{}
	for _, k := range []reflect.Kind{
		reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint,
		reflect.Float32, reflect.Float64,
	} {
		reg.byKind[k] = p
	}
}

package boxon

import (
	"reflect"

	"github.com/kungfusheep/boxon/bitio"
)

// Codec is the leaf binding→codec dispatch unit (§4.3 step 5, §5): given a
// compiled Binding it knows how to read or write exactly one value of a
// particular reflect.Kind off the wire.
type Codec interface {
	// Decode reads a value described by binding off r.
	Decode(r *bitio.Reader, t reflect.Type, binding Binding) (any, error)
	// Encode writes value, described by binding, to w.
	Encode(w *bitio.Writer, value any, binding Binding) error
}

// CodecRegistry dispatches a reflect.Kind to its Codec (§4.3 step 5's
// "has_codec(kind)" / "codec_for(kind)"). It is built once via
// NewCodecRegistry and is safe for concurrent read-only use thereafter.
type CodecRegistry struct {
	byKind map[reflect.Kind]Codec
}

// NewCodecRegistry returns a registry pre-populated with the built-in
// primitive and string codecs (codecs_primitive.go, codecs_string.go).
func NewCodecRegistry() *CodecRegistry {
	reg := &CodecRegistry{byKind: make(map[reflect.Kind]Codec)}
	registerPrimitiveCodecs(reg)
	reg.byKind[reflect.String] = stringCodec{}
	return reg
}

// Register installs or overrides the codec for kind, for caller-supplied
// leaf types.
func (r *CodecRegistry) Register(kind reflect.Kind, c Codec) {
	r.byKind[kind] = c
}

// Has reports whether a codec is registered for kind.
func (r *CodecRegistry) Has(kind reflect.Kind) bool {
	_, ok := r.byKind[kind]
	return ok
}

// Get returns the codec for kind, or nil if none is registered.
func (r *CodecRegistry) Get(kind reflect.Kind) Codec {
	return r.byKind[kind]
}

// Package boxon implements a declarative binary message (de)serialization
// engine: a compiled per-type Template describes how to decode a byte/bit
// stream into a Go struct and re-encode it byte-for-byte, including
// conditional fields, prefix-discriminated variants, size expressions,
// terminators, and checksums.
package boxon

import (
	"encoding/binary"
	"reflect"

	"github.com/kungfusheep/boxon/expr"
)

// BindingKind discriminates the tagged Binding variant (§4 data model).
type BindingKind uint8

const (
	// BindingPrimitive covers fixed-width numeric/bool fields, including
	// sub-byte "integer of N bits" / "bits of N" encodings.
	BindingPrimitive BindingKind = iota + 1
	// BindingString covers fixed-size or terminated string fields.
	BindingString
	// BindingArray covers primitive or object element sequences.
	BindingArray
	// BindingObject covers nested templates, with optional variant
	// dispatch via SelectFrom.
	BindingObject
	// BindingChecksum covers the (at most one) checksum field.
	BindingChecksum
	// BindingEvaluate covers evaluated fields (no bytes consumed).
	BindingEvaluate
)

func (k BindingKind) String() string {
	switch k {
	case BindingPrimitive:
		return "PRIMITIVE"
	case BindingString:
		return "STRING"
	case BindingArray:
		return "ARRAY"
	case BindingObject:
		return "OBJECT"
	case BindingChecksum:
		return "CHECKSUM"
	case BindingEvaluate:
		return "EVALUATE"
	default:
		return "UNKNOWN"
	}
}

// Converter is a bidirectional value transformer run around a leaf codec
// (§4.4): DecodeSide runs on the raw codec output before field assignment;
// EncodeSide runs on the field value before the codec sees it.
type Converter struct {
	Name       string
	DecodeSide func(in any) (any, error)
	EncodeSide func(out any) (any, error)
}

// ConverterChoice is one (condition, converter) alternative; the first
// whose condition evaluates true over root replaces a field's default
// converter (§4.4).
type ConverterChoice struct {
	Condition string
	Converter *Converter
}

// Validator is a post-decode predicate on a field's (converted) value
// (§4.4). A failing validator is reported as a DataError naming Name and
// the offending value.
type Validator struct {
	Name    string
	IsValid func(value any) bool
}

// Alternative is one branch of a variant-typed OBJECT/ARRAY-of-object
// field (§4.5): Condition is evaluated over root, Prefix is the literal
// value written on encode when Condition references "prefix", Type is
// the concrete Go type decoded/encoded for this branch.
type Alternative struct {
	Condition string
	Prefix    uint64
	Type      reflect.Type
}

// SelectFrom carries variant dispatch metadata for OBJECT/ARRAY-of-object
// bindings (§4.5).
type SelectFrom struct {
	PrefixSize    uint // 0 if no prefix is read
	BitOrder      BitOrderSetting
	Alternatives  []Alternative
	SelectDefault reflect.Type // nil means "void": no match is a CodecError
}

// BitOrderSetting re-exports bitio.BitOrder at the template-model layer so
// callers of this package don't need to import bitio directly just to
// declare a SelectFrom or a bit-width Binding.
type BitOrderSetting = BitOrder

// SkipKind discriminates the two SkipDescriptor variants (§3).
type SkipKind uint8

const (
	// SkipBits skips N bits, N evaluated at runtime from SizeExpr.
	SkipBits SkipKind = iota + 1
	// SkipUntil skips forward until Terminator is found, optionally
	// consuming it.
	SkipUntil
)

// SkipDescriptor is one skip instruction executed before a field, on both
// decode and encode (§3, §4.6).
type SkipDescriptor struct {
	Kind              SkipKind
	Condition         string // empty = always run
	SizeExpr          string // SkipBits: bits to skip
	Terminator        byte   // SkipUntil: byte to scan for
	ConsumeTerminator bool   // SkipUntil: also consume the terminator byte
}

// Binding is the tagged descriptor attached to a bounded field (§3, §4.3).
// It is modeled as one flat struct keyed by Kind rather than one Go type
// per variant: the attributes overlap enough (Condition, Validator,
// Converter, ConverterChoices apply to every kind) that a discriminated
// struct is simpler here than an interface hierarchy, mirroring how
// glint's decodeInstruction/assigner attach a single per-field descriptor
// regardless of wire kind.
type Binding struct {
	Kind BindingKind

	Condition        string
	Validator        *Validator
	Converter        *Converter
	ConverterChoices []ConverterChoice

	// PRIMITIVE
	ByteOrder binary.ByteOrder // nil defaults to binary.BigEndian
	BitWidth  uint             // 0 means "whole Go type width"; >0 selects integer-of-N-bits / bits-of-N

	// STRING
	Charset           string // e.g. "UTF-8"; "" defaults to UTF-8
	SizeExpr          string // fixed-size string: number of bytes to read; "" means terminated
	Terminator        byte
	ConsumeTerminator bool

	// ARRAY (element binding lives in TemplateField.CollectionBinding)
	// SizeExpr (above) also doubles as the array's element-count expression.

	// OBJECT / ARRAY-of-object
	Type       reflect.Type // concrete type when there's no variant dispatch
	SelectFrom *SelectFrom

	// CHECKSUM
	Algorithm ChecksumAlgorithm
	SkipStart int
	SkipEnd   int
}

// ContextParameter is one named binding installed into the
// EvaluatorContext while its owning field is processed (§3).
type ContextParameter struct {
	Name string
	Expr string
}

// TemplateField is a single bounded field's compiled plan (§3).
type TemplateField struct {
	Name              string // Go struct field name
	Index             []int  // reflect.Value.FieldByIndex path
	Type              reflect.Type
	Binding           Binding
	CollectionBinding *Binding // element binding, set when Binding.Kind == BindingArray
	Condition         string   // "" means always process
	Skips             []SkipDescriptor
	ContextParameters []ContextParameter
}

// EvaluatedField is populated after all bounded fields decode; it never
// consumes or produces bytes (§3).
type EvaluatedField struct {
	Name      string
	Index     []int
	Type      reflect.Type
	Condition string
	Expr      string
}

// PostProcessedField carries distinct decode- and encode-direction
// expressions (§3, §4.3 steps 6, §4.8 step 2).
type PostProcessedField struct {
	Name        string
	Index       []int
	Type        reflect.Type
	Condition   string
	ValueDecode string
	ValueEncode string
}

// ChecksumField is the at-most-one checksum field a template may declare
// (§3, §4.7).
type ChecksumField struct {
	Name      string
	Index     []int
	Type      reflect.Type // must be integral
	Condition string       // "" means always verify
	Algorithm ChecksumAlgorithm
	SkipStart int
	SkipEnd   int
}

// Header carries a template's optional start/end framing (§3).
type Header struct {
	Start   [][]byte // ordered set of acceptable starting byte sequences, already charset-encoded
	End     []byte   // optional terminator sequence, already charset-encoded
	Charset string
}

// Template is the compiled, immutable plan for decoding/encoding a Go type
// T (§3). Templates are built once per type and safely shared across
// goroutines and calls; construct via TemplateBuilder.Build (builder.go).
type Template struct {
	Type                reflect.Type
	Header              *Header
	BoundedFields       []TemplateField
	EvaluatedFields     []EvaluatedField
	PostProcessedFields []PostProcessedField
	ChecksumField       *ChecksumField

	evaluator *expr.Evaluator
}

// Name returns the template's target type name, for error messages and
// event hooks.
func (t *Template) Name() string { return t.Type.String() }

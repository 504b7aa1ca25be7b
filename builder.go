package boxon

import (
	"reflect"

	"github.com/kungfusheep/boxon/expr"
)

// TemplateBuilder constructs a Template for T explicitly (§9's resolution
// of "how templates are constructed": a builder API rather than a
// struct-tag micro-language, so every annotation is a plain Go value
// checked by the compiler instead of parsed at runtime from a string).
type TemplateBuilder[T any] struct {
	t   reflect.Type
	err error

	header        *Header
	fields        []TemplateField
	evaluated     []EvaluatedField
	postProc      []PostProcessedField
	checksum      *ChecksumField
	declaredNames []string
}

// NewTemplateBuilder starts a builder for T, which must be a struct type.
func NewTemplateBuilder[T any]() *TemplateBuilder[T] {
	var zero T
	t := reflect.TypeOf(zero)
	b := &TemplateBuilder[T]{t: t}
	if t == nil || t.Kind() != reflect.Struct {
		b.err = &AnnotationError{Message: "TemplateBuilder requires a struct type"}
	}
	return b
}

// WithHeader installs start/end framing.
func (b *TemplateBuilder[T]) WithHeader(h Header) *TemplateBuilder[T] {
	b.header = &h
	return b
}

// FieldOption mutates a TemplateField being appended by Field.
type FieldOption func(*TemplateField)

// WithCondition makes the field's presence conditional (§4.3 step 2).
func WithCondition(expression string) FieldOption {
	return func(f *TemplateField) { f.Condition = expression }
}

// WithSkip appends a skip to run before the field (§4.6).
func WithSkip(s SkipDescriptor) FieldOption {
	return func(f *TemplateField) { f.Skips = append(f.Skips, s) }
}

// WithContextParameter installs a named value, computed from expression,
// visible to this field's own binding and every later field's
// expressions (§3).
func WithContextParameter(name, expression string) FieldOption {
	return func(f *TemplateField) {
		f.ContextParameters = append(f.ContextParameters, ContextParameter{Name: name, Expr: expression})
	}
}

// WithCollectionElement sets the element binding for an ARRAY field.
func WithCollectionElement(elem Binding) FieldOption {
	return func(f *TemplateField) { f.CollectionBinding = &elem }
}

// Field resolves fieldName against T's struct fields and appends a
// compiled TemplateField bound by binding.
func (b *TemplateBuilder[T]) Field(fieldName string, binding Binding, opts ...FieldOption) *TemplateBuilder[T] {
	if b.err != nil {
		return b
	}
	sf, ok := b.t.FieldByName(fieldName)
	if !ok {
		b.err = &AnnotationError{Type: b.t.String(), Field: fieldName, Message: "no such field"}
		return b
	}

	tf := TemplateField{
		Name:    fieldName,
		Index:   sf.Index,
		Type:    sf.Type,
		Binding: binding,
	}
	for _, opt := range opts {
		opt(&tf)
	}
	b.fields = append(b.fields, tf)
	for _, cp := range tf.ContextParameters {
		b.declaredNames = append(b.declaredNames, cp.Name)
	}
	return b
}

// Evaluated appends a field populated post-decode from expression, never
// consuming or producing bytes (§3, §4.3 step 8).
func (b *TemplateBuilder[T]) Evaluated(fieldName, condition, expression string) *TemplateBuilder[T] {
	if b.err != nil {
		return b
	}
	sf, ok := b.t.FieldByName(fieldName)
	if !ok {
		b.err = &AnnotationError{Type: b.t.String(), Field: fieldName, Message: "no such field"}
		return b
	}
	b.evaluated = append(b.evaluated, EvaluatedField{
		Name: fieldName, Index: sf.Index, Type: sf.Type,
		Condition: condition, Expr: expression,
	})
	return b
}

// PostProcessed appends a field whose decode- and encode-direction values
// are computed by distinct expressions (§3, §4.3 step 6, §4.8 step 2).
func (b *TemplateBuilder[T]) PostProcessed(fieldName, condition, decodeExpr, encodeExpr string) *TemplateBuilder[T] {
	if b.err != nil {
		return b
	}
	sf, ok := b.t.FieldByName(fieldName)
	if !ok {
		b.err = &AnnotationError{Type: b.t.String(), Field: fieldName, Message: "no such field"}
		return b
	}
	b.postProc = append(b.postProc, PostProcessedField{
		Name: fieldName, Index: sf.Index, Type: sf.Type,
		Condition: condition, ValueDecode: decodeExpr, ValueEncode: encodeExpr,
	})
	return b
}

// Checksum declares fieldName as the template's (at most one) checksum
// field (§4.7).
func (b *TemplateBuilder[T]) Checksum(fieldName string, alg ChecksumAlgorithm, condition string, skipStart, skipEnd int) *TemplateBuilder[T] {
	if b.err != nil {
		return b
	}
	if b.checksum != nil {
		b.err = &AnnotationError{Type: b.t.String(), Message: "a template may declare at most one checksum field"}
		return b
	}
	sf, ok := b.t.FieldByName(fieldName)
	if !ok {
		b.err = &AnnotationError{Type: b.t.String(), Field: fieldName, Message: "no such field"}
		return b
	}
	b.checksum = &ChecksumField{
		Name: fieldName, Index: sf.Index, Type: sf.Type,
		Condition: condition, Algorithm: alg, SkipStart: skipStart, SkipEnd: skipEnd,
	}
	return b
}

// DeclareName registers an additional top-level identifier that
// expressions on this template may reference (beyond self/root/prefix and
// any WithContextParameter names, which are collected automatically).
func (b *TemplateBuilder[T]) DeclareName(name string) *TemplateBuilder[T] {
	b.declaredNames = append(b.declaredNames, name)
	return b
}

// Build validates and compiles the accumulated fields into a Template.
func (b *TemplateBuilder[T]) Build() (*Template, error) {
	if b.err != nil {
		return nil, b.err
	}

	if len(b.fields) == 0 {
		return nil, &AnnotationError{Type: b.t.String(), Message: "template has no bounded fields"}
	}

	for _, f := range b.fields {
		if f.Binding.Kind == BindingArray && f.CollectionBinding == nil {
			return nil, &AnnotationError{Type: b.t.String(), Field: f.Name, Message: "ARRAY field requires WithCollectionElement"}
		}
	}

	ev, err := expr.New(b.declaredNames)
	if err != nil {
		return nil, &TemplateError{Template: b.t.String(), Message: "building expression evaluator", Cause: err}
	}

	return &Template{
		Type:                b.t,
		Header:              b.header,
		BoundedFields:       b.fields,
		EvaluatedFields:     b.evaluated,
		PostProcessedFields: b.postProc,
		ChecksumField:       b.checksum,
		evaluator:           ev,
	}, nil
}

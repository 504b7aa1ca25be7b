package boxon

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/kungfusheep/boxon/bitio"
)

// Engine is the top-level decode/encode entry point (§2, §4.1): it owns a
// Store of compiled Templates and a CodecRegistry, and drives the
// field-by-field state machine described in §4.3/§4.8.
type Engine struct {
	store    *Store
	codecs   *CodecRegistry
	listener EventListener
	limits   DecodeLimits
}

// NewEngine returns an Engine with an empty Store, the built-in codec
// registry, DefaultDecodeLimits, and a NoopListener. Use EngineOption
// values to customize.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		store:    NewStore(),
		codecs:   NewCodecRegistry(),
		listener: NoopListener{},
		limits:   DefaultDecodeLimits,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithListener installs an EventListener (or, via MultiListener, several).
func WithListener(l EventListener) EngineOption {
	return func(e *Engine) { e.listener = l }
}

// WithCodecRegistry overrides the default CodecRegistry.
func WithCodecRegistry(r *CodecRegistry) EngineOption {
	return func(e *Engine) { e.codecs = r }
}

// WithDecodeLimits overrides DefaultDecodeLimits.
func WithDecodeLimits(l DecodeLimits) EngineOption {
	return func(e *Engine) { e.limits = l }
}

// Register publishes a pre-built Template (typically from
// TemplateBuilder.Build) into the Engine's Store.
func (e *Engine) Register(tpl *Template) {
	e.store.Put(tpl.Type, tpl)
	e.listener.OnTemplateLoaded(tpl.Name())
}

// TemplateFor returns the compiled Template for t, if one has been
// registered.
func (e *Engine) TemplateFor(t reflect.Type) (*Template, bool) {
	return e.store.Get(t)
}

// Decode decodes one message of type T from data, per §4.3's end-to-end
// algorithm (steps 1-9: header check, bounded fields, evaluated fields,
// post-processed fields, checksum, footer check).
func Decode[T any](e *Engine, data []byte) (T, error) {
	var zero T
	t := reflect.TypeOf(zero)
	tpl, ok := e.store.Get(t)
	if !ok {
		return zero, &TemplateError{Template: t.String(), Message: "no template registered for type"}
	}

	e.listener.OnCallStarted(uuid.NewString(), tpl.Name(), "decode")

	r := bitio.NewReader(data)
	out := reflect.New(t).Elem()

	if err := e.decodeHeader(tpl, r); err != nil {
		e.listener.OnError(tpl.Name(), err)
		return zero, err
	}

	ctx := newParserContext(out.Addr().Interface(), out)
	if err := e.decodeBody(tpl, r, ctx); err != nil {
		e.listener.OnError(tpl.Name(), err)
		return zero, err
	}

	if err := e.decodeFooter(tpl, r); err != nil {
		e.listener.OnError(tpl.Name(), err)
		return zero, err
	}

	return out.Interface().(T), nil
}

// Encode encodes value per its registered Template, mirroring Decode's
// steps in reverse (§4.8).
func Encode[T any](e *Engine, value T) ([]byte, error) {
	t := reflect.TypeOf(value)
	tpl, ok := e.store.Get(t)
	if !ok {
		return nil, &TemplateError{Template: t.String(), Message: "no template registered for type"}
	}

	e.listener.OnCallStarted(uuid.NewString(), tpl.Name(), "encode")

	w := bitio.NewWriter()
	// Copy into an addressable value: post-processed fields recompute
	// and assign their own encode-direction value via reflect.Value.Set,
	// which requires an addressable target even though Encode's caller
	// passed value by value.
	v := reflect.New(t).Elem()
	v.Set(reflect.ValueOf(value))

	if err := e.encodeHeader(tpl, w); err != nil {
		e.listener.OnError(tpl.Name(), err)
		return nil, err
	}

	ctx := newParserContext(v.Addr().Interface(), v)
	if err := e.encodeBody(tpl, w, ctx); err != nil {
		e.listener.OnError(tpl.Name(), err)
		return nil, err
	}

	if err := e.encodeFooter(tpl, w); err != nil {
		e.listener.OnError(tpl.Name(), err)
		return nil, err
	}

	return w.Bytes(), nil
}

func (e *Engine) decodeHeader(tpl *Template, r *bitio.Reader) error {
	if tpl.Header == nil || len(tpl.Header.Start) == 0 {
		return nil
	}
	for _, start := range tpl.Header.Start {
		if r.BytesLeft() < uint64(len(start)) {
			continue
		}
		peek := r.Array()[r.BytePosition() : r.BytePosition()+uint64(len(start))]
		if bytesEqual(peek, start) {
			r.Skip(uint64(len(start)) * 8)
			return nil
		}
	}
	return &TemplateError{Template: tpl.Name(), Message: "no matching header start sequence"}
}

func (e *Engine) decodeFooter(tpl *Template, r *bitio.Reader) error {
	if tpl.Header == nil || len(tpl.Header.End) == 0 {
		return nil
	}
	n := uint64(len(tpl.Header.End))
	if r.BytesLeft() < n {
		return &TemplateError{Template: tpl.Name(), Message: "footer missing: not enough bytes remain"}
	}
	got := r.ReadBytes(n)
	if !bytesEqual(got, tpl.Header.End) {
		return &TemplateError{Template: tpl.Name(), Message: "footer mismatch"}
	}
	return nil
}

func (e *Engine) encodeHeader(tpl *Template, w *bitio.Writer) error {
	if tpl.Header == nil || len(tpl.Header.Start) == 0 {
		return nil
	}
	w.WriteBytes(tpl.Header.Start[0])
	return nil
}

func (e *Engine) encodeFooter(tpl *Template, w *bitio.Writer) error {
	if tpl.Header == nil || len(tpl.Header.End) == 0 {
		return nil
	}
	w.WriteBytes(tpl.Header.End)
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// decodeBody runs bounded fields, evaluated fields, post-processed fields,
// and the checksum field, in that order (§4.3).
func (e *Engine) decodeBody(tpl *Template, r *bitio.Reader, ctx *ParserContext) error {
	checksumStart := r.BytePosition()

	for i := range tpl.BoundedFields {
		f := &tpl.BoundedFields[i]
		if err := e.decodeBoundedField(tpl, f, r, ctx); err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
	}

	for i := range tpl.EvaluatedFields {
		f := &tpl.EvaluatedFields[i]
		ok, err := tpl.evaluator.EvalBool(f.Condition, ctx.activation(nil))
		if err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
		if !ok {
			continue
		}
		val, err := tpl.evaluator.Eval(f.Expr, ctx.activation(nil))
		if err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
		if err := assign(ctx.Current.FieldByIndex(f.Index), val); err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
	}

	for i := range tpl.PostProcessedFields {
		f := &tpl.PostProcessedFields[i]
		ok, err := tpl.evaluator.EvalBool(f.Condition, ctx.activation(nil))
		if err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
		if !ok {
			continue
		}
		val, err := tpl.evaluator.Eval(f.ValueDecode, ctx.activation(nil))
		if err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
		if err := assign(ctx.Current.FieldByIndex(f.Index), val); err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
	}

	if tpl.ChecksumField != nil {
		if err := e.decodeChecksum(tpl, r, ctx, checksumStart); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) decodeChecksum(tpl *Template, r *bitio.Reader, ctx *ParserContext, spanStart uint64) error {
	cf := tpl.ChecksumField
	ok, err := tpl.evaluator.EvalBool(cf.Condition, ctx.activation(nil))
	if err != nil {
		return wrapField(tpl.Name(), cf.Name, err)
	}
	if !ok {
		return nil
	}

	raw, err := e.codecs.Get(cf.Type.Kind()).Decode(r, cf.Type, Binding{})
	if err != nil {
		return wrapField(tpl.Name(), cf.Name, err)
	}
	if err := assign(ctx.Current.FieldByIndex(cf.Index), raw); err != nil {
		return wrapField(tpl.Name(), cf.Name, err)
	}

	want := toUint64(raw)
	end := r.BytePosition()
	data := r.Array()[:end]
	verr := verifyChecksum(cf.Algorithm, data, int(spanStart)+cf.SkipStart, cf.SkipEnd, want)
	e.listener.OnChecksumVerified(tpl.Name(), verr == nil)
	if verr != nil {
		return wrapField(tpl.Name(), cf.Name, verr)
	}
	return nil
}

func (e *Engine) encodeBody(tpl *Template, w *bitio.Writer, ctx *ParserContext) error {
	// Post-processed fields recompute their own encode-direction value
	// before any bytes are written, per §4.8 step 2, so a bound field
	// that reads this one via self.<Name> sees the recomputed value.
	for i := range tpl.PostProcessedFields {
		f := &tpl.PostProcessedFields[i]
		ok, err := tpl.evaluator.EvalBool(f.Condition, ctx.activation(nil))
		if err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
		if !ok || f.ValueEncode == "" {
			continue
		}
		val, err := tpl.evaluator.Eval(f.ValueEncode, ctx.activation(nil))
		if err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
		if err := assign(ctx.Current.FieldByIndex(f.Index), val); err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
	}

	for i := range tpl.BoundedFields {
		f := &tpl.BoundedFields[i]
		if err := e.encodeBoundedField(tpl, f, w, ctx); err != nil {
			return wrapField(tpl.Name(), f.Name, err)
		}
	}

	if tpl.ChecksumField != nil {
		if err := e.encodeChecksum(tpl, w, ctx); err != nil {
			return err
		}
	}

	return nil
}

// encodeChecksum writes whatever value is already on the checksum field,
// exactly like any other bound field (§4.7: "the engine does not auto-fill
// checksums on encode; the user is expected to have populated it", e.g. via
// a PostProcessedField whose ValueEncode computes it).
func (e *Engine) encodeChecksum(tpl *Template, w *bitio.Writer, ctx *ParserContext) error {
	cf := tpl.ChecksumField
	ok, err := tpl.evaluator.EvalBool(cf.Condition, ctx.activation(nil))
	if err != nil {
		return wrapField(tpl.Name(), cf.Name, err)
	}
	if !ok {
		return nil
	}

	val := ctx.Current.FieldByIndex(cf.Index).Interface()
	if err := e.codecs.Get(cf.Type.Kind()).Encode(w, val, Binding{}); err != nil {
		return wrapField(tpl.Name(), cf.Name, err)
	}
	return nil
}

func toUint64(v any) uint64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	default:
		return 0
	}
}

// assign converts and sets val into dst, the way reflectAssigner does in
// the teacher's decoder, tolerating the common numeric-kind mismatches a
// CEL evaluation or codec read can produce.
func assign(dst reflect.Value, val any) error {
	if val == nil {
		return nil
	}
	rv := reflect.ValueOf(val)
	if rv.Type().AssignableTo(dst.Type()) {
		dst.Set(rv)
		return nil
	}
	if rv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(rv.Convert(dst.Type()))
		return nil
	}
	return &DataError{Message: "cannot assign value of type " + rv.Type().String() + " to field of type " + dst.Type().String()}
}

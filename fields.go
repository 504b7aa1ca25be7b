package boxon

import (
	"fmt"
	"reflect"

	"github.com/kungfusheep/boxon/bitio"
)

// decodeBoundedField runs one TemplateField's full pipeline: skips,
// condition check, context parameter installs, codec dispatch, converter,
// validator, assignment (§4.3 steps 1-7).
func (e *Engine) decodeBoundedField(tpl *Template, f *TemplateField, r *bitio.Reader, ctx *ParserContext) error {
	if err := runSkipsDecode(f.Skips, r, ctx, tpl.evaluator, e.limits); err != nil {
		return err
	}

	ok, err := tpl.evaluator.EvalBool(f.Condition, ctx.activation(nil))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	for _, cp := range f.ContextParameters {
		v, err := tpl.evaluator.Eval(cp.Expr, ctx.activation(nil))
		if err != nil {
			return err
		}
		ctx.Params[cp.Name] = v
	}

	startBits := r.Position()

	val, err := e.decodeBindingValue(tpl, f, &f.Binding, f.Type, r, ctx)
	if err != nil {
		return err
	}

	val, err = applyDecodeConverter(f.Binding, ctx, tpl.evaluator, val)
	if err != nil {
		return err
	}

	if f.Binding.Validator != nil && !f.Binding.Validator.IsValid(val) {
		return &DataError{Message: fmt.Sprintf("validation failed: %s rejected value %v", f.Binding.Validator.Name, val)}
	}

	if err := assign(ctx.Current.FieldByIndex(f.Index), val); err != nil {
		return err
	}

	e.listener.OnFieldDecoded(tpl.Name(), f.Name, r.Position()-startBits)
	return nil
}

func (e *Engine) encodeBoundedField(tpl *Template, f *TemplateField, w *bitio.Writer, ctx *ParserContext) error {
	if err := runSkipsEncode(f.Skips, w, ctx, tpl.evaluator); err != nil {
		return err
	}

	ok, err := tpl.evaluator.EvalBool(f.Condition, ctx.activation(nil))
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	fv := ctx.Current.FieldByIndex(f.Index)

	for _, cp := range f.ContextParameters {
		v, err := tpl.evaluator.Eval(cp.Expr, ctx.activation(nil))
		if err != nil {
			return err
		}
		ctx.Params[cp.Name] = v
	}

	val, err := applyEncodeConverter(f.Binding, ctx, tpl.evaluator, fv.Interface())
	if err != nil {
		return err
	}

	startBits := w.Position()
	if err := e.encodeBindingValue(tpl, f, &f.Binding, f.Type, w, ctx, val); err != nil {
		return err
	}
	e.listener.OnFieldEncoded(tpl.Name(), f.Name, w.Position()-startBits)
	return nil
}

// resolveConverter picks the first matching ConverterChoice, falling back
// to binding.Converter (§4.4's "converter choices" variant selection).
func resolveConverter(binding Binding, ctx *ParserContext, ev evaluator) (*Converter, error) {
	for _, c := range binding.ConverterChoices {
		ok, err := ev.EvalBool(c.Condition, ctx.activation(nil))
		if err != nil {
			return nil, err
		}
		if ok {
			return c.Converter, nil
		}
	}
	return binding.Converter, nil
}

func applyDecodeConverter(binding Binding, ctx *ParserContext, ev evaluator, val any) (any, error) {
	conv, err := resolveConverter(binding, ctx, ev)
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.DecodeSide == nil {
		return val, nil
	}
	return conv.DecodeSide(val)
}

func applyEncodeConverter(binding Binding, ctx *ParserContext, ev evaluator, val any) (any, error) {
	conv, err := resolveConverter(binding, ctx, ev)
	if err != nil {
		return nil, err
	}
	if conv == nil || conv.EncodeSide == nil {
		return val, nil
	}
	return conv.EncodeSide(val)
}

// decodeBindingValue dispatches a single binding to the right strategy:
// codec lookup for PRIMITIVE/STRING, recursive template decode for
// OBJECT, element-loop for ARRAY (§4.3 step 5, §4.5, §4.9).
func (e *Engine) decodeBindingValue(tpl *Template, f *TemplateField, b *Binding, t reflect.Type, r *bitio.Reader, ctx *ParserContext) (any, error) {
	switch b.Kind {
	case BindingPrimitive:
		if t.Kind() == reflect.Ptr && t.Elem().String() == "big.Int" {
			return bigIntCodec{}.Decode(r, t, *b)
		}
		codec := e.codecs.Get(t.Kind())
		if codec == nil {
			return nil, &CodecError{Kind: b.Kind.String(), Type: t.String(), Message: "no codec registered"}
		}
		return codec.Decode(r, t, *b)

	case BindingString:
		size := tpl.evaluator.EvalSize(b.SizeExpr, ctx.activation(nil))
		sc := stringCodec{}
		if size >= 0 {
			if err := e.limits.checkStringLength(size); err != nil {
				return nil, err
			}
			return sc.decodeFixed(r, b.Charset, size)
		}
		return sc.decodeTerminated(r, b.Charset, b.Terminator, b.ConsumeTerminator)

	case BindingObject:
		return e.decodeObject(tpl, b, t, r, ctx)

	case BindingArray:
		return e.decodeArray(tpl, f, r, ctx)

	default:
		return nil, &AnnotationError{Type: t.String(), Field: f.Name, Message: "unsupported binding kind for decode"}
	}
}

func (e *Engine) encodeBindingValue(tpl *Template, f *TemplateField, b *Binding, t reflect.Type, w *bitio.Writer, ctx *ParserContext, val any) error {
	switch b.Kind {
	case BindingPrimitive:
		if t.Kind() == reflect.Ptr && t.Elem().String() == "big.Int" {
			return bigIntCodec{}.Encode(w, val, *b)
		}
		codec := e.codecs.Get(t.Kind())
		if codec == nil {
			return &CodecError{Kind: b.Kind.String(), Type: t.String(), Message: "no codec registered"}
		}
		return codec.Encode(w, val, *b)

	case BindingString:
		return stringCodec{}.Encode(w, val, *b)

	case BindingObject:
		return e.encodeObject(tpl, b, w, ctx, val)

	case BindingArray:
		return e.encodeArray(tpl, f, w, ctx, val)

	default:
		return &AnnotationError{Type: t.String(), Field: f.Name, Message: "unsupported binding kind for encode"}
	}
}

package boxon

import (
	"reflect"

	"github.com/kungfusheep/boxon/bitio"
)

// decodeArray reads f.Type's element count from f.Binding.SizeExpr, then
// decodes that many elements per f.CollectionBinding (§4.9's "ARRAY
// binding: a count expression plus an element binding applied N times").
func (e *Engine) decodeArray(tpl *Template, f *TemplateField, r *bitio.Reader, ctx *ParserContext) (any, error) {
	if f.CollectionBinding == nil {
		return nil, &AnnotationError{Type: f.Type.String(), Field: f.Name, Message: "ARRAY binding missing an element binding"}
	}

	count := tpl.evaluator.EvalSize(f.Binding.SizeExpr, ctx.activation(nil))
	if count < 0 {
		return nil, &DataError{Message: "ARRAY size expression did not evaluate to a non-negative count"}
	}
	if err := e.limits.checkArrayLength(count); err != nil {
		return nil, err
	}

	elemType := f.Type.Elem()
	out := reflect.MakeSlice(f.Type, count, count)

	for i := 0; i < count; i++ {
		val, err := e.decodeBindingValue(tpl, f, f.CollectionBinding, elemType, r, ctx)
		if err != nil {
			return nil, err
		}
		if err := assign(out.Index(i), val); err != nil {
			return nil, err
		}
	}

	return out.Interface(), nil
}

func (e *Engine) encodeArray(tpl *Template, f *TemplateField, w *bitio.Writer, ctx *ParserContext, val any) error {
	v := reflect.ValueOf(val)
	for i := 0; i < v.Len(); i++ {
		elem := v.Index(i).Interface()
		if err := e.encodeBindingValue(tpl, f, f.CollectionBinding, f.Type.Elem(), w, ctx, elem); err != nil {
			return err
		}
	}
	return nil
}

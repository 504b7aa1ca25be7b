package boxon

import (
	"reflect"
	"strings"

	"github.com/kungfusheep/boxon/bitio"
)

// decodeObject resolves b's concrete type (directly, or via SelectFrom
// variant dispatch), lazily fetches that type's Template from the Engine's
// Store, and recursively decodes it (§4.5, §9's lazy sub-template
// resolution). It does not build a missing Template: a type that was not
// registered is a TemplateError.
func (e *Engine) decodeObject(tpl *Template, b *Binding, fieldType reflect.Type, r *bitio.Reader, ctx *ParserContext) (any, error) {
	target := b.Type
	var prefix any

	if b.SelectFrom != nil {
		sel := b.SelectFrom
		var prefixVal uint64
		if sel.PrefixSize > 0 {
			prefixVal = r.ReadBits(sel.PrefixSize, sel.BitOrder)
			prefix = prefixVal
		}

		var matched reflect.Type
		for _, alt := range sel.Alternatives {
			vars := ctx.activation(prefix)
			vars["prefix"] = prefix
			ok, err := tpl.evaluator.EvalBool(alt.Condition, vars)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = alt.Type
				break
			}
		}
		if matched == nil {
			matched = sel.SelectDefault
		}
		if matched == nil {
			return nil, &CodecError{Kind: "OBJECT", Type: fieldType.String(), Message: "no alternative matched and no default was configured"}
		}
		target = matched
	}

	if target == nil {
		target = fieldType
	}

	sub, err := e.store.GetOrBuild(target, func() (*Template, error) {
		return nil, &TemplateError{Template: target.String(), Message: "no template registered for nested object type; register it before decoding the parent"}
	})
	if err != nil {
		return nil, err
	}

	out := reflect.New(target).Elem()
	childCtx := ctx.child(out)
	if err := e.decodeBody(sub, r, childCtx); err != nil {
		return nil, err
	}

	return out.Interface(), nil
}

func (e *Engine) encodeObject(tpl *Template, b *Binding, w *bitio.Writer, ctx *ParserContext, val any) error {
	v := reflect.ValueOf(val)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	// Post-processed fields on the nested template assign via
	// reflect.Value.Set, which requires an addressable target; val
	// arrived as a plain interface copy, so rebind it into one.
	addressable := reflect.New(v.Type()).Elem()
	addressable.Set(v)
	v = addressable
	target := v.Type()

	if b.SelectFrom != nil {
		sel := b.SelectFrom
		var matched *Alternative
		for i := range sel.Alternatives {
			if sel.Alternatives[i].Type == target {
				matched = &sel.Alternatives[i]
				break
			}
		}
		// Only write prefix bits when the matched alternative's condition
		// textually references prefix (§4.5 step 5); an alternative chosen
		// by a self/root condition gets no prefix bits on encode, even
		// though decodeObject reads PrefixSize bits whenever PrefixSize > 0.
		if sel.PrefixSize > 0 && matched != nil && strings.Contains(matched.Condition, "prefix") {
			w.WriteBits(matched.Prefix, sel.PrefixSize, sel.BitOrder)
		}
	}

	sub, err := e.store.GetOrBuild(target, func() (*Template, error) {
		return nil, &TemplateError{Template: target.String(), Message: "no template registered for nested object type; register it before encoding the parent"}
	})
	if err != nil {
		return err
	}

	childCtx := ctx.child(v)
	return e.encodeBody(sub, w, childCtx)
}

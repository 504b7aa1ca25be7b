package boxon

import (
	"github.com/kungfusheep/boxon/bitio"
)

// runSkipsDecode executes skips in order against r, consulting ctx for
// each skip's Condition (§4.6).
func runSkipsDecode(skips []SkipDescriptor, r *bitio.Reader, ctx *ParserContext, ev evaluator, limits DecodeLimits) error {
	for _, s := range skips {
		ok, err := ev.EvalBool(s.Condition, ctx.activation(nil))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		switch s.Kind {
		case SkipBits:
			n := ev.EvalSize(s.SizeExpr, ctx.activation(nil))
			if n < 0 {
				return &DataError{Message: "SKIP_BITS size expression did not evaluate to a non-negative size"}
			}
			if err := limits.checkSkipBits(uint64(n)); err != nil {
				return err
			}
			r.Skip(uint64(n))

		case SkipUntil:
			found := r.SkipUntilTerminator(s.Terminator)
			if !found {
				return &DataError{Message: "SKIP_UNTIL terminator not found"}
			}
			if s.ConsumeTerminator {
				r.Skip(8)
			}

		default:
			return &AnnotationError{Message: "unknown skip kind"}
		}
	}
	return nil
}

// runSkipsEncode is the encode-side mirror: SKIP_BITS zero-fills n bits;
// SKIP_UNTIL writes the terminator byte (and nothing else) when
// ConsumeTerminator is set, since on encode there is nothing to "scan
// past" but the terminator itself still needs to be on the wire.
func runSkipsEncode(skips []SkipDescriptor, w *bitio.Writer, ctx *ParserContext, ev evaluator) error {
	for _, s := range skips {
		ok, err := ev.EvalBool(s.Condition, ctx.activation(nil))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		switch s.Kind {
		case SkipBits:
			n := ev.EvalSize(s.SizeExpr, ctx.activation(nil))
			if n < 0 {
				return &EncodeError{Message: "SKIP_BITS size expression did not evaluate to a non-negative size"}
			}
			w.SkipBits(uint64(n))

		case SkipUntil:
			if s.ConsumeTerminator {
				w.WriteByte(s.Terminator)
			}

		default:
			return &AnnotationError{Message: "unknown skip kind"}
		}
	}
	return nil
}

// evaluator is the subset of *expr.Evaluator the engine's internals
// depend on, narrowed to ease testing with a fake.
type evaluator interface {
	EvalBool(expression string, vars map[string]any) (bool, error)
	EvalSize(expression string, vars map[string]any) int
	Eval(expression string, vars map[string]any) (any, error)
}

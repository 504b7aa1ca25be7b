// Package expr implements the §6 "expression evaluator contract" the core
// engine treats as an external collaborator: evaluate a boolean, sized, or
// typed expression against a named context. It wraps github.com/google/cel-go
// (pulled into the retrieved pack by yaninyzwitty-hyperpb-go, which leans on
// CEL for exactly this shape of "evaluate an expression against a typed
// context" when validating protobuf messages).
package expr

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Evaluator compiles and caches CEL programs for one template's declared
// set of variable names. One Evaluator is built per Template at compile
// time (see builder.go), not per call.
type Evaluator struct {
	env *cel.Env

	mu    sync.Mutex
	cache map[string]cel.Program
}

// New builds an Evaluator with one dynamically-typed variable per name in
// names, plus the reserved "self", "root" and "prefix" context entries
// §3 names. Duplicate or reserved names in names are ignored.
func New(names []string) (*Evaluator, error) {
	declared := map[string]struct{}{"self": {}, "root": {}, "prefix": {}}
	opts := []cel.EnvOption{
		cel.Variable("self", cel.DynType),
		cel.Variable("root", cel.DynType),
		cel.Variable("prefix", cel.DynType),
	}

	for _, n := range names {
		if n == "" {
			continue
		}
		if _, seen := declared[n]; seen {
			continue
		}
		declared[n] = struct{}{}
		opts = append(opts, cel.Variable(n, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("expr: building evaluation environment: %w", err)
	}

	return &Evaluator{env: env, cache: make(map[string]cel.Program)}, nil
}

// program compiles expression into a cel.Program, or returns a cached one.
func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("expr: compiling %q: %w", expression, iss.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("expr: building program for %q: %w", expression, err)
	}

	e.cache[expression] = prg
	return prg, nil
}

// Eval evaluates expression against vars and returns its native Go value,
// per the §6 `evaluate(expr, context_root, expected_type)` contract
// (expected_type is enforced by the caller on the returned value, via
// reflect, not by the evaluator itself).
func (e *Evaluator) Eval(expression string, vars map[string]any) (any, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("expr: evaluating %q: %w", expression, err)
	}

	return out.Value(), nil
}

// EvalBool evaluates a condition expression. An empty expression always
// evaluates true, matching the §6 evaluate_boolean contract.
func (e *Evaluator) EvalBool(expression string, vars map[string]any) (bool, error) {
	if expression == "" {
		return true, nil
	}

	v, err := e.Eval(expression, vars)
	if err != nil {
		return false, err
	}

	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expr: expression %q did not evaluate to a boolean, got %T", expression, v)
	}
	return b, nil
}

// NoSize is the sentinel EvalSize returns for an empty or invalid size
// expression, per the §6 evaluate_size contract ("a non-positive sentinel
// interpreted by callers as no size").
const NoSize = -1

// EvalSize evaluates a size expression to an int. An empty expression, an
// evaluation error, or a non-numeric result all return NoSize.
func (e *Evaluator) EvalSize(expression string, vars map[string]any) int {
	if expression == "" {
		return NoSize
	}

	v, err := e.Eval(expression, vars)
	if err != nil {
		return NoSize
	}

	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case uint64:
		return int(n)
	case uint:
		return int(n)
	case float64:
		return int(n)
	default:
		return NoSize
	}
}

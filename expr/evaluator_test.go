package expr

import "testing"

func TestEvalBoolEmptyIsAlwaysTrue(t *testing.T) {
	e, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ok, err := e.EvalBool("", nil)
	if err != nil {
		t.Fatalf("EvalBool(\"\") error = %v", err)
	}
	if !ok {
		t.Fatal("EvalBool(\"\") = false, want true")
	}
}

func TestEvalBoolAgainstSelf(t *testing.T) {
	e, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	vars := map[string]any{
		"self": map[string]any{"Flag": true},
		"root": map[string]any{},
		"prefix": nil,
	}
	ok, err := e.EvalBool(`self.Flag == true`, vars)
	if err != nil {
		t.Fatalf("EvalBool() error = %v", err)
	}
	if !ok {
		t.Fatal("EvalBool(self.Flag == true) = false, want true")
	}
}

func TestEvalSize(t *testing.T) {
	e, err := New([]string{"length"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	got := e.EvalSize("length + 2", map[string]any{"length": int64(3), "self": map[string]any{}, "root": map[string]any{}, "prefix": nil})
	if got != 5 {
		t.Fatalf("EvalSize(length + 2) = %d, want 5", got)
	}
}

func TestEvalSizeEmptyIsNoSize(t *testing.T) {
	e, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := e.EvalSize("", nil); got != NoSize {
		t.Fatalf("EvalSize(\"\") = %d, want NoSize", got)
	}
}

func TestProgramCacheReused(t *testing.T) {
	e, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	vars := map[string]any{"self": map[string]any{}, "root": map[string]any{}, "prefix": nil}
	if _, err := e.Eval("1 + 1", vars); err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if len(e.cache) != 1 {
		t.Fatalf("len(cache) = %d, want 1", len(e.cache))
	}
	if _, err := e.Eval("1 + 1", vars); err != nil {
		t.Fatalf("Eval() second call error = %v", err)
	}
	if len(e.cache) != 1 {
		t.Fatalf("len(cache) after repeat eval = %d, want 1 (should reuse cached program)", len(e.cache))
	}
}

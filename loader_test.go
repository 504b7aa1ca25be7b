package boxon

import "testing"

type pingMsg struct{ Seq uint8 }
type pongMsg struct{ Seq uint8 }
type extPingMsg struct{ Seq uint8 }

func buildHeaderedTemplate[T any](t *testing.T, start []byte) *Template {
	t.Helper()
	tpl, err := NewTemplateBuilder[T]().
		WithHeader(Header{Start: [][]byte{start}}).
		Field("Seq", Binding{Kind: BindingPrimitive}).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return tpl
}

func TestLoaderDispatchByHeaderPrefix(t *testing.T) {
	pingTpl := buildHeaderedTemplate[pingMsg](t, []byte("PING"))
	pongTpl := buildHeaderedTemplate[pongMsg](t, []byte("PONG"))

	loader := NewLoader()
	if err := loader.Register(pingTpl); err != nil {
		t.Fatalf("Register(ping) error = %v", err)
	}
	if err := loader.Register(pongTpl); err != nil {
		t.Fatalf("Register(pong) error = %v", err)
	}

	got, err := loader.Dispatch([]byte("PONG\x05"))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got != pongTpl {
		t.Fatalf("Dispatch() = %v, want pongTpl", got.Name())
	}

	if _, err := loader.Dispatch([]byte("XXXX\x05")); err == nil {
		t.Fatal("Dispatch() with unknown header = nil error, want TemplateError")
	}
}

func TestLoaderDuplicateStartRejected(t *testing.T) {
	a := buildHeaderedTemplate[pingMsg](t, []byte("DUP"))
	b := buildHeaderedTemplate[pongMsg](t, []byte("DUP"))

	loader := NewLoader()
	if err := loader.Register(a); err != nil {
		t.Fatalf("Register(a) error = %v", err)
	}
	if err := loader.Register(b); err == nil {
		t.Fatal("Register(b) with duplicate start = nil error, want TemplateError")
	}
}

// A short start sequence registered before a longer one that shares it as a
// prefix must still lose to the longer, more specific match (§4.2, §8
// property 2: header priority).
func TestLoaderDispatchPrefersLongerPrefix(t *testing.T) {
	shortTpl := buildHeaderedTemplate[pingMsg](t, []byte("PI"))
	longTpl := buildHeaderedTemplate[extPingMsg](t, []byte("PING"))

	loader := NewLoader()
	if err := loader.Register(shortTpl); err != nil {
		t.Fatalf("Register(short) error = %v", err)
	}
	if err := loader.Register(longTpl); err != nil {
		t.Fatalf("Register(long) error = %v", err)
	}

	got, err := loader.Dispatch([]byte("PING\x07"))
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got != longTpl {
		t.Fatalf("Dispatch() = %v, want longTpl (longer prefix should win over its own prefix)", got.Name())
	}
}

func TestFindNextMessageIndex(t *testing.T) {
	pingTpl := buildHeaderedTemplate[pingMsg](t, []byte("PING"))
	loader := NewLoader()
	if err := loader.Register(pingTpl); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	stream := []byte("garbagePING\x09moregarbage")
	idx, tpl, found := loader.FindNextMessageIndex(stream, 0)
	if !found {
		t.Fatal("FindNextMessageIndex() found = false, want true")
	}
	if idx != len("garbage") {
		t.Fatalf("FindNextMessageIndex() idx = %d, want %d", idx, len("garbage"))
	}
	if tpl != pingTpl {
		t.Fatalf("FindNextMessageIndex() tpl = %v, want pingTpl", tpl.Name())
	}
}

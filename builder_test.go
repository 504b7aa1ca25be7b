package boxon

import "testing"

// An empty bounded-field list makes a template ill-formed (§3, §4.1 step 5).
func TestBuildRejectsEmptyBoundedFields(t *testing.T) {
	type Empty struct{ Unused uint8 }

	_, err := NewTemplateBuilder[Empty]().Build()
	if err == nil {
		t.Fatal("Build() with no fields = nil error, want AnnotationError")
	}
	if _, ok := err.(*AnnotationError); !ok {
		t.Fatalf("Build() error type = %T, want *AnnotationError", err)
	}
}

package sanitizer

import (
	"reflect"
	"testing"
)

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "basic trim", input: "  hello  ", want: "hello"},
		{name: "multiple spaces", input: "hello    world", want: "hello world"},
		{name: "tabs and newlines", input: "hello\t\nworld", want: "hello world"},
		{name: "control characters", input: "bring\x00 mat", want: "bring mat"},
		{name: "empty", input: "", want: ""},
		{name: "only whitespace", input: "   ", want: ""},
		{name: "preserve special characters", input: " Café & Spa™ ", want: "Café & Spa™"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrimAndNormalize(tt.input)
			if got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := TrimAndNormalize(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalizeNotes(t *testing.T) {
	got := NormalizeNotes("  first   line \n\t second line  ")
	if got != "first line\nsecond line" {
		t.Errorf("NormalizeNotes = %q", got)
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hot Yoga", "hot_yoga"},
		{"hot-yoga", "hot_yoga"},
		{"  HIIT  ", "hiit"},
		{"Pilates (Reformer)", "pilates_reformer"},
		{"--", ""},
	}

	for _, tt := range tests {
		if got := SanitizeLabel(tt.input); got != tt.want {
			t.Errorf("SanitizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"yoga", "spin", "yoga", "barre", "spin"})
	want := []string{"yoga", "spin", "barre"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe = %v, want %v", got, want)
	}
	if got := Dedupe[int](nil); len(got) != 0 || got == nil {
		t.Errorf("Dedupe(nil) = %#v", got)
	}
}

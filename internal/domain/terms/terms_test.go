package terms

import (
	"reflect"
	"testing"
)

func TestParse_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"json array", "Here you go:\n[\"cat sleeping\", \"kitten play\"]", []string{"cat sleeping", "kitten play"}},
		{"quoted", `1. "cat sleeping" 2. "kitten play"`, []string{"cat sleeping", "kitten play"}},
		{"lines", "- cat sleeping\n- kitten play, tabby", []string{"cat sleeping", "kitten play", " tabby"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClean_DedupesAndCaps(t *testing.T) {
	got := Clean([]string{" Cat  sleeping ", "cat sleeping", "\"kitten\"", "", "tabby", "lion"}, 3)
	want := []string{"Cat sleeping", "kitten", "tabby"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Clean() = %#v, want %#v", got, want)
	}
}

func TestFallbackQueries(t *testing.T) {
	want := []string{"cats", "cats nature", "cats background", "cats stock", "cats video"}
	if got := FallbackQueries("cats"); !reflect.DeepEqual(got, want) {
		t.Fatalf("FallbackQueries() = %#v", got)
	}
}

func TestPicker_OneURLPerTermWithoutRepeats(t *testing.T) {
	p := NewPicker()
	u1, ok := p.Pick([]string{"a", "b"})
	if !ok || u1 != "a" {
		t.Fatalf("first pick = %q, %v", u1, ok)
	}
	u2, ok := p.Pick([]string{"a", "c"})
	if !ok || u2 != "c" {
		t.Fatalf("second pick = %q, %v", u2, ok)
	}
	if _, ok := p.Pick([]string{"a", "c"}); ok {
		t.Fatal("expected no pick when every candidate was used")
	}
}

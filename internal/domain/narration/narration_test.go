package narration

import (
	"reflect"
	"testing"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

func TestSplitSentences_Table(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Cats are curious. They nap a lot. The end.", []string{"Cats are curious", "They nap a lot", "The end."}},
		{"line breaks", "**Cats** are curious.\n\nThey nap.", []string{"Cats are curious", "They nap."}},
		{"empty pieces dropped", "One. . Two.", []string{"One", "Two."}},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitSentences(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitSentences(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTotalAndPaths(t *testing.T) {
	pairs := []types.SentenceAudio{
		{Sentence: "a", Path: "a.mp3", Duration: 2 * time.Second},
		{Sentence: "b", Path: "b.mp3", Duration: 3500 * time.Millisecond},
	}
	if got := Total(pairs); got != 5500*time.Millisecond {
		t.Fatalf("Total() = %s", got)
	}
	if got := Paths(pairs); !reflect.DeepEqual(got, []string{"a.mp3", "b.mp3"}) {
		t.Fatalf("Paths() = %v", got)
	}
}

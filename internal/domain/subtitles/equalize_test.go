package subtitles

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

func TestEqualize_WrapsWithinBudget(t *testing.T) {
	cues := []types.Cue{
		{Index: 1, Start: 0, End: 2 * time.Second, Text: "Hello world from Go"},
		{Index: 2, Start: 2 * time.Second, End: 3 * time.Second, Text: "supercalifragilistic is long"},
	}
	got := Equalize(cues, 10)
	if got[0].Text != "Hello\nworld from\nGo" {
		t.Fatalf("unexpected wrap: %q", got[0].Text)
	}
	if got[1].Text != "supercalifragilistic\nis long" {
		t.Fatalf("unexpected wrap: %q", got[1].Text)
	}
	for i := range got {
		if got[i].Start != cues[i].Start || got[i].End != cues[i].End || got[i].Index != cues[i].Index {
			t.Fatalf("timing changed for cue %d", i)
		}
	}
	for _, ln := range strings.Split(got[0].Text, "\n") {
		if len([]rune(ln)) > 10 {
			t.Fatalf("line %q exceeds budget", ln)
		}
	}
}

func TestEqualize_Idempotent(t *testing.T) {
	cues := []types.Cue{{Index: 1, Start: 0, End: time.Second, Text: "the quick brown fox jumps over the lazy dog"}}
	once := Equalize(cues, 10)
	twice := Equalize(once, 10)
	if once[0].Text != twice[0].Text {
		t.Fatalf("not idempotent:\n%q\n%q", once[0].Text, twice[0].Text)
	}
}

func TestEqualizeFile_KeepsCueCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subs.srt")
	in := []types.Cue{
		{Index: 1, Start: 0, End: 2 * time.Second, Text: "Cats are curious animals."},
		{Index: 2, Start: 2 * time.Second, End: 5 * time.Second, Text: "Ok."},
	}
	if err := WriteFile(path, in); err != nil {
		t.Fatal(err)
	}
	if err := EqualizeFile(path, 10); err != nil {
		t.Fatal(err)
	}
	out, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Fatalf("cue count changed: %d -> %d", len(in), len(out))
	}
	if out[0].Text != "Cats are\ncurious\nanimals." {
		t.Fatalf("unexpected text: %q", out[0].Text)
	}
}

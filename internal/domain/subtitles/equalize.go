package subtitles

import (
	"strings"

	"github.com/forPelevin/mkshorts/internal/types"
)

// DefaultMaxChars is the per-line budget for burned-in cues on a 1080px wide frame.
const DefaultMaxChars = 10

// Equalize reflows every cue so no line exceeds maxChars runes, breaking on
// word boundaries. Cue count, indices and timing are untouched; a single
// word longer than the budget gets a line of its own. Reflowing an already
// equalized list is a no-op.
func Equalize(cues []types.Cue, maxChars int) []types.Cue {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	out := make([]types.Cue, len(cues))
	for i, c := range cues {
		c.Text = strings.Join(wrap(c.Text, maxChars), "\n")
		out[i] = c
	}
	return out
}

// EqualizeFile rewrites the cue file at path in place.
func EqualizeFile(path string, maxChars int) error {
	cues, err := ReadFile(path)
	if err != nil {
		return err
	}
	return WriteFile(path, Equalize(cues, maxChars))
}

func wrap(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var (
		lines  []string
		cur    strings.Builder
		curLen int
	)
	for _, w := range words {
		wl := len([]rune(w))
		if curLen > 0 && curLen+1+wl > maxChars {
			lines = append(lines, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(w)
		curLen += wl
	}
	if curLen > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

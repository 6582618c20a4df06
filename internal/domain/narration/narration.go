package narration

import (
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

var markdown = strings.NewReplacer("*", "", "#", "", "`", "")

// CleanScript strips markdown markers from model output and collapses all
// whitespace, so sentence boundaries that fell on a line break still split.
func CleanScript(s string) string {
	return strings.Join(strings.Fields(markdown.Replace(s)), " ")
}

// SplitSentences splits on ". " and drops empty pieces. Order is narration order.
func SplitSentences(script string) []string {
	var out []string
	for _, s := range strings.Split(CleanScript(script), ". ") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Total is the sum of all sentence audio durations.
func Total(pairs []types.SentenceAudio) time.Duration {
	var d time.Duration
	for _, p := range pairs {
		d += p.Duration
	}
	return d
}

// Paths returns the audio files in narration order.
func Paths(pairs []types.SentenceAudio) []string {
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Path)
	}
	return out
}

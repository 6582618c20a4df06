package subtitles

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

// Local builds cues by running a cumulative sum over per-sentence durations:
// each cue starts where the previous one ended.
func Local(sentences []string, durations []time.Duration) ([]types.Cue, error) {
	if len(sentences) != len(durations) {
		return nil, fmt.Errorf("subtitles: %d sentences but %d audio durations", len(sentences), len(durations))
	}
	cues := make([]types.Cue, 0, len(sentences))
	var start time.Duration
	for i, s := range sentences {
		if durations[i] < 0 {
			return nil, fmt.Errorf("subtitles: sentence %d has negative duration %s", i+1, durations[i])
		}
		end := start + durations[i]
		cues = append(cues, types.Cue{Index: i + 1, Start: start, End: end, Text: strings.TrimSpace(s)})
		start = end
	}
	return cues, nil
}

// FormatTime renders H:MM:SS,f rounded to milliseconds with trailing zeros
// trimmed. Whole seconds keep a single ",0".
func FormatTime(d time.Duration) string {
	d = d.Round(time.Millisecond)
	if d <= 0 {
		return "0:00:00,0"
	}
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second

	base := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	ms := int64(d / time.Millisecond)
	if ms == 0 {
		return base + ",0"
	}
	return base + "," + strings.TrimRight(fmt.Sprintf("%03d", ms), "0")
}

// ParseTime accepts both the short form written by FormatTime and the
// conventional HH:MM:SS,mmm (a '.' separator is tolerated too).
func ParseTime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid subtitle time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", s, err)
	}

	secPart, fracPart := parts[2], ""
	if i := strings.IndexAny(secPart, ",."); i >= 0 {
		secPart, fracPart = secPart[:i], secPart[i+1:]
	}
	sec, err := strconv.Atoi(secPart)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", s, err)
	}

	var frac time.Duration
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		ns, err := strconv.Atoi(fracPart)
		if err != nil {
			return 0, fmt.Errorf("invalid fraction in %q: %w", s, err)
		}
		frac = time.Duration(ns)
	}

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second + frac, nil
}

// Encode writes numbered "index / time-range / text" records separated by a
// blank line.
func Encode(cues []types.Cue) string {
	records := make([]string, 0, len(cues))
	for _, c := range cues {
		records = append(records, fmt.Sprintf("%d\n%s --> %s\n%s\n", c.Index, FormatTime(c.Start), FormatTime(c.End), c.Text))
	}
	return strings.Join(records, "\n")
}

func Decode(s string) ([]types.Cue, error) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimPrefix(s, "\ufeff")

	var cues []types.Cue
	for _, block := range splitBlocks(s) {
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return nil, fmt.Errorf("malformed subtitle record %q", block)
		}
		idx, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed subtitle index %q: %w", lines[0], err)
		}
		start, end, ok := strings.Cut(lines[1], "-->")
		if !ok {
			return nil, fmt.Errorf("malformed time range %q", lines[1])
		}
		st, err := ParseTime(start)
		if err != nil {
			return nil, err
		}
		en, err := ParseTime(end)
		if err != nil {
			return nil, err
		}
		cues = append(cues, types.Cue{
			Index: idx,
			Start: st,
			End:   en,
			Text:  strings.TrimSpace(strings.Join(lines[2:], "\n")),
		})
	}
	return cues, nil
}

func splitBlocks(s string) []string {
	var (
		out []string
		cur []string
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(ln, " \t"))
	}
	flush()
	return out
}

func WriteFile(path string, cues []types.Cue) error {
	return os.WriteFile(path, []byte(Encode(cues)), 0o644)
}

func ReadFile(path string) ([]types.Cue, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cues, err := Decode(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cues) == 0 {
		return nil, errors.New("subtitles: no cues in " + path)
	}
	return cues, nil
}

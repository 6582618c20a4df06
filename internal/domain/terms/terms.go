package terms

import (
	"encoding/json"
	"regexp"
	"strings"
)

// DefaultCount is how many search terms are requested per script.
const DefaultCount = 5

var (
	reArray  = regexp.MustCompile(`(?s)\[.*?\]`)
	reQuoted = regexp.MustCompile(`"([^"]+)"`)
	reBullet = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
)

// fallbackSuffixes widen a stock query that returned nothing.
var fallbackSuffixes = []string{"", " nature", " background", " stock", " video"}

// Parse extracts a term list from model output. It prefers a JSON array of
// strings, then any quoted strings, then one term per line or comma.
func Parse(text string) []string {
	text = strings.TrimSpace(text)
	if m := reArray.FindString(text); m != "" {
		var arr []string
		if err := json.Unmarshal([]byte(m), &arr); err == nil {
			return arr
		}
	}
	if qs := reQuoted.FindAllStringSubmatch(text, -1); len(qs) > 0 {
		out := make([]string, 0, len(qs))
		for _, q := range qs {
			out = append(out, q[1])
		}
		return out
	}
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		for _, part := range strings.Split(ln, ",") {
			part = reBullet.ReplaceAllString(part, "")
			if strings.TrimSpace(part) != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Clean trims, unquotes and case-insensitively dedupes terms, keeping first
// occurrence order. max <= 0 means no cap.
func Clean(raw []string, max int) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, t := range raw {
		t = strings.Trim(strings.TrimSpace(t), `"'.`)
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// FallbackQueries lists the queries tried for term, most specific first.
func FallbackQueries(term string) []string {
	out := make([]string, 0, len(fallbackSuffixes))
	for _, s := range fallbackSuffixes {
		out = append(out, term+s)
	}
	return out
}

// Picker keeps at most one URL per term and never repeats a URL across terms.
type Picker struct {
	seen map[string]bool
}

func NewPicker() *Picker { return &Picker{seen: map[string]bool{}} }

// Pick returns the first candidate not chosen before.
func (p *Picker) Pick(candidates []string) (string, bool) {
	for _, u := range candidates {
		if u == "" || p.seen[u] {
			continue
		}
		p.seen[u] = true
		return u, true
	}
	return "", false
}

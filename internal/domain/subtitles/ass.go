package subtitles

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

const styleName = "Shorts"

// RenderASS turns timed cues into a styled overlay script sized for the
// 1080x1920 output frame. Multi-line cue text keeps its line breaks.
func RenderASS(cues []types.Cue, st types.SubtitleStyle) (string, error) {
	primary, err := assColor(st.Color)
	if err != nil {
		return "", fmt.Errorf("subtitle color: %w", err)
	}
	back, err := assColor(st.Background)
	if err != nil {
		return "", fmt.Errorf("subtitle background: %w", err)
	}
	align, err := alignment(st.Position)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(assHeader(st, primary, back, align))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		if c.End <= c.Start {
			continue
		}
		lines := strings.Split(c.Text, "\n")
		for i := range lines {
			lines[i] = sanitizeASS(lines[i])
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(c.Start))
		b.WriteString(",")
		b.WriteString(assTime(c.End))
		b.WriteString(",")
		b.WriteString(styleName)
		b.WriteString(",,0,0,0,,")
		b.WriteString(strings.Join(lines, "\\N"))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func assHeader(st types.SubtitleStyle, primary, back string, align int) string {
	font := st.Font
	if font == "" {
		font = "Arial"
	}
	size := st.FontSize
	if size <= 0 {
		size = 100
	}
	stroke := st.Stroke
	if stroke < 0 {
		stroke = 0
	}
	marginV := 0
	if align <= 3 || align >= 7 {
		marginV = 160
	}
	// BorderStyle 4 draws the BackColour box behind the outlined glyphs.
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 2
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: %s, %s, %d, %s, %s, &H00000000, %s, 1,0,0,0,100,100,0,0,4,%d,0,%d, 60,60,%d,1
`, types.OutputWidth, types.OutputHeight, styleName, font, size, primary, primary, back, stroke, align, marginV))
}

// alignment maps "horizontal,vertical" onto the numpad layout ASS uses.
func alignment(pos string) (int, error) {
	if strings.TrimSpace(pos) == "" {
		return 5, nil
	}
	h, v, ok := strings.Cut(strings.ToLower(pos), ",")
	if !ok {
		return 0, fmt.Errorf("subtitle position %q: want \"horizontal,vertical\"", pos)
	}
	var col int
	switch strings.TrimSpace(h) {
	case "left":
		col = 0
	case "center", "centre":
		col = 1
	case "right":
		col = 2
	default:
		return 0, fmt.Errorf("subtitle position %q: unknown horizontal %q", pos, h)
	}
	var row int
	switch strings.TrimSpace(v) {
	case "bottom":
		row = 1
	case "center", "centre":
		row = 4
	case "top":
		row = 7
	default:
		return 0, fmt.Errorf("subtitle position %q: unknown vertical %q", pos, v)
	}
	return row + col, nil
}

var namedColors = map[string][3]int{
	"white":  {255, 255, 255},
	"black":  {0, 0, 0},
	"yellow": {255, 255, 0},
	"red":    {255, 0, 0},
	"green":  {0, 128, 0},
	"blue":   {0, 0, 255},
}

// assColor converts "#RRGGBB", "#RRGGBBAA", "rgb(r, g, b)", "rgba(r, g, b, a)"
// or a basic color name into &HAABBGGRR. ASS alpha is inverted: 00 is opaque.
// An rgba alpha may be given as 0..255 or as a 0..1 fraction.
func assColor(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none", "transparent":
		return "&HFF000000", nil
	}
	if rgb, ok := namedColors[s]; ok {
		return packColor(rgb[0], rgb[1], rgb[2], 255), nil
	}

	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 && len(hex) != 8 {
			return "", fmt.Errorf("invalid hex color %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return "", fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		if len(hex) == 6 {
			return packColor(int(v>>16&0xff), int(v>>8&0xff), int(v&0xff), 255), nil
		}
		return packColor(int(v>>24&0xff), int(v>>16&0xff), int(v>>8&0xff), int(v&0xff)), nil
	}

	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return "", fmt.Errorf("unsupported color %q", s)
	}
	fn := s[:open]
	args := strings.Split(s[open+1:len(s)-1], ",")
	if (fn == "rgb" && len(args) != 3) || (fn == "rgba" && len(args) != 4) || (fn != "rgb" && fn != "rgba") {
		return "", fmt.Errorf("unsupported color %q", s)
	}
	var ch [3]int
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(args[i]))
		if err != nil || n < 0 || n > 255 {
			return "", fmt.Errorf("invalid channel %q in %q", args[i], s)
		}
		ch[i] = n
	}
	alpha := 255
	if fn == "rgba" {
		a, err := parseAlpha(strings.TrimSpace(args[3]))
		if err != nil {
			return "", fmt.Errorf("invalid alpha in %q: %w", s, err)
		}
		alpha = a
	}
	return packColor(ch[0], ch[1], ch[2], alpha), nil
}

func parseAlpha(s string) (int, error) {
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || f > 1 {
			return 0, fmt.Errorf("alpha %q out of range", s)
		}
		return int(f*255 + 0.5), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("alpha %q out of range", s)
	}
	return n, nil
}

func packColor(r, g, b, alpha int) string {
	return fmt.Sprintf("&H%02X%02X%02X%02X", 255-alpha, b, g, r)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

func defaultStyle() types.SubtitleStyle {
	return types.SubtitleStyle{
		Font:       "Bangers",
		FontSize:   100,
		Color:      "#FFFFFF",
		Background: "rgba(0, 0, 0, 180)",
		Position:   "center,center",
		Stroke:     5,
	}
}

func TestRenderASS_StyleAndEvents(t *testing.T) {
	cues := []types.Cue{
		{Index: 1, Start: 0, End: 2 * time.Second, Text: "Cats are\ncurious"},
		{Index: 2, Start: 2 * time.Second, End: 5500 * time.Millisecond, Text: "{bold} move"},
	}
	ass, err := RenderASS(cues, defaultStyle())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"PlayResX: 1080",
		"PlayResY: 1920",
		"Style: Shorts, Bangers, 100, &H00FFFFFF, &H00FFFFFF, &H00000000, &H4B000000, 1,0,0,0,100,100,0,0,4,5,0,5,",
		"Dialogue: 0,0:00:00.00,0:00:02.00,Shorts,,0,0,0,,Cats are\\Ncurious",
		"Dialogue: 0,0:00:02.00,0:00:05.50,Shorts,,0,0,0,,(bold) move",
	} {
		if !strings.Contains(ass, want) {
			t.Fatalf("expected %q in ASS, got:\n%s", want, ass)
		}
	}
}

func TestRenderASS_SkipsEmptyCues(t *testing.T) {
	ass, err := RenderASS([]types.Cue{{Index: 1, Start: time.Second, End: time.Second, Text: "gone"}}, defaultStyle())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(ass, "Dialogue:") {
		t.Fatalf("zero-length cue should be dropped:\n%s", ass)
	}
}

func TestRenderASS_RejectsBadStyle(t *testing.T) {
	st := defaultStyle()
	st.Color = "#GG0000"
	if _, err := RenderASS(nil, st); err == nil {
		t.Fatal("expected color error")
	}
	st = defaultStyle()
	st.Position = "middle"
	if _, err := RenderASS(nil, st); err == nil {
		t.Fatal("expected position error")
	}
}

func TestAssColor_Table(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#FFFFFF", "&H00FFFFFF"},
		{"#FF8000", "&H000080FF"},
		{"#FF000080", "&H7F0000FF"},
		{"rgba(0, 0, 0, 180)", "&H4B000000"},
		{"rgba(255, 255, 255, 0.5)", "&H7FFFFFFF"},
		{"rgb(10, 20, 30)", "&H001E140A"},
		{"yellow", "&H0000FFFF"},
		{"transparent", "&HFF000000"},
		{"", "&HFF000000"},
	}
	for _, tt := range tests {
		got, err := assColor(tt.in)
		if err != nil {
			t.Fatalf("assColor(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("assColor(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestAlignment_Table(t *testing.T) {
	tests := map[string]int{
		"center,center": 5,
		"center,bottom": 2,
		"left,top":      7,
		"right,bottom":  3,
		"":              5,
	}
	for in, want := range tests {
		got, err := alignment(in)
		if err != nil {
			t.Fatalf("alignment(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("alignment(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}

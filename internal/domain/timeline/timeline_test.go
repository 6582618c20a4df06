package timeline

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

func clip(name string, d time.Duration) types.SourceClip {
	return types.SourceClip{Path: name, Duration: d, Width: 1920, Height: 1080, FPS: 30}
}

func TestBuild_TwoClipsSevenSeconds(t *testing.T) {
	pool := []types.SourceClip{clip("a.mp4", 8*time.Second), clip("b.mp4", 8*time.Second)}
	tl, err := Build(pool, 7*time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(tl.Segments) > 2 {
		t.Fatalf("expected at most 2 segments, got %d", len(tl.Segments))
	}
	if tl.Duration() < 7*time.Second {
		t.Fatalf("timeline too short: %s", tl.Duration())
	}
	if tl.Segments[0].Source.Path != "a.mp4" || tl.Segments[1].Source.Path != "b.mp4" {
		t.Fatalf("expected pool order, got %s then %s", tl.Segments[0].Source.Path, tl.Segments[1].Source.Path)
	}
	for _, s := range tl.Segments {
		if s.Duration != 3500*time.Millisecond {
			t.Fatalf("expected 3.5s segments, got %s", s.Duration)
		}
	}
}

func TestBuild_CoverageProperty(t *testing.T) {
	pools := [][]time.Duration{
		{8 * time.Second},
		{2 * time.Second, 3 * time.Second},
		{500 * time.Millisecond, 30 * time.Second, 4 * time.Second},
		{12 * time.Second, 12 * time.Second, 12 * time.Second, 12 * time.Second, 12 * time.Second},
	}
	targets := []time.Duration{time.Second, 7 * time.Second, 33*time.Second + 250*time.Millisecond, 95 * time.Second}

	for pi, durs := range pools {
		for _, target := range targets {
			t.Run(fmt.Sprintf("pool%d/%s", pi, target), func(t *testing.T) {
				var pool []types.SourceClip
				for i, d := range durs {
					pool = append(pool, clip(fmt.Sprintf("%d.mp4", i), d))
				}
				tl, err := Build(pool, target, 10*time.Second)
				if err != nil {
					t.Fatalf("build: %v", err)
				}
				var longest time.Duration
				for _, s := range tl.Segments {
					if s.Duration <= 0 {
						t.Fatalf("non-positive segment %s", s.Duration)
					}
					if s.Duration > 10*time.Second {
						t.Fatalf("segment exceeds cap: %s", s.Duration)
					}
					if s.Duration > longest {
						longest = s.Duration
					}
				}
				total := tl.Duration()
				if total < target {
					t.Fatalf("sum %s < target %s", total, target)
				}
				if total-target >= longest {
					t.Fatalf("overfill %s >= longest segment %s", total-target, longest)
				}
			})
		}
	}
}

func TestBuild_LoopsOverPool(t *testing.T) {
	pool := []types.SourceClip{clip("a.mp4", 2*time.Second), clip("b.mp4", 2*time.Second)}
	tl, err := Build(pool, 9*time.Second, 10*time.Second)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	want := []string{"a.mp4", "b.mp4", "a.mp4", "b.mp4", "a.mp4"}
	if len(tl.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %d", len(want), len(tl.Segments))
	}
	for i, s := range tl.Segments {
		if s.Source.Path != want[i] {
			t.Fatalf("segment %d: got %s, want %s", i, s.Source.Path, want[i])
		}
	}
	if last := tl.Segments[4].Duration; last != time.Second {
		t.Fatalf("expected last segment trimmed to 1s, got %s", last)
	}
}

func TestBuild_EmptyPoolIsFatal(t *testing.T) {
	tl, err := Build(nil, 7*time.Second, 10*time.Second)
	if !errors.Is(err, types.ErrFatalInput) {
		t.Fatalf("expected fatal input error, got %v", err)
	}
	if len(tl.Segments) != 0 {
		t.Fatalf("expected no timeline, got %d segments", len(tl.Segments))
	}
}

func TestBuild_ZeroDurationSourceIsFatal(t *testing.T) {
	_, err := Build([]types.SourceClip{clip("a.mp4", 0)}, 7*time.Second, 10*time.Second)
	if !errors.Is(err, types.ErrFatalInput) {
		t.Fatalf("expected fatal input error, got %v", err)
	}
}

func TestBuild_UnevenTargetHasNoSlivers(t *testing.T) {
	pool := []types.SourceClip{clip("a.mp4", 8*time.Second), clip("b.mp4", 8*time.Second), clip("c.mp4", 8*time.Second)}
	target := 7012345 * time.Microsecond
	tl, err := Build(pool, target, 10*time.Second)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(tl.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(tl.Segments), tl.Segments)
	}
	if tl.Duration() < target {
		t.Fatalf("timeline too short: %s < %s", tl.Duration(), target)
	}
}

func TestBuild_ShortRemainderIsAtLeastOneFrame(t *testing.T) {
	pool := []types.SourceClip{clip("a.mp4", 2*time.Second)}
	target := 2*time.Second + 100*time.Nanosecond
	tl, err := Build(pool, target, 10*time.Second)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if tl.Duration() < target {
		t.Fatalf("timeline too short: %s", tl.Duration())
	}
	for i, s := range tl.Segments {
		if s.Duration < time.Second/types.OutputFPS {
			t.Fatalf("segment %d is shorter than a frame: %s", i, s.Duration)
		}
	}
}

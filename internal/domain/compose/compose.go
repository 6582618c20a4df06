package compose

import (
	"fmt"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

// DriftTolerance is how far the visual track may deviate from the narration
// before the composition is flagged.
const DriftTolerance = 100 * time.Millisecond

// MusicVolume is the gain applied to background music under narration.
const MusicVolume = 0.1

type Input struct {
	VisualPath    string
	SubtitlesPath string
	AudioPath     string
	MusicPath     string
	Style         types.SubtitleStyle
	FPS           float64
}

// Compose describes the final scene: visual track, cue overlay and narration
// as the single audio track. Durations are the probed lengths of the visual
// and narration inputs. Exceeding DriftTolerance is recorded on the result
// and never returned as an error.
func Compose(in Input, visual, audio time.Duration) (types.ComposedVideo, error) {
	switch {
	case in.VisualPath == "":
		return types.ComposedVideo{}, types.Fatal("compose", "visual track is missing")
	case in.SubtitlesPath == "":
		return types.ComposedVideo{}, types.Fatal("compose", "subtitle overlay is missing")
	case in.AudioPath == "":
		return types.ComposedVideo{}, types.Fatal("compose", "narration audio is missing")
	}
	if visual <= 0 {
		return types.ComposedVideo{}, &types.MediaReadError{Path: in.VisualPath, Err: fmt.Errorf("duration %s", visual)}
	}
	if audio <= 0 {
		return types.ComposedVideo{}, &types.MediaReadError{Path: in.AudioPath, Err: fmt.Errorf("duration %s", audio)}
	}

	drift, exceeded := Drift(visual, audio)
	return types.ComposedVideo{
		VisualPath:     in.VisualPath,
		SubtitlesPath:  in.SubtitlesPath,
		AudioPath:      in.AudioPath,
		MusicPath:      in.MusicPath,
		Style:          in.Style,
		FPS:            in.FPS,
		VisualDuration: visual,
		AudioDuration:  audio,
		Drift:          drift,
		DriftExceeded:  exceeded,
	}, nil
}

// Drift returns |visual-audio| and whether it is beyond DriftTolerance.
func Drift(visual, audio time.Duration) (time.Duration, bool) {
	d := visual - audio
	if d < 0 {
		d = -d
	}
	return d, d > DriftTolerance
}

// OutputDuration is the length the exported file ends up with: the muxer
// stops at the shorter of the two streams.
func OutputDuration(cv types.ComposedVideo) time.Duration {
	if cv.AudioDuration < cv.VisualDuration {
		return cv.AudioDuration
	}
	return cv.VisualDuration
}

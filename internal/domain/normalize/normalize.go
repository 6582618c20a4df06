package normalize

import (
	"fmt"
	"math"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

// Request carries the budgets a single segment is trimmed against.
type Request struct {
	// Remaining is what the timeline still needs.
	Remaining time.Duration
	// PerClip is the pool-derived per-clip target.
	PerClip time.Duration
	// MaxClip is the hard per-segment cap.
	MaxClip time.Duration
}

// Plan computes the segment one source clip turns into: trimmed duration,
// centered 9:16 crop, fixed frame rate and output size. It does not touch
// the file; a VideoTool materializes the plan.
func Plan(src types.SourceClip, req Request) (types.NormalizedSegment, error) {
	if src.Duration <= 0 {
		return types.NormalizedSegment{}, &types.MediaReadError{Path: src.Path, Err: fmt.Errorf("non-positive duration %s", src.Duration)}
	}
	if src.Width <= 0 || src.Height <= 0 {
		return types.NormalizedSegment{}, &types.MediaReadError{Path: src.Path, Err: fmt.Errorf("invalid frame size %dx%d", src.Width, src.Height)}
	}

	return types.NormalizedSegment{
		Source:   src,
		Duration: Trim(src.Duration, req),
		Crop:     Crop(src.Width, src.Height),
		Width:    types.OutputWidth,
		Height:   types.OutputHeight,
		FPS:      types.OutputFPS,
	}, nil
}

// Trim applies the remaining budget and the per-clip target, tighter one
// first, then re-caps at MaxClip. A clip shorter than both stays whole.
func Trim(source time.Duration, req Request) time.Duration {
	d := source
	limit := req.Remaining
	if req.PerClip > 0 && (limit <= 0 || req.PerClip < limit) {
		limit = req.PerClip
	}
	if limit > 0 && limit < d {
		d = limit
	}
	if req.MaxClip > 0 && d > req.MaxClip {
		d = req.MaxClip
	}
	return d
}

// Crop returns the centered window with a 9:16 aspect ratio. Frames
// narrower than portrait keep full width and lose height; everything else
// keeps full height and loses width.
func Crop(w, h int) types.CropRect {
	ratio := math.Round(float64(w)/float64(h)*1e4) / 1e4
	if ratio < types.PortraitRatio {
		ch := int(math.Round(float64(w) / types.PortraitRatio))
		if ch > h {
			ch = h
		}
		return types.CropRect{W: w, H: ch, X: 0, Y: (h - ch) / 2}
	}
	cw := int(math.Round(types.PortraitRatio * float64(h)))
	if cw > w {
		cw = w
	}
	return types.CropRect{W: cw, H: h, X: (w - cw) / 2, Y: 0}
}

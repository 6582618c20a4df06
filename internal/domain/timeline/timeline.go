package timeline

import (
	"time"

	"github.com/forPelevin/mkshorts/internal/domain/normalize"
	"github.com/forPelevin/mkshorts/internal/types"
)

// DefaultMaxClip caps every segment.
const DefaultMaxClip = 10 * time.Second

// frame is the shortest segment worth encoding.
const frame = time.Second / types.OutputFPS

// Build plans the timeline: it walks the pool in order, wrapping around as
// often as needed, and appends one normalized segment per visit until the
// accumulated duration reaches target. Every source must have a positive
// duration; that is what guarantees termination.
func Build(pool []types.SourceClip, target, maxClip time.Duration) (types.Timeline, error) {
	if len(pool) == 0 {
		return types.Timeline{}, types.Fatal("timeline", "candidate pool is empty")
	}
	if target <= 0 {
		return types.Timeline{}, types.Fatal("timeline", "target duration must be > 0, got %s", target)
	}
	for _, c := range pool {
		if c.Duration <= 0 {
			return types.Timeline{}, types.Fatal("timeline", "source %s has no duration", c.Path)
		}
	}
	if maxClip <= 0 {
		maxClip = DefaultMaxClip
	}

	// Rounded up so n per-clip segments never fall short of target.
	n := time.Duration(len(pool))
	perClip := (target + n - 1) / n

	var (
		tl    types.Timeline
		total time.Duration
	)
	for i := 0; total < target; i = (i + 1) % len(pool) {
		seg, err := normalize.Plan(pool[i], normalize.Request{
			Remaining: max(target-total, frame),
			PerClip:   perClip,
			MaxClip:   maxClip,
		})
		if err != nil {
			return types.Timeline{}, err
		}
		tl.Segments = append(tl.Segments, seg)
		total += seg.Duration
	}
	return tl, nil
}

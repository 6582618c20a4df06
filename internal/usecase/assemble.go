package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/domain/compose"
	"github.com/forPelevin/mkshorts/internal/domain/narration"
	"github.com/forPelevin/mkshorts/internal/domain/subtitles"
	"github.com/forPelevin/mkshorts/internal/domain/timeline"
	"github.com/forPelevin/mkshorts/internal/types"
)

type AssembleInput struct {
	Sentences []types.SentenceAudio
	// Pool holds downloaded stock clips, one per search term, in term order.
	Pool      []string
	Language  string
	Style     types.SubtitleStyle
	MaxChars  int
	MaxClip   time.Duration
	MusicPath string
	Threads   int
	OutPath   string
}

type AssembleResult struct {
	Output   types.RenderedOutput
	Composed types.ComposedVideo
	Cues     []types.Cue
	Segments int
	Warnings []string
}

// Assemble turns narrated sentences and a clip pool into one rendered video.
// Every intermediate file is released as soon as the next stage has
// consumed it; whatever remains is released when Assemble returns.
func (u Usecase) Assemble(ctx context.Context, in AssembleInput) (AssembleResult, error) {
	log := u.d.Log.With().Str("stage", "assemble").Logger()
	var res AssembleResult

	if len(in.Sentences) == 0 {
		return res, types.Fatal("assemble", "no narrated sentences")
	}
	if in.OutPath == "" {
		return res, types.Fatal("assemble", "output path is empty")
	}

	// Narration track: the timeline target is its probed duration.
	audioPath := u.d.Work.Path("narration.m4a")
	defer u.d.Work.Release(audioPath)
	if err := u.d.Video.ConcatAudio(ctx, narration.Paths(in.Sentences), audioPath); err != nil {
		return res, err
	}
	target, err := u.d.Video.ProbeDuration(ctx, audioPath)
	if err != nil {
		return res, err
	}
	log.Info().Dur("target", target).Dur("sentences_total", narration.Total(in.Sentences)).Int("sentences", len(in.Sentences)).Msg("narration ready")

	pool := u.probePool(ctx, in.Pool)
	tl, err := timeline.Build(pool, target, in.MaxClip)
	if err != nil {
		return res, err
	}
	res.Segments = len(tl.Segments)
	log.Info().Int("segments", len(tl.Segments)).Dur("visual", tl.Duration()).Msg("timeline planned")

	visualPath := u.d.Work.Path("visual.mp4")
	defer u.d.Work.Release(visualPath)
	if err := u.materialize(ctx, &tl, visualPath); err != nil {
		return res, err
	}
	u.d.Work.Release(in.Pool...)

	cues, err := u.d.Subs.Cues(ctx, subtitles.Input{
		Sentences: in.Sentences,
		AudioPath: audioPath,
		Language:  in.Language,
	})
	if err != nil {
		return res, fmt.Errorf("subtitles (%s): %w", u.d.Subs.Name(), err)
	}
	u.d.Work.Release(narration.Paths(in.Sentences)...)

	srtPath := u.d.Work.Path("subtitles.srt")
	defer u.d.Work.Release(srtPath)
	if err := subtitles.WriteFile(srtPath, cues); err != nil {
		return res, err
	}
	if err := subtitles.EqualizeFile(srtPath, in.MaxChars); err != nil {
		return res, err
	}
	if cues, err = subtitles.ReadFile(srtPath); err != nil {
		return res, err
	}
	res.Cues = cues

	ass, err := subtitles.RenderASS(cues, in.Style)
	if err != nil {
		return res, types.Fatal("subtitles", "%v", err)
	}
	assPath := u.d.Work.Path("subtitles.ass")
	defer u.d.Work.Release(assPath)
	if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
		return res, err
	}
	log.Info().Int("cues", len(cues)).Str("source", u.d.Subs.Name()).Msg("subtitles ready")

	visualDur, err := u.d.Video.ProbeDuration(ctx, visualPath)
	if err != nil {
		return res, err
	}
	cv, err := compose.Compose(compose.Input{
		VisualPath:    visualPath,
		SubtitlesPath: assPath,
		AudioPath:     audioPath,
		MusicPath:     in.MusicPath,
		Style:         in.Style,
		FPS:           float64(tl.Segments[0].FPS),
	}, visualDur, target)
	if err != nil {
		return res, err
	}
	res.Composed = cv
	if cv.DriftExceeded {
		msg := fmt.Sprintf("composed video is %s but narration is %s (drift %s)", cv.VisualDuration, cv.AudioDuration, cv.Drift)
		log.Warn().Dur("visual", cv.VisualDuration).Dur("audio", cv.AudioDuration).Dur("drift", cv.Drift).Msg("audio/video duration mismatch")
		res.Warnings = append(res.Warnings, msg)
	}

	if err := u.d.Video.Render(ctx, cv, in.OutPath, in.Threads); err != nil {
		return res, err
	}
	res.Output = types.RenderedOutput{Path: in.OutPath, Duration: compose.OutputDuration(cv)}
	if d, err := u.d.Video.ProbeDuration(ctx, in.OutPath); err == nil {
		res.Output.Duration = d
	}

	// Cues stay next to the video for platforms that accept caption files.
	if err := subtitles.WriteFile(sidecarPath(in.OutPath), cues); err != nil {
		log.Warn().Err(err).Msg("write subtitle sidecar")
	}
	log.Info().Str("path", in.OutPath).Dur("duration", res.Output.Duration).Msg("rendered")
	return res, nil
}

// probePool reads every downloaded clip and drops the ones that cannot be
// decoded. Order is preserved.
func (u Usecase) probePool(ctx context.Context, paths []string) []types.SourceClip {
	pool := make([]types.SourceClip, 0, len(paths))
	for _, p := range paths {
		clip, err := u.d.Video.Probe(ctx, p)
		if err == nil && clip.Duration <= 0 {
			err = &types.MediaReadError{Path: p, Err: errors.New("zero duration")}
		}
		if err != nil {
			u.d.Log.Warn().Str("stage", "assemble").Str("path", p).Err(err).Msg("skipping unreadable clip")
			u.d.Work.Release(p)
			continue
		}
		pool = append(pool, clip)
	}
	return pool
}

// materialize writes each planned segment, joins them into out and releases
// the segment files.
func (u Usecase) materialize(ctx context.Context, tl *types.Timeline, out string) error {
	paths := make([]string, 0, len(tl.Segments))
	defer func() { u.d.Work.Release(paths...) }()

	for i := range tl.Segments {
		seg := &tl.Segments[i]
		p := u.d.Work.Path(fmt.Sprintf("segment-%03d.mp4", i+1))
		paths = append(paths, p)
		if err := u.d.Video.NormalizeSegment(ctx, *seg, p); err != nil {
			return err
		}
		seg.Path = p
	}
	if err := u.d.Video.ConcatVideo(ctx, paths, out); err != nil {
		return err
	}
	tl.Path = out
	return nil
}

func sidecarPath(out string) string {
	return strings.TrimSuffix(out, filepath.Ext(out)) + ".srt"
}

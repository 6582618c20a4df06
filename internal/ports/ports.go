package ports

import (
	"context"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

type VideoTool interface {
	Probe(ctx context.Context, path string) (types.SourceClip, error)
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	NormalizeSegment(ctx context.Context, seg types.NormalizedSegment, out string) error
	ConcatVideo(ctx context.Context, inputs []string, out string) error
	ConcatAudio(ctx context.Context, inputs []string, out string) error
	Render(ctx context.Context, cv types.ComposedVideo, out string, threads int) error
}

// Transcriber turns a narration track into timed cues.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]types.Cue, error)
}

type Writer interface {
	GenerateScript(ctx context.Context, req types.ScriptRequest) (string, error)
	SearchTerms(ctx context.Context, subject, script string, count int, model string) ([]string, error)
	GenerateMetadata(ctx context.Context, subject, script string, model string) (types.Metadata, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, outPath string) error
}

type StockSearch interface {
	Search(ctx context.Context, query string, perPage int, minDuration time.Duration) ([]string, error)
}

type Downloader interface {
	Download(ctx context.Context, url, outPath string) error
}

type Uploader interface {
	Upload(ctx context.Context, req types.UploadRequest) (string, error)
}

type RunRecorder interface {
	Record(ctx context.Context, st types.RunState) error
}

type JobQueue interface {
	// Pop blocks up to wait; ok is false when nothing arrived.
	Pop(ctx context.Context, wait time.Duration) (job types.Job, ok bool, err error)
	PushResult(ctx context.Context, res types.JobResult) error
}

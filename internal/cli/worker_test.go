package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/mkshorts/internal/config"
	"github.com/forPelevin/mkshorts/internal/pipeline"
	"github.com/forPelevin/mkshorts/internal/types"
)

type fakeQueue struct {
	jobs    []types.Job
	results []types.JobResult
	cancel  context.CancelFunc
}

func (q *fakeQueue) Pop(_ context.Context, _ time.Duration) (types.Job, bool, error) {
	if len(q.jobs) == 0 {
		q.cancel()
		return types.Job{}, false, nil
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true, nil
}

func (q *fakeQueue) PushResult(_ context.Context, res types.JobResult) error {
	q.results = append(q.results, res)
	return nil
}

func TestWork_RunsJobsInOrder(t *testing.T) {
	var got []pipeline.Config
	orig := runPipeline
	runPipeline = func(_ context.Context, cfg pipeline.Config) (types.RunState, error) {
		got = append(got, cfg)
		if cfg.Subject == "broken" {
			return types.RunState{RunID: "r2"}, errors.New("render failed")
		}
		return types.RunState{RunID: "r1", Output: "out/a/video.mp4", VideoID: "v1"}, nil
	}
	defer func() { runPipeline = orig }()

	base := config.Default()
	base.Env.OpenRouterAPIKey = "k"
	base.Env.OpenRouterBaseURL = "https://openrouter.ai"
	base.Env.PexelsAPIKey = "p"

	no := false
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := &fakeQueue{
		cancel: cancel,
		jobs: []types.Job{
			{ID: "j1", Subject: "tides", Voice: "fr-FR-DeniseNeural", Upload: &no},
			{ID: "j2", Subject: "broken"},
		},
	}

	err := work(ctx, q, base, zerolog.Nop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	if len(got) != 2 || got[0].Subject != "tides" || got[1].Subject != "broken" {
		t.Fatalf("unexpected runs: %+v", got)
	}
	if got[0].Voice != "fr-FR-DeniseNeural" || got[1].Voice != base.Voice {
		t.Fatalf("unexpected voices: %q %q", got[0].Voice, got[1].Voice)
	}
	if len(q.results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(q.results))
	}
	if r := q.results[0]; r.JobID != "j1" || r.RunID != "r1" || r.VideoID != "v1" || r.Error != "" {
		t.Fatalf("unexpected first result: %+v", r)
	}
	if r := q.results[1]; r.JobID != "j2" || r.Error != "render failed" {
		t.Fatalf("unexpected second result: %+v", r)
	}
}

func TestRunQueued_RejectsInvalidConfig(t *testing.T) {
	called := false
	orig := runPipeline
	runPipeline = func(context.Context, pipeline.Config) (types.RunState, error) {
		called = true
		return types.RunState{}, nil
	}
	defer func() { runPipeline = orig }()

	// No API keys in the environment overlay.
	res := runQueued(context.Background(), types.Job{ID: "j", Subject: "x"}, config.Default(), zerolog.Nop())
	if called {
		t.Fatalf("pipeline must not run with invalid config")
	}
	if res.JobID != "j" || res.Error == "" {
		t.Fatalf("expected rejection result, got %+v", res)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecode_OverridesDefaults(t *testing.T) {
	cfg := Default()
	err := Decode([]byte(`
subject: black holes
voice: de-DE-KatjaNeural
threads: 4
max_clip: 6s
use_music: true
subtitles:
  position: center,bottom
  max_chars: 14
youtube:
  privacy_status: public
paths:
  output: /srv/shorts/latest.mp4
`), &cfg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Subject != "black holes" || cfg.Voice != "de-DE-KatjaNeural" {
		t.Fatalf("unexpected subject/voice: %+v", cfg)
	}
	if cfg.Threads != 4 || cfg.MaxClip != 6*time.Second || !cfg.UseMusic {
		t.Fatalf("unexpected tuning: threads=%d max_clip=%s music=%v", cfg.Threads, cfg.MaxClip, cfg.UseMusic)
	}
	if cfg.Subtitles.Position != "center,bottom" || cfg.Subtitles.MaxChars != 14 {
		t.Fatalf("unexpected subtitles: %+v", cfg.Subtitles)
	}
	// Untouched keys keep their defaults.
	if cfg.Subtitles.Color != "#FFFF00" || cfg.YouTube.Category != "28" {
		t.Fatalf("defaults lost: %+v %+v", cfg.Subtitles, cfg.YouTube)
	}
	if cfg.YouTube.Privacy != "public" {
		t.Fatalf("expected public privacy, got %q", cfg.YouTube.Privacy)
	}
	if cfg.Paths.Output != "/srv/shorts/latest.mp4" || cfg.Paths.OutDir != "out" {
		t.Fatalf("unexpected paths: %+v", cfg.Paths)
	}
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Decode([]byte("subjet: typo\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "subjet") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENROUTER_API_KEY":       "k",
		"OPENROUTER_ALLOWED_HOSTS": " gw.local , ,other.local",
		"PEXELS_API_KEY":           "p",
		"REDIS_URL":                "redis://localhost:6379/0",
		"MKSHORTS_THREADS":         "8",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Env.OpenRouterAPIKey != "k" || cfg.Env.PexelsAPIKey != "p" {
		t.Fatalf("unexpected secrets: %+v", cfg.Env)
	}
	if got := strings.Join(cfg.Env.OpenRouterAllowedHosts, "|"); got != "gw.local|other.local" {
		t.Fatalf("unexpected allowed hosts: %q", got)
	}
	if cfg.Env.OpenRouterBaseURL != "https://openrouter.ai" {
		t.Fatalf("expected default base url, got %q", cfg.Env.OpenRouterBaseURL)
	}
	if cfg.Threads != 8 {
		t.Fatalf("expected threads from env, got %d", cfg.Threads)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "mk.yaml")
	if err := os.WriteFile(p, []byte("subject: tides\nparagraphs: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Subject != "tides" || cfg.Paragraphs != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}
}

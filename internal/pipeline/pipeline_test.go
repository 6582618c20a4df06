package pipeline

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/mkshorts/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/mkshorts/internal/types"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "Why Cats Purr?", now, "3f1c0b6e-run")
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "why-cats-purr-20260212-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("why-cats-purr-20260212-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}

	long := buildRunOutDir("out", strings.Repeat("very long subject ", 10), now, "id")
	if name := strings.SplitN(filepath.Base(long), "-2026", 2)[0]; len(name) > 40 || strings.HasSuffix(name, "-") {
		t.Fatalf("unexpected truncated name: %q", name)
	}
	if empty := filepath.Base(buildRunOutDir("out", "???", now, "id")); !strings.HasPrefix(empty, "short-") {
		t.Fatalf("expected fallback name, got %s", empty)
	}
}

func TestOutputPath_SameForEveryRun(t *testing.T) {
	a := Config{OutDir: "out", RunID: "run-1", Subject: "romance stories"}
	b := Config{OutDir: "out", RunID: "run-2", Subject: "romance stories"}
	if a.outputPath() != b.outputPath() {
		t.Fatalf("runs render to different files: %s vs %s", a.outputPath(), b.outputPath())
	}
	if got := a.outputPath(); got != filepath.Join("out", DefaultOutputName) {
		t.Fatalf("unexpected output path %s", got)
	}
	if got := (Config{}).outputPath(); got != filepath.Join("out", DefaultOutputName) {
		t.Fatalf("unexpected default output path %s", got)
	}
	if got := (Config{OutDir: "out", OutputFile: "/srv/shorts/latest.mp4"}).outputPath(); got != "/srv/shorts/latest.mp4" {
		t.Fatalf("configured output ignored: %s", got)
	}

	// Run state keeps its own per-run directory.
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if buildRunOutDir("out", a.Subject, now, a.RunID) == buildRunOutDir("out", b.Subject, now.Add(time.Minute), b.RunID) {
		t.Fatalf("expected distinct run state directories")
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestWorkspace_CleansAndReleases(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(dir, "stale.mp4")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := OpenWorkspace(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale file to be removed, stat err=%v", err)
	}

	a, b := w.NewPath(".mp3"), w.NewPath(".mp3")
	if a == b || filepath.Dir(a) != dir || filepath.Ext(a) != ".mp3" {
		t.Fatalf("unexpected paths: %s %s", a, b)
	}
	if err := os.WriteFile(a, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Release(a, b, "")
	if _, err := os.Stat(a); !os.IsNotExist(err) {
		t.Fatalf("expected %s released", a)
	}

	w.Close()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected workspace removed, stat err=%v", err)
	}
}

func TestPickMusic(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "songs.zip")
	writeZip(t, archive, map[string]string{
		"songs/a.mp3":    "A",
		"songs/b.wav":    "B",
		"songs/read.me":  "ignored",
		"deep/dir/c.ogg": "C",
	})

	got, err := PickMusic(archive, filepath.Join(tmp, "music"), func(n int) int {
		if n != 3 {
			t.Fatalf("expected 3 candidates, got %d", n)
		}
		return 2
	})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if filepath.Dir(got) != filepath.Join(tmp, "music") || !strings.HasSuffix(got, "c.ogg") {
		t.Fatalf("unexpected track path: %s", got)
	}
	b, err := os.ReadFile(got)
	if err != nil || string(b) != "C" {
		t.Fatalf("unexpected track content %q err=%v", b, err)
	}

	empty := filepath.Join(tmp, "empty.zip")
	writeZip(t, empty, map[string]string{"notes.txt": "x"})
	if _, err := PickMusic(empty, filepath.Join(tmp, "m2"), nil); err == nil {
		t.Fatalf("expected error for archive without audio")
	}
	if _, err := PickMusic(filepath.Join(tmp, "missing.zip"), filepath.Join(tmp, "m3"), nil); err == nil {
		t.Fatalf("expected error for missing archive")
	}
}

func TestConfigValidate(t *testing.T) {
	tmp := t.TempDir()
	secrets := filepath.Join(tmp, "client_secret.json")
	if err := os.WriteFile(secrets, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	base := Config{
		Subject:           "tides",
		Threads:           2,
		MaxClip:           10 * time.Second,
		OpenRouterAPIKey:  "k",
		OpenRouterBaseURL: "https://openrouter.ai",
		PexelsAPIKey:      "p",
	}

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		fatal   bool
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "empty subject", mutate: func(c *Config) { c.Subject = "  " }, wantErr: true, fatal: true},
		{name: "zero threads", mutate: func(c *Config) { c.Threads = 0 }, wantErr: true, fatal: true},
		{name: "no llm key", mutate: func(c *Config) { c.OpenRouterAPIKey = "" }, wantErr: true, fatal: true},
		{name: "no pexels key", mutate: func(c *Config) { c.PexelsAPIKey = "" }, wantErr: true, fatal: true},
		{name: "plain http remote", mutate: func(c *Config) { c.OpenRouterBaseURL = "http://example.com" }, wantErr: true},
		{
			name: "upload without token",
			mutate: func(c *Config) {
				c.Upload = true
				c.YouTube.ClientSecretsPath = secrets
				c.YouTube.TokenPath = filepath.Join(tmp, "token.json")
			},
			wantErr: true,
			fatal:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr != (err != nil) {
				t.Fatalf("wantErr=%v got %v", tc.wantErr, err)
			}
			if tc.fatal && !errors.Is(err, types.ErrFatalInput) {
				t.Fatalf("expected fatal input error, got %v", err)
			}
		})
	}
}

func TestSubtitleSourceSelection(t *testing.T) {
	w, err := OpenWorkspace(filepath.Join(t.TempDir(), "w"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer w.Close()
	v := ffmpeg.New("", "")

	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "assemblyai wins", cfg: Config{AssemblyAIAPIKey: "a", WhisperModel: "m.bin"}, want: "assemblyai"},
		{name: "whisper", cfg: Config{WhisperModel: "m.bin"}, want: "whisper.cpp"},
		{name: "local", cfg: Config{}, want: "local"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := subtitleSource(tc.cfg, v, w).Name(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	// Fixed order keeps candidate indices stable.
	for _, name := range []string{"songs/a.mp3", "songs/b.wav", "songs/read.me", "deep/dir/c.ogg", "notes.txt"} {
		body, ok := files[name]
		if !ok {
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

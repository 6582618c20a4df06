package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/forPelevin/mkshorts/internal/domain/subtitles"
	"github.com/forPelevin/mkshorts/internal/ports"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/assemblyai"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/mongostore"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/openrouter"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/pexels"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/tts"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/youtube"
	"github.com/forPelevin/mkshorts/internal/types"
	"github.com/forPelevin/mkshorts/internal/usecase"
)

type Config struct {
	Subject        string
	Voice          string
	Model          string
	PromptTemplate string
	Paragraphs     int
	Terms          int
	Threads        int
	MaxClip        time.Duration
	Style          types.SubtitleStyle
	MaxChars       int

	UseMusic bool
	MusicZip string

	Upload          bool
	YouTube         youtube.Credentials
	UploadChannelID string
	UploadPrivacy   string
	UploadCategory  string

	// WorkDir holds one scratch directory per run; it is removed when the run ends.
	WorkDir string
	OutDir  string
	// OutputFile is where every run renders, overwriting the previous video.
	// Empty means DefaultOutputName in OutDir.
	OutputFile string
	// RunID is generated when empty.
	RunID string

	FFmpegPath   string
	FFprobePath  string
	WhisperBin   string
	WhisperModel string

	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	PexelsAPIKey     string
	PexelsBaseURL    string
	AssemblyAIAPIKey string
	TTSCommand       string
	MongoURI         string

	Logger zerolog.Logger
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Subject) == "" {
		return types.Fatal("config", "subject is empty")
	}
	if c.Threads <= 0 {
		return types.Fatal("config", "threads must be > 0")
	}
	if c.MaxClip <= 0 {
		return types.Fatal("config", "max clip must be > 0")
	}
	if c.OpenRouterAPIKey == "" {
		return types.Fatal("config", "OPENROUTER_API_KEY is required (set it in .env)")
	}
	if c.PexelsAPIKey == "" {
		return types.Fatal("config", "PEXELS_API_KEY is required (set it in .env)")
	}
	if c.Upload {
		if _, err := os.Stat(c.YouTube.ClientSecretsPath); err != nil {
			return types.Fatal("config", "upload enabled but client secrets are missing: %v", err)
		}
		if _, err := os.Stat(c.YouTube.TokenPath); err != nil {
			return types.Fatal("config", "upload enabled but %s is missing (run `mkshorts auth`)", c.YouTube.TokenPath)
		}
	}
	return openrouter.ValidateBaseURL(
		c.OpenRouterBaseURL,
		c.OpenRouterAllowedHosts,
	)
}

// Run produces one video for cfg.Subject. The returned state is also written
// to state.json in the run directory, on success and on failure.
func Run(ctx context.Context, cfg Config) (types.RunState, error) {
	log := cfg.Logger
	st := types.RunState{
		RunID:     cfg.RunID,
		Subject:   cfg.Subject,
		StartedAt: time.Now().UTC(),
	}
	if st.RunID == "" {
		st.RunID = uuid.NewString()
	}
	log = log.With().Str("run_id", st.RunID).Logger()

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	outPath := cfg.outputPath()
	runOutDir := buildRunOutDir(outDir, cfg.Subject, st.StartedAt, st.RunID)
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return st, err
	}
	log.Info().Str("dir", runOutDir).Str("output", outPath).Msg("output paths")

	baseWork := cfg.WorkDir
	if baseWork == "" {
		baseWork = ".cache/work"
	}
	log.Info().Msg("preparing workspace")
	work, err := OpenWorkspace(filepath.Join(baseWork, st.RunID), log)
	if err != nil {
		return st, err
	}
	defer work.Close()

	recorder := openRecorder(ctx, cfg.MongoURI, log)
	if recorder != nil {
		defer recorder.Close(context.Background())
	}

	res, err := runJob(ctx, cfg, work, outPath, log)
	st.FinishedAt = time.Now().UTC()
	st.Script = res.Script
	st.Terms = res.Terms
	st.Sentences = len(res.Sentences)
	st.Clips = res.Clips
	st.Warnings = res.Warnings
	st.VideoID = res.VideoID
	if res.Output.Path != "" {
		st.Output = res.Output.Path
		st.Subtitles = strings.TrimSuffix(res.Output.Path, filepath.Ext(res.Output.Path)) + ".srt"
		st.DurationS = res.Output.Duration.Seconds()
	}
	if err != nil {
		st.Error = err.Error()
	}

	if werr := writeState(filepath.Join(runOutDir, "state.json"), st); werr != nil {
		log.Warn().Err(werr).Msg("write state")
	}
	if recorder != nil {
		if rerr := recorder.Record(ctx, st); rerr != nil {
			log.Warn().Err(rerr).Msg("record run")
		}
	}

	if err != nil {
		log.Error().Err(err).Dur("took", st.FinishedAt.Sub(st.StartedAt)).Msg("run failed")
		return st, err
	}
	log.Info().Str("output", st.Output).Float64("duration_sec", st.DurationS).
		Dur("took", st.FinishedAt.Sub(st.StartedAt)).Msg("run finished")
	return st, nil
}

func runJob(ctx context.Context, cfg Config, work *Workspace, outPath string, log zerolog.Logger) (usecase.Result, error) {
	// adapters
	v := ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	llm := openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL)
	stock := pexels.New(cfg.PexelsAPIKey, cfg.PexelsBaseURL)
	speech, err := tts.New(cfg.TTSCommand)
	if err != nil {
		return usecase.Result{}, types.Fatal("config", "%v", err)
	}

	deps := usecase.Deps{
		Video:    v,
		Writer:   llm,
		TTS:      speech,
		Search:   stock,
		Download: stock,
		Subs:     subtitleSource(cfg, v, work),
		Work:     work,
		Log:      log,
	}
	if cfg.Upload {
		svc, err := youtube.NewService(ctx, cfg.YouTube, log)
		if err != nil {
			return usecase.Result{}, types.Fatal("upload", "%v", err)
		}
		deps.Uploader = youtube.New(svc, log)
	}
	log.Info().Str("stage", "subtitles").Str("source", deps.Subs.Name()).Msg("subtitle source selected")

	musicPath := ""
	if cfg.UseMusic {
		p, err := PickMusic(cfg.MusicZip, work.Path("music"), nil)
		if err != nil {
			log.Warn().Str("stage", "music").Str("path", cfg.MusicZip).Err(err).Msg("background music disabled")
		} else {
			musicPath = p
			log.Info().Str("stage", "music").Str("track", filepath.Base(p)).Msg("background music selected")
		}
	}

	uc := usecase.New(deps)
	return uc.Run(ctx, usecase.Input{
		Subject:        cfg.Subject,
		Voice:          cfg.Voice,
		Paragraphs:     cfg.Paragraphs,
		Model:          cfg.Model,
		PromptTemplate: cfg.PromptTemplate,
		TermCount:      cfg.Terms,
		MaxClip:        cfg.MaxClip,
		MaxChars:       cfg.MaxChars,
		Threads:        cfg.Threads,
		Style:          cfg.Style,
		MusicPath:      musicPath,
		OutPath:        outPath,
		Upload: usecase.Upload{
			Enabled:   cfg.Upload,
			ChannelID: cfg.UploadChannelID,
			Category:  cfg.UploadCategory,
			Privacy:   cfg.UploadPrivacy,
		},
	})
}

// subtitleSource picks the cue strategy once per run: a hosted transcriber
// when its key is set, then a local whisper model, then sentence timing.
func subtitleSource(cfg Config, v *ffmpeg.Adapter, work *Workspace) subtitles.Source {
	switch {
	case cfg.AssemblyAIAPIKey != "":
		return subtitles.TranscribedSource{Backend: "assemblyai", T: assemblyai.New(cfg.AssemblyAIAPIKey)}
	case cfg.WhisperModel != "":
		return subtitles.TranscribedSource{
			Backend: "whisper.cpp",
			T:       whispercpp.New(cfg.WhisperBin, cfg.WhisperModel, v, work.Path("whisper")),
		}
	default:
		return subtitles.LocalSource{}
	}
}

type recorder interface {
	ports.RunRecorder
	Close(ctx context.Context) error
}

func openRecorder(ctx context.Context, uri string, log zerolog.Logger) recorder {
	if uri == "" {
		return nil
	}
	s, err := mongostore.Connect(ctx, uri)
	if err != nil {
		log.Warn().Err(err).Msg("run history disabled")
		return nil
	}
	return s
}

func writeState(path string, st types.RunState) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// DefaultOutputName is the rendered file inside OutDir.
const DefaultOutputName = "output.mp4"

// outputPath is the same for every run: each render replaces the last one.
func (c Config) outputPath() string {
	if c.OutputFile != "" {
		return c.OutputFile
	}
	dir := c.OutDir
	if dir == "" {
		dir = "out"
	}
	return filepath.Join(dir, DefaultOutputName)
}

func buildRunOutDir(outRoot, subject string, now time.Time, runID string) string {
	name := normalizePathSegment(subject)
	if len(name) > 40 {
		name = strings.TrimRight(name[:40], "-")
	}
	if name == "" {
		name = "short"
	}
	ts := now.UTC().Format("20060102-150405Z")
	suffix := hash(runID)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// IsFatal reports whether err stopped the run before any output existed.
func IsFatal(err error) bool { return errors.Is(err, types.ErrFatalInput) }

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.Transcriber = (*whispercpp.Adapter)(nil)
var _ ports.Transcriber = (*assemblyai.Adapter)(nil)
var _ ports.Writer = (*openrouter.Adapter)(nil)
var _ ports.StockSearch = (*pexels.Adapter)(nil)
var _ ports.Downloader = (*pexels.Adapter)(nil)
var _ ports.Synthesizer = (*tts.Adapter)(nil)
var _ ports.Uploader = (*youtube.Adapter)(nil)
var _ ports.RunRecorder = (*mongostore.Store)(nil)

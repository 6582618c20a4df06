package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/forPelevin/mkshorts/internal/config"
	"github.com/forPelevin/mkshorts/internal/pipeline"
	"github.com/forPelevin/mkshorts/internal/ports/adapters/youtube"
	"github.com/forPelevin/mkshorts/internal/types"
)

var errUsage = errors.New("usage")

const runTimeout = 3 * time.Hour

func run(cmd *cobra.Command, subject string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	if subject != "" {
		cfg.Subject = subject
	}
	if cfg.Subject == "" {
		return fmt.Errorf("%w: a subject is required (argument or `subject:` in the config file)", errUsage)
	}

	log, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	pcfg := pipelineConfig(cfg, log)
	if err := pcfg.Validate(); err != nil {
		return err
	}
	st, err := pipeline.Run(ctx, pcfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), st.Output)
	return nil
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// applyFlags lets explicitly set flags win over file values.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("voice") {
		cfg.Voice, _ = f.GetString("voice")
	}
	if f.Changed("out") {
		cfg.Paths.OutDir, _ = f.GetString("out")
	}
	if f.Changed("threads") {
		cfg.Threads, _ = f.GetInt("threads")
	}
	if f.Changed("paragraphs") {
		cfg.Paragraphs, _ = f.GetInt("paragraphs")
	}
	if f.Changed("model") {
		cfg.Model, _ = f.GetString("model")
	}
	if f.Changed("upload") {
		cfg.AutomateUpload, _ = f.GetBool("upload")
	}
	if f.Changed("music") {
		cfg.UseMusic, _ = f.GetBool("music")
	}
	if f.Changed("max") {
		sec, _ := f.GetInt("max")
		cfg.MaxClip = time.Duration(sec) * time.Second
	}
}

func pipelineConfig(cfg config.Config, log zerolog.Logger) pipeline.Config {
	return pipeline.Config{
		Subject:        cfg.Subject,
		Voice:          cfg.Voice,
		Model:          cfg.Model,
		PromptTemplate: cfg.PromptTemplate,
		Paragraphs:     cfg.Paragraphs,
		Terms:          cfg.Terms,
		Threads:        cfg.Threads,
		MaxClip:        cfg.MaxClip,
		MaxChars:       cfg.Subtitles.MaxChars,
		Style: types.SubtitleStyle{
			Font:       cfg.Subtitles.Font,
			FontsDir:   cfg.Subtitles.FontsDir,
			FontSize:   cfg.Subtitles.FontSize,
			Color:      cfg.Subtitles.Color,
			Background: cfg.Subtitles.Background,
			Position:   cfg.Subtitles.Position,
			Stroke:     cfg.Subtitles.Stroke,
		},

		UseMusic: cfg.UseMusic,
		MusicZip: cfg.MusicZip,

		Upload:          cfg.AutomateUpload,
		YouTube:         credentials(cfg),
		UploadChannelID: cfg.YouTube.ChannelID,
		UploadPrivacy:   cfg.YouTube.Privacy,
		UploadCategory:  cfg.YouTube.Category,

		WorkDir:    cfg.Paths.WorkDir,
		OutDir:     cfg.Paths.OutDir,
		OutputFile: cfg.Paths.Output,

		FFmpegPath:   cfg.Paths.FFmpeg,
		FFprobePath:  cfg.Paths.FFprobe,
		WhisperBin:   cfg.Paths.WhisperBin,
		WhisperModel: cfg.Paths.WhisperModel,

		OpenRouterAPIKey:       cfg.Env.OpenRouterAPIKey,
		OpenRouterModel:        cfg.Env.OpenRouterModel,
		OpenRouterBaseURL:      cfg.Env.OpenRouterBaseURL,
		OpenRouterAllowedHosts: cfg.Env.OpenRouterAllowedHosts,

		PexelsAPIKey:     cfg.Env.PexelsAPIKey,
		AssemblyAIAPIKey: cfg.Env.AssemblyAIAPIKey,
		TTSCommand:       cfg.Env.TTSCommand,
		MongoURI:         cfg.Env.MongoURI,

		Logger: log,
	}
}

func credentials(cfg config.Config) youtube.Credentials {
	return youtube.Credentials{
		ClientSecretsPath: cfg.YouTube.ClientSecretsPath,
		TokenPath:         cfg.YouTube.CredentialsPath,
	}
}

// newLogger writes human-readable lines to stderr and, with --log-file or
// paths.log_file, JSON lines appended to that file.
func newLogger(cmd *cobra.Command, cfg config.Config) (zerolog.Logger, func(), error) {
	logFile, _ := cmd.Flags().GetString("log-file")
	if logFile == "" {
		logFile = cfg.Paths.LogFile
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}
	closeFn := func() {}
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return zerolog.Nop(), nil, err
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.MultiLevelWriter(w, f)
		closeFn = func() { _ = f.Close() }
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), closeFn, nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/mkshorts/internal/domain/narration"
	"github.com/forPelevin/mkshorts/internal/domain/subtitles"
	"github.com/forPelevin/mkshorts/internal/domain/terms"
	"github.com/forPelevin/mkshorts/internal/ports"
	"github.com/forPelevin/mkshorts/internal/types"
)

// Workspace hands out file names inside one run's scratch directory and
// deletes them once they are no longer needed.
type Workspace interface {
	// Path returns a fixed name inside the workspace.
	Path(name string) string
	// NewPath returns a fresh, unique name with the given extension.
	NewPath(ext string) string
	Release(paths ...string)
}

type Deps struct {
	Video    ports.VideoTool
	Writer   ports.Writer
	TTS      ports.Synthesizer
	Search   ports.StockSearch
	Download ports.Downloader
	Subs     subtitles.Source
	// Uploader is optional; without it uploads are refused.
	Uploader ports.Uploader
	Work     Workspace
	Log      zerolog.Logger
}

type Usecase struct {
	d Deps
}

func New(d Deps) Usecase {
	if d.Subs == nil {
		d.Subs = subtitles.LocalSource{}
	}
	return Usecase{d: d}
}

const (
	searchPerPage     = 15
	searchMinDuration = 10 * time.Second
)

type Upload struct {
	Enabled   bool
	ChannelID string
	Category  string
	Privacy   string
}

type Input struct {
	Subject        string
	Voice          string
	Paragraphs     int
	Model          string
	PromptTemplate string
	TermCount      int
	MaxClip        time.Duration
	MaxChars       int
	Threads        int
	Style          types.SubtitleStyle
	MusicPath      string
	OutPath        string
	Upload         Upload
}

// Result is filled progressively; on error it holds whatever was produced
// before the failing stage.
type Result struct {
	Script    string
	Sentences []string
	Terms     []string
	Clips     int
	Cues      int
	Output    types.RenderedOutput
	Metadata  types.Metadata
	VideoID   string
	Warnings  []string
}

// Run drives the whole job: script, narration, footage, assembly and the
// optional upload.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	var res Result
	if in.Subject == "" {
		return res, types.Fatal("script", "subject is empty")
	}
	log := u.d.Log.With().Str("subject", in.Subject).Logger()
	lang := subtitles.LanguageCode(in.Voice)

	script, err := u.d.Writer.GenerateScript(ctx, types.ScriptRequest{
		Subject:        in.Subject,
		Paragraphs:     in.Paragraphs,
		Model:          in.Model,
		Language:       lang,
		PromptTemplate: in.PromptTemplate,
	})
	if err != nil {
		return res, fmt.Errorf("generate script: %w", err)
	}
	res.Script = narration.CleanScript(script)
	log.Info().Str("stage", "script").Int("chars", len(res.Script)).Msg("script ready")

	sentences := narration.SplitSentences(res.Script)
	pairs := u.narrate(ctx, sentences, in.Voice)
	if len(pairs) == 0 {
		return res, types.Fatal("narration", "no sentence could be synthesized")
	}
	for _, p := range pairs {
		res.Sentences = append(res.Sentences, p.Sentence)
	}
	if skipped := len(sentences) - len(pairs); skipped > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d sentence(s) dropped: speech synthesis failed", skipped))
	}

	count := in.TermCount
	if count <= 0 {
		count = terms.DefaultCount
	}
	res.Terms, err = u.d.Writer.SearchTerms(ctx, in.Subject, res.Script, count, in.Model)
	if err != nil {
		u.d.Work.Release(narration.Paths(pairs)...)
		return res, fmt.Errorf("search terms: %w", err)
	}
	log.Info().Str("stage", "terms").Strs("terms", res.Terms).Msg("search terms ready")

	pool := u.gather(ctx, res.Terms)
	res.Clips = len(pool)
	if len(pool) == 0 {
		u.d.Work.Release(narration.Paths(pairs)...)
		return res, types.Fatal("footage", "no stock clip found for %d term(s)", len(res.Terms))
	}

	ar, err := u.Assemble(ctx, AssembleInput{
		Sentences: pairs,
		Pool:      pool,
		Language:  lang,
		Style:     in.Style,
		MaxChars:  in.MaxChars,
		MaxClip:   in.MaxClip,
		MusicPath: in.MusicPath,
		Threads:   in.Threads,
		OutPath:   in.OutPath,
	})
	res.Warnings = append(res.Warnings, ar.Warnings...)
	res.Cues = len(ar.Cues)
	if err != nil {
		return res, err
	}
	res.Output = ar.Output

	if in.Upload.Enabled {
		id, md, err := u.upload(ctx, in, res.Script)
		res.Metadata = md
		if err != nil {
			// The rendered file is still a valid result.
			log.Error().Str("stage", "upload").Err(err).Msg("upload failed")
			res.Warnings = append(res.Warnings, "upload failed: "+err.Error())
			return res, nil
		}
		res.VideoID = id
		log.Info().Str("stage", "upload").Str("video_id", id).Msg("uploaded")
	}
	return res, nil
}

// narrate synthesizes every sentence. A sentence whose audio cannot be
// produced is dropped together with its audio so text and sound stay paired.
func (u Usecase) narrate(ctx context.Context, sentences []string, voice string) []types.SentenceAudio {
	pairs := make([]types.SentenceAudio, 0, len(sentences))
	for i, s := range sentences {
		p := u.d.Work.NewPath(".mp3")
		if err := u.d.TTS.Synthesize(ctx, s, voice, p); err != nil {
			u.d.Log.Warn().Str("stage", "narration").Int("sentence", i+1).Err(err).Msg("tts failed, dropping sentence")
			u.d.Work.Release(p)
			continue
		}
		d, err := u.d.Video.ProbeDuration(ctx, p)
		if err != nil {
			u.d.Log.Warn().Str("stage", "narration").Int("sentence", i+1).Err(err).Msg("unreadable tts output, dropping sentence")
			u.d.Work.Release(p)
			continue
		}
		pairs = append(pairs, types.SentenceAudio{Sentence: s, Path: p, Duration: d})
	}
	return pairs
}

// gather finds and downloads one clip per term. Each term tries its fallback
// queries in order; a clip already picked for an earlier term is not reused.
func (u Usecase) gather(ctx context.Context, ts []string) []string {
	picker := terms.NewPicker()
	var pool []string
	for _, term := range ts {
		url, ok := u.find(ctx, term, picker)
		if !ok {
			u.d.Log.Warn().Str("stage", "footage").Str("term", term).Msg("no clip found")
			continue
		}
		p := u.d.Work.NewPath(".mp4")
		if err := u.d.Download.Download(ctx, url, p); err != nil {
			u.d.Log.Warn().Str("stage", "footage").Str("term", term).Err(err).Msg("download failed")
			u.d.Work.Release(p)
			continue
		}
		pool = append(pool, p)
	}
	return pool
}

func (u Usecase) find(ctx context.Context, term string, picker *terms.Picker) (string, bool) {
	for _, q := range terms.FallbackQueries(term) {
		urls, err := u.d.Search.Search(ctx, q, searchPerPage, searchMinDuration)
		if err != nil {
			u.d.Log.Warn().Str("stage", "footage").Str("query", q).Err(err).Msg("search failed")
			continue
		}
		if url, ok := picker.Pick(urls); ok {
			return url, true
		}
	}
	return "", false
}

func (u Usecase) upload(ctx context.Context, in Input, script string) (string, types.Metadata, error) {
	if u.d.Uploader == nil {
		return "", types.Metadata{}, fmt.Errorf("no uploader configured")
	}
	md, err := u.d.Writer.GenerateMetadata(ctx, in.Subject, script, in.Model)
	if err != nil {
		return "", md, fmt.Errorf("generate metadata: %w", err)
	}
	id, err := u.d.Uploader.Upload(ctx, types.UploadRequest{
		File:        in.OutPath,
		Title:       md.Title,
		Description: md.Description,
		Category:    in.Upload.Category,
		Keywords:    md.Keywords,
		ChannelID:   in.Upload.ChannelID,
		Privacy:     in.Upload.Privacy,
	})
	return id, md, err
}

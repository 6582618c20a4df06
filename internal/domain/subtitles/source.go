package subtitles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

// Input is everything a cue source may draw on. Local timing only reads
// Sentences; transcription only reads AudioPath and Language.
type Input struct {
	Sentences []types.SentenceAudio
	AudioPath string
	Language  string
}

// Source produces cues for a narration track. Which implementation runs is
// decided once when the pipeline is wired.
type Source interface {
	Name() string
	Cues(ctx context.Context, in Input) ([]types.Cue, error)
}

// Transcriber is the speech-to-text capability a TranscribedSource needs.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]types.Cue, error)
}

type LocalSource struct{}

func (LocalSource) Name() string { return "local" }

func (LocalSource) Cues(_ context.Context, in Input) ([]types.Cue, error) {
	sentences := make([]string, len(in.Sentences))
	durations := make([]time.Duration, len(in.Sentences))
	for i, s := range in.Sentences {
		sentences[i] = s.Sentence
		durations[i] = s.Duration
	}
	return Local(sentences, durations)
}

type TranscribedSource struct {
	Backend string
	T       Transcriber
}

func (s TranscribedSource) Name() string { return s.Backend }

func (s TranscribedSource) Cues(ctx context.Context, in Input) ([]types.Cue, error) {
	if s.T == nil {
		return nil, fmt.Errorf("subtitles: %s transcriber is not configured", s.Backend)
	}
	if in.AudioPath == "" {
		return nil, fmt.Errorf("subtitles: %s needs a narration track", s.Backend)
	}
	cues, err := s.T.Transcribe(ctx, in.AudioPath, LanguageCode(in.Language))
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("subtitles: %s returned no cues", s.Backend)
	}
	return cues, nil
}

var languageAliases = map[string]string{
	"br": "pt",
	"id": "en",
	"jp": "ja",
	"kr": "ko",
}

// LanguageCode derives the transcription language from a voice identifier
// such as "en_us_001" or "br_005". Empty input yields "en".
func LanguageCode(voice string) string {
	voice = strings.ToLower(strings.TrimSpace(voice))
	if voice == "" {
		return "en"
	}
	code, _, _ := strings.Cut(voice, "_")
	code, _, _ = strings.Cut(code, "-")
	if alias, ok := languageAliases[code]; ok {
		return alias
	}
	return code
}

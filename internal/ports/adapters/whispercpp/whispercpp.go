package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/types"
)

// AudioPrep converts any narration track into the 16kHz mono wav whisper.cpp reads.
type AudioPrep interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
}

type Adapter struct {
	bin      string
	model    string
	prep     AudioPrep
	cacheDir string
}

func New(binPath, modelPath string, prep AudioPrep, cacheDir string) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath, prep: prep, cacheDir: cacheDir}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath, language string) ([]types.Cue, error) {
	if err := os.MkdirAll(a.cacheDir, 0o755); err != nil {
		return nil, err
	}
	wav := filepath.Join(a.cacheDir, "narration16k.wav")
	if err := a.prep.ExtractAudioMono16k(ctx, audioPath, wav); err != nil {
		return nil, err
	}
	defer os.Remove(wav)

	outPrefix := filepath.Join(a.cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wav,
		"-oj",
		"-of", outPrefix,
	}
	if language != "" {
		args = append(args, "-l", language)
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	defer os.Remove(outPrefix + ".json")

	var tr types.Transcript
	if err := json.Unmarshal(jb, &tr); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	return Cues(tr), nil
}

// Cues maps transcript segments to numbered cues, dropping empty text.
func Cues(tr types.Transcript) []types.Cue {
	var out []types.Cue
	for _, s := range tr.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		out = append(out, types.Cue{
			Index: len(out) + 1,
			Start: dur(s.Start),
			End:   dur(s.End),
			Text:  text,
		})
	}
	return out
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }

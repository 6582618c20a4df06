package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultCommand drives edge-tts. Placeholders are substituted per argument,
// so {text} may contain spaces.
const DefaultCommand = "edge-tts --voice {voice} --text {text} --write-media {out}"

type Adapter struct {
	argv []string
}

func New(command string) (*Adapter, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	argv := strings.Fields(command)
	if !strings.Contains(command, "{out}") {
		return nil, fmt.Errorf("tts command %q has no {out} placeholder", command)
	}
	return &Adapter{argv: argv}, nil
}

func (a *Adapter) Synthesize(ctx context.Context, text, voice, outPath string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("tts: empty text")
	}
	r := strings.NewReplacer("{text}", text, "{voice}", voice, "{out}", outPath)
	args := make([]string, len(a.argv))
	for i, arg := range a.argv {
		args[i] = r.Replace(arg)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(outPath)
		return fmt.Errorf("tts %s: %w\n%s", a.argv[0], err, string(b))
	}
	fi, err := os.Stat(outPath)
	if err != nil {
		return fmt.Errorf("tts produced no file: %w", err)
	}
	if fi.Size() == 0 {
		os.Remove(outPath)
		return fmt.Errorf("tts produced an empty file %s", outPath)
	}
	return nil
}

package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Workspace is one run's scratch directory. It is wiped on open, every
// intermediate is deleted when released, and Close removes what is left.
type Workspace struct {
	dir string
	log zerolog.Logger
}

func OpenWorkspace(dir string, log zerolog.Logger) (*Workspace, error) {
	if dir == "" {
		return nil, errors.New("workspace dir is empty")
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clean workspace: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir, log: log}, nil
}

func (w *Workspace) Dir() string { return w.dir }

func (w *Workspace) Path(name string) string { return filepath.Join(w.dir, name) }

func (w *Workspace) NewPath(ext string) string {
	return filepath.Join(w.dir, uuid.NewString()+ext)
}

// Release deletes paths. Failures are logged, never returned.
func (w *Workspace) Release(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.log.Warn().Str("stage", "cleanup").Str("path", p).Err(err).Msg("release failed")
		}
	}
}

func (w *Workspace) Close() {
	if err := os.RemoveAll(w.dir); err != nil {
		w.log.Warn().Str("stage", "cleanup").Str("path", w.dir).Err(err).Msg("remove workspace failed")
	}
}

package pipeline

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var musicExts = map[string]bool{".mp3": true, ".wav": true, ".ogg": true, ".m4a": true}

// PickMusic extracts the audio entries of archive into dir and returns one of
// them chosen by pick, which receives the number of candidates.
func PickMusic(archive, dir string, pick func(n int) int) (string, error) {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return "", fmt.Errorf("open music archive: %w", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	var tracks []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !musicExts[strings.ToLower(filepath.Ext(f.Name))] {
			continue
		}
		// Entries are flattened into dir.
		out := filepath.Join(dir, fmt.Sprintf("%03d-%s", len(tracks), filepath.Base(f.Name)))
		if err := extract(f, out); err != nil {
			return "", err
		}
		tracks = append(tracks, out)
	}
	if len(tracks) == 0 {
		return "", errors.New("music archive has no audio tracks")
	}
	if pick == nil {
		pick = rand.Intn
	}
	return tracks[pick(len(tracks))], nil
}

func extract(f *zip.File, out string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	w, err := os.Create(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return fmt.Errorf("extract %s: %w", f.Name, err)
	}
	return w.Close()
}

package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/mkshorts/internal/domain/compose"
	"github.com/forPelevin/mkshorts/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) Probe(ctx context.Context, path string) (types.SourceClip, error) {
	b, err := a.probeJSON(ctx, path)
	if err != nil {
		return types.SourceClip{}, &types.MediaReadError{Path: path, Err: err}
	}
	clip, err := parseProbe(b)
	if err != nil {
		return types.SourceClip{}, &types.MediaReadError{Path: path, Err: err}
	}
	clip.Path = path
	return clip, nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	b, err := a.probeJSON(ctx, path)
	if err != nil {
		return 0, &types.MediaReadError{Path: path, Err: err}
	}
	var p probeOutput
	if err := json.Unmarshal(b, &p); err != nil {
		return 0, &types.MediaReadError{Path: path, Err: fmt.Errorf("parse ffprobe output: %w", err)}
	}
	d, err := seconds(p.Format.Duration)
	if err != nil || d <= 0 {
		return 0, &types.MediaReadError{Path: path, Err: fmt.Errorf("no duration (%q)", p.Format.Duration)}
	}
	return d, nil
}

func (a *Adapter) probeJSON(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_format",
		"-show_streams",
		"-of", "json",
		path,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w\n%s", err, stderr.String())
	}
	return b, nil
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	args := ffmpeg.Input(in).
		Output(outWav, ffmpeg.KwArgs{"vn": "", "ac": 1, "ar": 16000, "f": "wav"}).
		OverWriteOutput().
		GetArgs()
	return a.run(ctx, "extract audio", args)
}

// NormalizeSegment writes seg as a silent, centered-crop, 1080x1920 24fps clip
// trimmed to seg.Duration.
func (a *Adapter) NormalizeSegment(ctx context.Context, seg types.NormalizedSegment, out string) error {
	return a.run(ctx, "normalize segment", NormalizeArgs(seg, out))
}

func NormalizeArgs(seg types.NormalizedSegment, out string) []string {
	c := seg.Crop
	return ffmpeg.Input(seg.Source.Path).
		Video().
		Filter("crop", ffmpeg.Args{fmt.Sprintf("%d:%d:%d:%d", c.W, c.H, c.X, c.Y)}).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("%d:%d", seg.Width, seg.Height)}).
		Filter("setsar", ffmpeg.Args{"1"}).
		Filter("fps", ffmpeg.Args{strconv.Itoa(seg.FPS)}).
		Output(out, ffmpeg.KwArgs{
			"t":       fmtSeconds(seg.Duration),
			"c:v":     "libx264",
			"preset":  "veryfast",
			"crf":     18,
			"pix_fmt": "yuv420p",
		}).
		OverWriteOutput().
		GetArgs()
}

// ConcatVideo joins segments that share codec parameters without re-encoding.
func (a *Adapter) ConcatVideo(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return errors.New("ffmpeg concat video: no inputs")
	}
	list, err := writeConcatList(inputs, out+".txt")
	if err != nil {
		return err
	}
	defer os.Remove(list)

	args := ffmpeg.Input(list, ffmpeg.KwArgs{"f": "concat", "safe": 0}).
		Output(out, ffmpeg.KwArgs{"c": "copy", "an": ""}).
		OverWriteOutput().
		GetArgs()
	return a.run(ctx, "concat video", args)
}

// ConcatAudio decodes every input so clips with different sample rates join cleanly.
func (a *Adapter) ConcatAudio(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return errors.New("ffmpeg concat audio: no inputs")
	}
	streams := make([]*ffmpeg.Stream, 0, len(inputs))
	for _, in := range inputs {
		streams = append(streams, ffmpeg.Input(in).Audio())
	}
	args := ffmpeg.Concat(streams, ffmpeg.KwArgs{"v": 0, "a": 1}).
		Output(out, ffmpeg.KwArgs{"c:a": "aac", "b:a": "192k"}).
		OverWriteOutput().
		GetArgs()
	return a.run(ctx, "concat audio", args)
}

func (a *Adapter) Render(ctx context.Context, cv types.ComposedVideo, out string, threads int) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	return a.run(ctx, "render", RenderArgs(cv, out, threads))
}

// RenderArgs burns the cue overlay into the visual track and attaches the
// narration (optionally mixed with music) as the only audio track.
func RenderArgs(cv types.ComposedVideo, out string, threads int) []string {
	if threads <= 0 {
		threads = 1
	}
	fps := cv.FPS
	if fps <= 0 {
		fps = types.OutputFPS
	}
	subKw := ffmpeg.KwArgs{}
	if cv.Style.FontsDir != "" {
		subKw["fontsdir"] = escapeFilterPath(cv.Style.FontsDir)
	}
	video := ffmpeg.Input(cv.VisualPath).
		Video().
		Filter("subtitles", ffmpeg.Args{escapeFilterPath(cv.SubtitlesPath)}, subKw)

	audio := ffmpeg.Input(cv.AudioPath).Audio()
	if cv.MusicPath != "" {
		music := ffmpeg.Input(cv.MusicPath, ffmpeg.KwArgs{"stream_loop": -1}).
			Audio().
			Filter("volume", ffmpeg.Args{strconv.FormatFloat(compose.MusicVolume, 'f', 2, 64)})
		audio = ffmpeg.Filter([]*ffmpeg.Stream{audio, music}, "amix", ffmpeg.Args{}, ffmpeg.KwArgs{
			"inputs":             2,
			"duration":           "first",
			"dropout_transition": 0,
		})
	}

	return ffmpeg.Output([]*ffmpeg.Stream{video, audio}, out, ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   "medium",
		"pix_fmt":  "yuv420p",
		"r":        strconv.FormatFloat(fps, 'f', -1, 64),
		"c:a":      "aac",
		"b:a":      "192k",
		"threads":  threads,
		"movflags": "+faststart",
		"shortest": "",
	}).
		OverWriteOutput().
		GetArgs()
}

func (a *Adapter) run(ctx context.Context, op string, args []string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

func writeConcatList(inputs []string, listPath string) (string, error) {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", err
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return listPath, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		Duration     string `json:"duration"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(b []byte) (types.SourceClip, error) {
	var p probeOutput
	if err := json.Unmarshal(b, &p); err != nil {
		return types.SourceClip{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	for _, s := range p.Streams {
		if s.CodecType != "video" {
			continue
		}
		d, err := seconds(s.Duration)
		if err != nil || d <= 0 {
			d, _ = seconds(p.Format.Duration)
		}
		if d <= 0 {
			return types.SourceClip{}, errors.New("video stream has no duration")
		}
		fps := frameRate(s.AvgFrameRate)
		if fps == 0 {
			fps = frameRate(s.RFrameRate)
		}
		return types.SourceClip{Duration: d, Width: s.Width, Height: s.Height, FPS: fps}, nil
	}
	return types.SourceClip{}, errors.New("no video stream")
}

func seconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, errors.New("empty duration")
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func frameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// escapeFilterPath applies option-level escaping. ffmpeg-go passes filter
// args through unescaped and only adds the graph level on top.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

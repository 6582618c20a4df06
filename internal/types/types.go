package types

import "time"

// Output geometry shared by every stage that produces video.
const (
	OutputWidth  = 1080
	OutputHeight = 1920
	OutputFPS    = 24

	// PortraitRatio is OutputWidth/OutputHeight (9:16).
	PortraitRatio = 0.5625
)

// SourceClip is a downloaded raw stock video.
type SourceClip struct {
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
}

// CropRect is a centered crop window in source pixels.
type CropRect struct {
	W int
	H int
	X int
	Y int
}

// NormalizedSegment is one timeline unit derived from a SourceClip.
// Path is empty until the segment has been materialized by a VideoTool.
type NormalizedSegment struct {
	Source   SourceClip
	Path     string
	Duration time.Duration
	Crop     CropRect
	Width    int
	Height   int
	FPS      int
}

type Timeline struct {
	Segments []NormalizedSegment
	// Path of the concatenated, audio-free visual track.
	Path string
}

func (t Timeline) Duration() time.Duration {
	var d time.Duration
	for _, s := range t.Segments {
		d += s.Duration
	}
	return d
}

type SentenceAudio struct {
	Sentence string
	Path     string
	Duration time.Duration
}

type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// SubtitleStyle drives the burned-in overlay.
type SubtitleStyle struct {
	Font       string
	FontsDir   string
	FontSize   int
	Color      string
	Background string
	Position   string
	Stroke     int
}

type ComposedVideo struct {
	VisualPath    string
	SubtitlesPath string
	AudioPath     string
	MusicPath     string
	Style         SubtitleStyle
	// FPS is the frame rate of the visual track.
	FPS float64

	VisualDuration time.Duration
	AudioDuration  time.Duration
	Drift          time.Duration
	DriftExceeded  bool
}

type RenderedOutput struct {
	Path     string
	Duration time.Duration
}

// Transcript mirrors the whisper.cpp JSON output.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type UploadRequest struct {
	File        string
	Title       string
	Description string
	Category    string
	Keywords    []string
	ChannelID   string
	Privacy     string
}

// RunState is persisted as state.json in the run directory.
type RunState struct {
	RunID      string    `json:"run_id" bson:"run_id"`
	Subject    string    `json:"subject" bson:"subject"`
	StartedAt  time.Time `json:"started_at" bson:"started_at"`
	FinishedAt time.Time `json:"finished_at" bson:"finished_at"`
	Script     string    `json:"script,omitempty" bson:"script,omitempty"`
	Terms      []string  `json:"terms,omitempty" bson:"terms,omitempty"`
	Sentences  int       `json:"sentences" bson:"sentences"`
	Clips      int       `json:"clips" bson:"clips"`
	Subtitles  string    `json:"subtitles,omitempty" bson:"subtitles,omitempty"`
	Output     string    `json:"output,omitempty" bson:"output,omitempty"`
	DurationS  float64   `json:"duration_sec" bson:"duration_sec"`
	VideoID    string    `json:"video_id,omitempty" bson:"video_id,omitempty"`
	Warnings   []string  `json:"warnings,omitempty" bson:"warnings,omitempty"`
	Error      string    `json:"error,omitempty" bson:"error,omitempty"`
}

// ScriptRequest carries the narration-generation inputs. An empty Model
// falls back to the writer's configured default.
type ScriptRequest struct {
	Subject        string
	Paragraphs     int
	Model          string
	Language       string
	PromptTemplate string
}

// Job is one queued request handled by worker mode.
type Job struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Voice   string `json:"voice,omitempty"`
	// Upload overrides the configured upload switch when set.
	Upload  *bool  `json:"upload,omitempty"`
}

type JobResult struct {
	JobID      string    `json:"job_id"`
	RunID      string    `json:"run_id"`
	Output     string    `json:"output,omitempty"`
	VideoID    string    `json:"video_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config flag is given and the file exists.
const DefaultFile = "mkshorts.yaml"

type Subtitles struct {
	Position   string `yaml:"position"`
	Color      string `yaml:"color"`
	Background string `yaml:"background"`
	Font       string `yaml:"font"`
	FontsDir   string `yaml:"fonts_dir"`
	FontSize   int    `yaml:"font_size"`
	Stroke     int    `yaml:"stroke"`
	MaxChars   int    `yaml:"max_chars"`
}

type YouTube struct {
	ChannelID         string `yaml:"channel_id"`
	Privacy           string `yaml:"privacy_status"`
	Category          string `yaml:"category"`
	ClientSecretsPath string `yaml:"client_secrets_path"`
	// CredentialsPath holds the OAuth token saved by `mkshorts auth`.
	CredentialsPath string `yaml:"credentials_path"`
}

type Paths struct {
	WorkDir string `yaml:"work_dir"`
	OutDir  string `yaml:"output_dir"`
	// Output is the rendered file; empty means output.mp4 in OutDir.
	Output       string `yaml:"output"`
	LogFile      string `yaml:"log_file"`
	FFmpeg       string `yaml:"ffmpeg"`
	FFprobe      string `yaml:"ffprobe"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

// Env carries secrets and endpoints. They never come from the YAML file.
type Env struct {
	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string
	PexelsAPIKey           string
	AssemblyAIAPIKey       string
	TTSCommand             string
	MongoURI               string
	RedisURL               string
}

type Config struct {
	Subject        string        `yaml:"subject"`
	Voice          string        `yaml:"voice"`
	Model          string        `yaml:"model"`
	PromptTemplate string        `yaml:"prompt_template"`
	Paragraphs     int           `yaml:"paragraphs"`
	Terms          int           `yaml:"terms"`
	Threads        int           `yaml:"threads"`
	MaxClip        time.Duration `yaml:"max_clip"`
	UseMusic       bool          `yaml:"use_music"`
	MusicZip       string        `yaml:"music_zip"`
	AutomateUpload bool          `yaml:"automate_upload"`
	Subtitles      Subtitles     `yaml:"subtitles"`
	YouTube        YouTube       `yaml:"youtube"`
	Paths          Paths         `yaml:"paths"`

	Env Env `yaml:"-"`
}

func Default() Config {
	return Config{
		Voice:      "en-US-AriaNeural",
		Paragraphs: 1,
		Terms:      5,
		Threads:    2,
		MaxClip:    10 * time.Second,
		MusicZip:   "Songs/songs.zip",
		Subtitles: Subtitles{
			Position:   "center,center",
			Color:      "#FFFF00",
			Background: "transparent",
			Font:       "Arial",
			FontSize:   100,
			Stroke:     5,
			MaxChars:   10,
		},
		YouTube: YouTube{
			Privacy:           "private",
			Category:          "28",
			ClientSecretsPath: "client_secret.json",
			CredentialsPath:   ".cache/youtube-token.json",
		},
		Paths: Paths{
			WorkDir: ".cache/work",
			OutDir:  "out",
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
	}
}

// Load reads path over the defaults, then overlays the environment. An empty
// path falls back to DefaultFile when it exists and to pure defaults otherwise.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Decode(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// Decode merges YAML b into cfg. Unknown keys are rejected so typos surface.
func Decode(b []byte, cfg *Config) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func (c *Config) ApplyEnv(getenv func(string) string) {
	c.Env = Env{
		OpenRouterAPIKey:       getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:        getenv("OPENROUTER_MODEL"),
		OpenRouterBaseURL:      getenv("OPENROUTER_BASE_URL"),
		OpenRouterAllowedHosts: splitList(getenv("OPENROUTER_ALLOWED_HOSTS")),
		PexelsAPIKey:           getenv("PEXELS_API_KEY"),
		AssemblyAIAPIKey:       getenv("ASSEMBLY_AI_API_KEY"),
		TTSCommand:             getenv("TTS_COMMAND"),
		MongoURI:               getenv("MONGODB_URI"),
		RedisURL:               getenv("REDIS_URL"),
	}
	if c.Env.OpenRouterBaseURL == "" {
		c.Env.OpenRouterBaseURL = "https://openrouter.ai"
	}
	if v := getenv("MKSHORTS_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Threads = n
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

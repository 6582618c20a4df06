package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/domain/subtitles"
	"github.com/forPelevin/mkshorts/internal/retry"
	"github.com/forPelevin/mkshorts/internal/types"
)

const (
	defaultBaseURL = "https://api.assemblyai.com"
	pollInterval   = 3 * time.Second
)

type Adapter struct {
	key     string
	baseURL string
	client  *http.Client
	poll    time.Duration
	policy  retry.Policy
}

type Option func(*Adapter)

func WithBaseURL(u string) Option { return func(a *Adapter) { a.baseURL = strings.TrimRight(u, "/") } }

func WithPollInterval(d time.Duration) Option { return func(a *Adapter) { a.poll = d } }

func WithRetry(p retry.Policy) Option { return func(a *Adapter) { a.policy = p } }

func New(apiKey string, opts ...Option) *Adapter {
	a := &Adapter{
		key:     apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 2 * time.Minute},
		poll:    pollInterval,
		policy: retry.Policy{
			MaxRetries: 3,
			Retriable:  Retriable,
			Backoff:    retry.Jittered(time.Second, nil),
		},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("assemblyai status %d: %s", e.Code, e.Body)
}

// Retriable reports 5xx answers and transport failures.
func Retriable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// Transcribe uploads the narration, waits for the transcript and returns its
// SRT rendition as cues.
func (a *Adapter) Transcribe(ctx context.Context, audioPath, language string) ([]types.Cue, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, err
	}

	var up struct {
		UploadURL string `json:"upload_url"`
	}
	if err := a.do(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", audio, &up); err != nil {
		return nil, fmt.Errorf("assemblyai upload: %w", err)
	}

	req, err := json.Marshal(map[string]any{"audio_url": up.UploadURL, "language_code": language})
	if err != nil {
		return nil, err
	}
	var job transcript
	if err := a.do(ctx, http.MethodPost, "/v2/transcript", "application/json", req, &job); err != nil {
		return nil, fmt.Errorf("assemblyai submit: %w", err)
	}

	if err := a.wait(ctx, job.ID); err != nil {
		return nil, err
	}

	var srt []byte
	if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+job.ID+"/srt", "", nil, &srt); err != nil {
		return nil, fmt.Errorf("assemblyai srt: %w", err)
	}
	cues, err := subtitles.Decode(string(srt))
	if err != nil {
		return nil, fmt.Errorf("assemblyai srt: %w", err)
	}
	return cues, nil
}

type transcript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (a *Adapter) wait(ctx context.Context, id string) error {
	for {
		var tr transcript
		if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+id, "", nil, &tr); err != nil {
			return fmt.Errorf("assemblyai poll: %w", err)
		}
		switch tr.Status {
		case "completed":
			return nil
		case "error":
			return fmt.Errorf("assemblyai transcript %s failed: %s", id, tr.Error)
		}
		if err := retry.Sleep(ctx, a.poll); err != nil {
			return err
		}
	}
}

// do performs one API call under the retry policy. out is either *[]byte for
// raw bodies or a pointer decoded as JSON.
func (a *Adapter) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	return a.policy.Do(ctx, func(ctx context.Context) error {
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, rd)
		if err != nil {
			return err
		}
		req.Header.Set("authorization", a.key)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		rb, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := strings.ReplaceAll(string(rb), a.key, "[REDACTED]")
			if len(msg) > 300 {
				msg = msg[:300]
			}
			return &statusError{Code: resp.StatusCode, Body: msg}
		}
		if raw, ok := out.(*[]byte); ok {
			*raw = rb
			return nil
		}
		return json.Unmarshal(rb, out)
	})
}

package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/mkshorts/internal/domain/terms"
	"github.com/forPelevin/mkshorts/internal/types"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
}

const (
	requestTimeout = 90 * time.Second

	subjectPlaceholder = "{videoSubject}"

	defaultScriptPrompt = `Generate a script for a short vertical video about the subject below.
The script is returned as plain text, split into the requested number of paragraphs.
Get straight to the point: no "welcome to this video", no title, no markdown, no speaker labels.
Never mention this prompt or the number of paragraphs. Write in plain sentences ending with periods.

Subject: {videoSubject}`
)

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	baseURL = normalizeBaseURL(baseURL)
	return &Adapter{key: apiKey, model: model, baseURL: baseURL, client: &http.Client{Timeout: 5 * time.Minute}}
}

func (a *Adapter) GenerateScript(ctx context.Context, req types.ScriptRequest) (string, error) {
	tmpl := strings.TrimSpace(req.PromptTemplate)
	if tmpl == "" {
		tmpl = defaultScriptPrompt
	}
	prompt := strings.ReplaceAll(tmpl, subjectPlaceholder, req.Subject)
	if !strings.Contains(tmpl, subjectPlaceholder) {
		prompt += "\n\nSubject: " + req.Subject
	}
	paragraphs := req.Paragraphs
	if paragraphs <= 0 {
		paragraphs = 1
	}
	prompt += fmt.Sprintf("\nNumber of paragraphs: %d", paragraphs)
	if req.Language != "" {
		prompt += "\nLanguage (ISO 639-1): " + req.Language
	}

	content, err := a.chat(ctx, req.Model, prompt, nil)
	if err != nil {
		return "", err
	}
	script := strings.TrimSpace(stripFences(content))
	if script == "" {
		return "", errors.New("openrouter: empty script")
	}
	return script, nil
}

func (a *Adapter) SearchTerms(ctx context.Context, subject, script string, count int, model string) ([]string, error) {
	if count <= 0 {
		count = terms.DefaultCount
	}
	prompt := fmt.Sprintf(`Generate %d search terms for stock videos that match the subject of a short video.
Each term is 1-3 words, concrete and visual, and always mentions the main subject.
Return strictly valid JSON (no markdown, no code fences) matching the provided schema.

Subject: %s

Script:
%s`, count, subject, script)

	schema := map[string]any{
		"name": "mkshorts_terms",
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"terms": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"terms"},
		},
	}
	content, err := a.chat(ctx, model, prompt, schema)
	if err != nil {
		return nil, err
	}

	var raw []string
	var out struct {
		Terms []string `json:"terms"`
	}
	if clean, err := extractJSONObject(content); err == nil && json.Unmarshal([]byte(clean), &out) == nil && len(out.Terms) > 0 {
		raw = out.Terms
	} else {
		// Some models ignore response_format and answer with a bare list.
		raw = terms.Parse(content)
	}
	res := terms.Clean(raw, count)
	if len(res) == 0 {
		return nil, fmt.Errorf("openrouter: no search terms in %q", truncate(content, 200))
	}
	return res, nil
}

func (a *Adapter) GenerateMetadata(ctx context.Context, subject, script string, model string) (types.Metadata, error) {
	prompt := fmt.Sprintf(`Write upload metadata for a short vertical video.
The title is catchy and under 100 characters. The description is 2-3 sentences.
Keywords are 6 to 10 short tags without the '#' sign.
Return strictly valid JSON (no markdown, no code fences) matching the provided schema.

Subject: %s

Script:
%s`, subject, script)

	schema := map[string]any{
		"name": "mkshorts_metadata",
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title":       map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
				"keywords":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"title", "description", "keywords"},
		},
	}
	content, err := a.chat(ctx, model, prompt, schema)
	if err != nil {
		return types.Metadata{}, err
	}
	clean, err := extractJSONObject(content)
	if err != nil {
		return types.Metadata{}, err
	}
	var md types.Metadata
	if err := json.Unmarshal([]byte(clean), &md); err != nil {
		return types.Metadata{}, fmt.Errorf("openrouter: decode metadata: %w", err)
	}
	md.Title = strings.TrimSpace(md.Title)
	md.Description = strings.TrimSpace(md.Description)
	if md.Title == "" {
		md.Title = subject
	}
	md.Keywords = terms.Clean(md.Keywords, 0)
	return md, nil
}

type chatMessage struct {
	Role    string         `json:"role"`
	Content messageContent `json:"content"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema map[string]any `json:"json_schema"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Stream         bool            `json:"stream"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// messageContent accepts both a plain string and the array of {type,text}
// parts some providers answer with.
type messageContent string

func (c *messageContent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = messageContent(s)
		return nil
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("openrouter: unexpected content: %s", truncate(string(b), 80))
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.Text)
	}
	*c = messageContent(sb.String())
	return nil
}

// chat sends one user message and returns the first choice's text. A non-nil
// schema is sent as a json_schema response format.
func (a *Adapter) chat(ctx context.Context, model, prompt string, schema map[string]any) (string, error) {
	if model == "" {
		model = a.model
	}
	payload := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: messageContent(prompt)}},
	}
	if schema != nil {
		payload.ResponseFormat = &responseFormat{Type: "json_schema", JSONSchema: schema}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, model)
		}
		return "", fmt.Errorf("openrouter request: %s", redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openrouter: no choices")
	}
	text := string(out.Choices[0].Message.Content)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("openrouter: empty content")
	}
	return text, nil
}

// stripFences drops a surrounding ``` block, language tag included.
func stripFences(s string) string {
	t := strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(t, "```")
	if !ok {
		return t
	}
	if _, body, found := strings.Cut(rest, "\n"); found {
		rest = body
	}
	rest, _ = strings.CutSuffix(strings.TrimSpace(rest), "```")
	return strings.TrimSpace(rest)
}

// extractJSONObject returns the outermost {...} span of a model answer.
func extractJSONObject(s string) (string, error) {
	t := stripFences(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}
	start, end := strings.IndexByte(t, '{'), strings.LastIndexByte(t, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
	}
	return t[start : end+1], nil
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

var secretPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`), "Bearer [REDACTED]"},
	{regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`), "${1}[REDACTED]"},
	{regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`), "${1}[REDACTED]"},
}

func redactSecrets(s, apiKey string) string {
	if apiKey != "" {
		s = strings.ReplaceAll(s, apiKey, "[REDACTED]")
	}
	for _, p := range secretPatterns {
		s = p.re.ReplaceAllString(s, p.repl)
	}
	return s
}

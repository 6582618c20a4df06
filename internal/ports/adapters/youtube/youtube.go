package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/forPelevin/mkshorts/internal/retry"
	"github.com/forPelevin/mkshorts/internal/types"
)

// MaxRetries bounds upload attempts after the first one.
const MaxRetries = 10

var scopes = []string{yt.YoutubeUploadScope, yt.YoutubeScope, yt.YoutubepartnerScope}

var retriableStatus = map[int]bool{500: true, 502: true, 503: true, 504: true}

// Retriable reports 5xx API answers and transport failures.
func Retriable(err error) bool {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return retriableStatus[ge.Code]
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

type Adapter struct {
	svc    *yt.Service
	policy retry.Policy
	log    zerolog.Logger
}

type Option func(*Adapter)

func WithRetry(p retry.Policy) Option { return func(a *Adapter) { a.policy = p } }

func New(svc *yt.Service, log zerolog.Logger, opts ...Option) *Adapter {
	a := &Adapter{svc: svc, log: log}
	a.policy = retry.Policy{
		MaxRetries: MaxRetries,
		Retriable:  Retriable,
		Backoff:    retry.Jittered(time.Second, nil),
		OnRetry: func(n int, err error, wait time.Duration) {
			a.log.Warn().Err(err).Int("retry", n).Dur("sleep", wait).Msg("retriable upload error")
		},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Upload inserts the video and returns its id. The file is re-read from the
// start on every attempt.
func (a *Adapter) Upload(ctx context.Context, req types.UploadRequest) (string, error) {
	f, err := os.Open(req.File)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       req.Title,
			Description: req.Description,
			Tags:        req.Keywords,
			CategoryId:  req.Category,
			ChannelId:   req.ChannelID,
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           req.Privacy,
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	var id string
	err = a.policy.Do(ctx, func(ctx context.Context) error {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return err
		}
		a.log.Info().Str("file", req.File).Msg("uploading")
		res, err := a.svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
		if err != nil {
			return err
		}
		if res.Id == "" {
			return errors.New("youtube upload: response has no video id")
		}
		id = res.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	return id, nil
}

type Credentials struct {
	// ClientSecretsPath is the OAuth client JSON downloaded from the API console.
	ClientSecretsPath string
	// TokenPath stores the authorized token (brand account credentials).
	TokenPath string
}

// NewService builds an authorized API client from stored credentials.
func NewService(ctx context.Context, c Credentials, log zerolog.Logger) (*yt.Service, error) {
	conf, err := oauthConfig(c.ClientSecretsPath)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(c.TokenPath)
	if err != nil {
		return nil, fmt.Errorf("youtube credentials %s: %w (run `mkshorts auth` first)", c.TokenPath, err)
	}
	ts := &savingSource{base: conf.TokenSource(ctx, tok), path: c.TokenPath, last: tok.AccessToken, log: log}
	svc, err := yt.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// Authorize runs the console flow: print the consent URL, read the code the
// user pastes and store the resulting token.
func Authorize(ctx context.Context, c Credentials, in io.Reader, out io.Writer) error {
	conf, err := oauthConfig(c.ClientSecretsPath)
	if err != nil {
		return err
	}
	url := conf.AuthCodeURL("mkshorts", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open this URL, authorize the brand account and paste the code:\n%s\n> ", url)

	var code string
	if _, err := fmt.Fscanln(in, &code); err != nil {
		return fmt.Errorf("read authorization code: %w", err)
	}
	tok, err := conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}
	return saveToken(c.TokenPath, tok)
}

func oauthConfig(secretsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}
	return conf, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, errors.New("token file holds no token")
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	b, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// savingSource persists refreshed tokens so the next run skips a refresh.
type savingSource struct {
	base oauth2.TokenSource
	path string
	last string
	log  zerolog.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			s.log.Warn().Err(err).Str("stage", "upload").Str("path", s.path).Msg("save refreshed token")
		}
	}
	return tok, nil
}

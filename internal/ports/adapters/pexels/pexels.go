package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.pexels.com"

type Adapter struct {
	key     string
	baseURL string
	client  *http.Client
}

func New(apiKey, baseURL string) *Adapter {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Adapter{key: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{Timeout: 5 * time.Minute}}
}

type searchResponse struct {
	Videos []struct {
		Duration   float64 `json:"duration"`
		VideoFiles []struct {
			Link     string `json:"link"`
			FileType string `json:"file_type"`
			Width    int    `json:"width"`
			Height   int    `json:"height"`
		} `json:"video_files"`
	} `json:"videos"`
}

// Search returns, per matching video at least minDuration long, the link of
// its highest-resolution mp4 rendition. Result order follows the API.
func (a *Adapter) Search(ctx context.Context, query string, perPage int, minDuration time.Duration) ([]string, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", strconv.Itoa(perPage))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/videos/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", a.key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels status %d for %q", resp.StatusCode, query)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("pexels decode: %w", err)
	}

	var out []string
	for _, v := range sr.Videos {
		if time.Duration(v.Duration*float64(time.Second)) < minDuration {
			continue
		}
		best, bestRes := "", 0
		for _, f := range v.VideoFiles {
			if f.FileType != "video/mp4" {
				continue
			}
			if res := f.Width * f.Height; res > bestRes {
				best, bestRes = f.Link, res
			}
		}
		if best != "" {
			out = append(out, best)
		}
	}
	return out, nil
}

// Download streams rawURL into outPath. A partial file never survives a failure.
func (a *Adapter) Download(ctx context.Context, rawURL, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}

	tmp := outPath + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, outPath)
}

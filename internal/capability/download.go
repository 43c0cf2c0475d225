package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"aura-assistant-backend/internal/config"
	"aura-assistant-backend/internal/intent"
)

const downloadTimeout = 60 * time.Second

var errNoDownloadURL = errors.New("download service returned no url")

type DownloadLink struct {
	URL      string        `json:"url"`
	Filename string        `json:"filename,omitempty"`
	Format   intent.Format `json:"format"`
	Source   string        `json:"source"`
}

type cobaltRequest struct {
	URL          string `json:"url"`
	DownloadMode string `json:"downloadMode"`
	AudioFormat  string `json:"audioFormat,omitempty"`
	VideoQuality string `json:"videoQuality,omitempty"`
}

type cobaltResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Picker   []struct {
		URL string `json:"url"`
	} `json:"picker"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// MediaDownloadClient resolves a media page URL into a direct file link via a
// cobalt-compatible API. It never proxies the file itself.
type MediaDownloadClient struct {
	http    *http.Client
	baseURL string
	key     string
	guard   *guard
}

func NewMediaDownloadClient(cfg config.Config, logger *zap.Logger, rec Recorder) *MediaDownloadClient {
	return &MediaDownloadClient{
		http:    &http.Client{},
		baseURL: strings.TrimRight(cfg.MediaDownloadURL, "/"),
		key:     cfg.MediaDownloadKey,
		guard:   newGuard("download", downloadTimeout, logger, rec),
	}
}

func (c *MediaDownloadClient) Enabled() bool { return c.baseURL != "" }

func (c *MediaDownloadClient) Status() Status {
	return Status{Name: "download", Configured: c.Enabled(), Provider: "cobalt", Breaker: c.guard.state()}
}

func (c *MediaDownloadClient) Download(ctx context.Context, mediaURL string, format intent.Format) Result[DownloadLink] {
	if !c.Enabled() {
		return skip[DownloadLink](c.guard)
	}
	return run(ctx, c.guard, "The download service is unavailable right now.", func(ctx context.Context) (DownloadLink, error) {
		return c.download(ctx, mediaURL, format)
	})
}

func (c *MediaDownloadClient) download(ctx context.Context, mediaURL string, format intent.Format) (DownloadLink, error) {
	req := cobaltRequest{URL: mediaURL, DownloadMode: "auto", VideoQuality: "720"}
	if format != intent.MP4 {
		format = intent.MP3
		req = cobaltRequest{URL: mediaURL, DownloadMode: "audio", AudioFormat: "mp3"}
	}
	b, err := json.Marshal(req)
	if err != nil {
		return DownloadLink{}, fmt.Errorf("encode download request: %w", err)
	}
	headers := map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
	}
	if c.key != "" {
		headers["Authorization"] = "Api-Key " + c.key
	}

	var out cobaltResponse
	if err := doJSON(ctx, c.http, "media download", http.MethodPost, c.baseURL+"/", headers, bytes.NewReader(b), &out); err != nil {
		return DownloadLink{}, err
	}
	link := DownloadLink{Filename: out.Filename, Format: format, Source: mediaURL}
	switch out.Status {
	case "tunnel", "redirect", "stream":
		link.URL = out.URL
	case "picker":
		if len(out.Picker) > 0 {
			link.URL = out.Picker[0].URL
		}
	case "error":
		code := "unknown"
		if out.Error != nil {
			code = out.Error.Code
		}
		return DownloadLink{}, fmt.Errorf("media download: %s", code)
	default:
		return DownloadLink{}, fmt.Errorf("media download: unexpected status %q", out.Status)
	}
	if link.URL == "" {
		return DownloadLink{}, errNoDownloadURL
	}
	return link, nil
}

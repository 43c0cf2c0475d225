package capability

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"aura-assistant-backend/internal/config"
	"aura-assistant-backend/internal/store"
)

const recognizeTimeout = 60 * time.Second

type SongMatch struct {
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	Label       string `json:"label,omitempty"`
	Timecode    string `json:"timecode,omitempty"`
	SongLink    string `json:"songLink,omitempty"`
}

// Recognition with Found=false is a successful call that matched nothing.
type Recognition struct {
	Found bool       `json:"found"`
	Song  *SongMatch `json:"song,omitempty"`
}

type auddResponse struct {
	Status string `json:"status"`
	Result *struct {
		Artist      string `json:"artist"`
		Title       string `json:"title"`
		Album       string `json:"album"`
		ReleaseDate string `json:"release_date"`
		Label       string `json:"label"`
		Timecode    string `json:"timecode"`
		SongLink    string `json:"song_link"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

// RecognitionClient identifies songs through the AudD API. Results are cached
// by the SHA-256 of the uploaded bytes.
type RecognitionClient struct {
	http    *http.Client
	token   string
	baseURL string
	cache   store.Cache
	ttl     time.Duration
	logger  *zap.Logger
	guard   *guard
}

func NewRecognitionClient(cfg config.Config, cache store.Cache, logger *zap.Logger, rec Recorder) *RecognitionClient {
	return &RecognitionClient{
		http:    &http.Client{},
		token:   cfg.AudDAPIToken,
		baseURL: strings.TrimRight(cfg.AudDBaseURL, "/"),
		cache:   cache,
		ttl:     cfg.CacheTTL,
		logger:  logger,
		guard:   newGuard("recognition", recognizeTimeout, logger, rec),
	}
}

func (c *RecognitionClient) Enabled() bool { return c.token != "" }

func (c *RecognitionClient) Status() Status {
	return Status{Name: "recognition", Configured: c.Enabled(), Provider: "audd", Breaker: c.guard.state()}
}

func (c *RecognitionClient) Recognize(ctx context.Context, audio []byte, filename string) Result[Recognition] {
	if !c.Enabled() {
		return skip[Recognition](c.guard)
	}
	sum := sha256.Sum256(audio)
	key := "recognize:" + hex.EncodeToString(sum[:])
	var cached Recognition
	if store.GetJSON(ctx, c.cache, key, &cached) {
		return succeed(cached)
	}

	res := run(ctx, c.guard, "Song recognition is unavailable right now.", func(ctx context.Context) (Recognition, error) {
		return c.recognize(ctx, audio, filename)
	})
	if res.Success {
		if err := store.SetJSON(ctx, c.cache, key, res.Payload, c.ttl); err != nil {
			c.logger.Debug("recognition cache write failed", zap.Error(err))
		}
	}
	return res
}

func (c *RecognitionClient) recognize(ctx context.Context, audio []byte, filename string) (Recognition, error) {
	if filename == "" {
		filename = "sample"
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("api_token", c.token); err != nil {
		return Recognition{}, fmt.Errorf("audd: build form: %w", err)
	}
	if err := mw.WriteField("return", "spotify"); err != nil {
		return Recognition{}, fmt.Errorf("audd: build form: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Recognition{}, fmt.Errorf("audd: build form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Recognition{}, fmt.Errorf("audd: build form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Recognition{}, fmt.Errorf("audd: build form: %w", err)
	}

	var out auddResponse
	err = doJSON(ctx, c.http, "audd", http.MethodPost, c.baseURL+"/", map[string]string{
		"Content-Type": mw.FormDataContentType(),
	}, &body, &out)
	if err != nil {
		return Recognition{}, err
	}
	if out.Status != "success" {
		if out.Error != nil {
			return Recognition{}, fmt.Errorf("audd: error %d: %s", out.Error.Code, out.Error.Message)
		}
		return Recognition{}, fmt.Errorf("audd: unexpected status %q", out.Status)
	}
	if out.Result == nil {
		return Recognition{Found: false}, nil
	}
	r := out.Result
	return Recognition{Found: true, Song: &SongMatch{
		Title:       r.Title,
		Artist:      r.Artist,
		Album:       r.Album,
		ReleaseDate: r.ReleaseDate,
		Label:       r.Label,
		Timecode:    r.Timecode,
		SongLink:    r.SongLink,
	}}, nil
}

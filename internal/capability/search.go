package capability

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"aura-assistant-backend/internal/config"
	"aura-assistant-backend/internal/store"
)

const (
	searchTimeout      = 15 * time.Second
	DefaultSearchLimit = 5
	MaxSearchLimit     = 25
)

type MediaItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Channel   string `json:"channel"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// MediaSearchClient queries the YouTube Data API for videos.
type MediaSearchClient struct {
	http    *http.Client
	key     string
	baseURL string
	cache   store.Cache
	ttl     time.Duration
	logger  *zap.Logger
	guard   *guard
}

func NewMediaSearchClient(cfg config.Config, cache store.Cache, logger *zap.Logger, rec Recorder) *MediaSearchClient {
	return &MediaSearchClient{
		http:    &http.Client{},
		key:     cfg.YouTubeAPIKey,
		baseURL: strings.TrimRight(cfg.YouTubeBaseURL, "/"),
		cache:   cache,
		ttl:     cfg.CacheTTL,
		logger:  logger,
		guard:   newGuard("search", searchTimeout, logger, rec),
	}
}

func (c *MediaSearchClient) Enabled() bool { return c.key != "" }

func (c *MediaSearchClient) Status() Status {
	return Status{Name: "search", Configured: c.Enabled(), Provider: "youtube", Breaker: c.guard.state()}
}

// ClampLimit maps a requested result count into [1, MaxSearchLimit].
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	}
	return limit
}

// Search returns up to limit videos for query, best match first.
func (c *MediaSearchClient) Search(ctx context.Context, query string, limit int) Result[[]MediaItem] {
	if !c.Enabled() {
		return skip[[]MediaItem](c.guard)
	}
	limit = ClampLimit(limit)
	key := fmt.Sprintf("search:%d:%s", limit, strings.ToLower(strings.TrimSpace(query)))
	var cached []MediaItem
	if store.GetJSON(ctx, c.cache, key, &cached) {
		return succeed(cached)
	}

	res := run(ctx, c.guard, "Media search is unavailable right now.", func(ctx context.Context) ([]MediaItem, error) {
		return c.search(ctx, query, limit)
	})
	if res.Success {
		if err := store.SetJSON(ctx, c.cache, key, res.Payload, c.ttl); err != nil {
			c.logger.Debug("search cache write failed", zap.Error(err))
		}
	}
	return res
}

func (c *MediaSearchClient) search(ctx context.Context, query string, limit int) ([]MediaItem, error) {
	q := url.Values{}
	q.Set("part", "snippet")
	q.Set("type", "video")
	q.Set("maxResults", strconv.Itoa(limit))
	q.Set("q", query)
	q.Set("key", c.key)

	var out youtubeSearchResponse
	if err := doJSON(ctx, c.http, "youtube search", http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil, nil, &out); err != nil {
		return nil, err
	}
	items := make([]MediaItem, 0, len(out.Items))
	for _, it := range out.Items {
		if it.ID.VideoID == "" {
			continue
		}
		item := MediaItem{
			ID:      it.ID.VideoID,
			Title:   html.UnescapeString(it.Snippet.Title),
			Channel: html.UnescapeString(it.Snippet.ChannelTitle),
			URL:     "https://www.youtube.com/watch?v=" + it.ID.VideoID,
		}
		for _, size := range []string{"high", "medium", "default"} {
			if th, ok := it.Snippet.Thumbnails[size]; ok && th.URL != "" {
				item.Thumbnail = th.URL
				break
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// Package store provides the short-lived result cache used by capability
// clients. Nothing here holds conversation state.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Backend() string
	Close() error
}

// New returns a Redis cache when redisURL is set and reachable, otherwise an
// in-memory cache.
func New(ctx context.Context, redisURL string, logger *zap.Logger) Cache {
	if redisURL == "" {
		logger.Info("cache backend selected", zap.String("backend", "memory"))
		return NewMemoryCache(1000)
	}
	rc, err := NewRedisCache(ctx, redisURL, logger)
	if err != nil {
		logger.Warn("redis unavailable, falling back to memory cache", zap.Error(err))
		return NewMemoryCache(1000)
	}
	logger.Info("cache backend selected", zap.String("backend", "redis"))
	return rc
}

// GetJSON decodes a cached JSON value into out. An entry that does not
// decode is evicted and counts as a miss.
func GetJSON(ctx context.Context, c Cache, key string, out any) bool {
	if c == nil {
		return false
	}
	b, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		_ = c.Delete(ctx, key)
		return false
	}
	return true
}

// SetJSON stores v as JSON.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return c.Set(ctx, key, b, ttl)
}

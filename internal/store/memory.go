package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache keeps entries in process memory. Expired entries are dropped on
// read and by Sweep.
type MemoryCache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
}

func NewMemoryCache(maxEntries int) *MemoryCache {
	return &MemoryCache{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	out := append([]byte(nil), e.value...)
	return out, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.entries[key] = entry{value: append([]byte(nil), value...), expiresAt: exp}
	m.trimLocked()
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) Ping(context.Context) error { return nil }

func (m *MemoryCache) Backend() string { return "memory" }

func (m *MemoryCache) Close() error { return nil }

// Len returns the number of stored entries, expired or not.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (m *MemoryCache) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// SweepEvery runs Sweep on interval until ctx is done.
func (m *MemoryCache) SweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// trimLocked evicts the entries closest to expiry once the cap is exceeded.
func (m *MemoryCache) trimLocked() {
	if m.maxEntries <= 0 {
		return
	}
	for len(m.entries) > m.maxEntries {
		var (
			victim  string
			soonest time.Time
			found   bool
		)
		for k, e := range m.entries {
			if !found || (!e.expiresAt.IsZero() && (soonest.IsZero() || e.expiresAt.Before(soonest))) {
				victim, soonest, found = k, e.expiresAt, true
			}
		}
		delete(m.entries, victim)
	}
}

package server

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"aura-assistant-backend/internal/capability"
	"aura-assistant-backend/internal/identity"
	"aura-assistant-backend/internal/store"
)

type healthResponse struct {
	Status       string          `json:"status"`
	Capabilities map[string]bool `json:"capabilities"`
}

type cacheStatus struct {
	Backend string `json:"backend"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Entries int    `json:"entries,omitempty"`
}

type adminStatus struct {
	Uptime       string              `json:"uptime"`
	StartedAt    time.Time           `json:"startedAt"`
	Goroutines   int                 `json:"goroutines"`
	Cache        cacheStatus         `json:"cache"`
	Capabilities []capability.Status `json:"capabilities"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	caps := make(map[string]bool, 6)
	for _, st := range s.statuses() {
		caps[st.Name] = st.Configured
	}
	writeData(w, r, http.StatusOK, healthResponse{Status: "ok", Capabilities: caps})
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, identity.Declare())
}

// handleAdminStatus probes the cache and snapshots the capabilities in parallel.
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	out := adminStatus{
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		StartedAt:  s.started.UTC(),
		Goroutines: runtime.NumGoroutine(),
		Cache:      cacheStatus{Backend: "none"},
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		if s.cache == nil {
			return nil
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		out.Cache.Backend = s.cache.Backend()
		if err := s.cache.Ping(pingCtx); err != nil {
			s.logger.Warn("cache ping failed", zap.Error(err))
			out.Cache.Error = "ping failed"
			return nil
		}
		out.Cache.Healthy = true
		if mc, ok := s.cache.(*store.MemoryCache); ok {
			out.Cache.Entries = mc.Len()
		}
		return nil
	})
	g.Go(func() error {
		out.Capabilities = s.statuses()
		return nil
	})
	_ = g.Wait()

	writeData(w, r, http.StatusOK, out)
}

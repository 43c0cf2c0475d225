package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"aura-assistant-backend/internal/capability"
	"aura-assistant-backend/internal/compose"
	"aura-assistant-backend/internal/config"
	"aura-assistant-backend/internal/metrics"
	"aura-assistant-backend/internal/store"
)

type Server struct {
	router  *chi.Mux
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Collector
	cache   store.Cache
	limiter *rateLimiter
	started time.Time

	composer    *compose.Composer
	chat        *capability.ChatClient
	speech      *capability.SpeechClient
	transcriber *capability.Transcriber
	recognizer  *capability.RecognitionClient
	search      *capability.MediaSearchClient
	download    *capability.MediaDownloadClient
}

// NewServer wires every capability client from cfg. reg receives the
// Prometheus collectors; cache may be nil to disable result caching.
func NewServer(cfg config.Config, logger *zap.Logger, reg *prometheus.Registry, cache store.Cache) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	collector := metrics.NewCollector(reg)

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "server")),
		metrics: collector,
		cache:   cache,
		limiter: newRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax, "/health", "/metrics"),
		started: time.Now(),

		chat:        capability.NewChatClient(cfg, logger, collector),
		speech:      capability.NewSpeechClient(cfg, logger, collector),
		transcriber: capability.NewTranscriber(cfg, logger, collector),
		recognizer:  capability.NewRecognitionClient(cfg, cache, logger, collector),
		search:      capability.NewMediaSearchClient(cfg, cache, logger, collector),
		download:    capability.NewMediaDownloadClient(cfg, logger, collector),
	}

	composer, err := compose.New(s.chat, s.speech, s.transcriber, compose.Options{
		Observer:       collector,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build composer: %w", err)
	}
	s.composer = composer

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(RequestID)
	if s.cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(Observe(s.logger, s.metrics))
	r.Use(Recovery(s.logger))
	r.Use(SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", headerRequestID, headerAdminToken},
		ExposedHeaders:   []string{headerSessionID, headerRequestID},
		AllowCredentials: !allowsAnyOrigin(s.cfg.AllowedOrigins),
		MaxAge:           300,
	}))
	r.Use(s.limiter.Middleware)

	r.Get("/health", s.handleHealth)
	r.Get("/identity", s.handleIdentity)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/chat", s.handleChat)
	r.Post("/chat/voice", s.handleChatVoice)
	r.Post("/speak", s.handleSpeak)

	r.Post(compose.EndpointAudioDownload, s.handleDownloadAudio)
	r.Post(compose.EndpointVideoDownload, s.handleDownloadVideo)
	r.Post(compose.EndpointSongDownload, s.handleDownloadSong)
	r.Post("/search", s.handleSearch)
	r.Post(compose.EndpointRecognize, s.handleRecognize)

	r.With(AdminAuth(s.cfg.AdminToken)).Post("/admin/status", s.handleAdminStatus)

	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, codeInvalidInput, "method not allowed")
	})
}

func (s *Server) Router() http.Handler { return s.router }

// Run serves on cfg.Port until ctx is cancelled, then drains in-flight
// requests for up to 15 seconds.
func (s *Server) Run(ctx context.Context) error {
	go s.limiter.Run(ctx)
	if mc, ok := s.cache.(*store.MemoryCache); ok {
		go mc.SweepEvery(ctx, time.Minute)
	}

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

func (s *Server) statuses() []capability.Status {
	return []capability.Status{
		s.chat.Status(),
		s.speech.Status(),
		s.transcriber.Status(),
		s.recognizer.Status(),
		s.search.Status(),
		s.download.Status(),
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aura-assistant-backend/internal/config"
	"aura-assistant-backend/internal/logging"
	"aura-assistant-backend/internal/server"
	"aura-assistant-backend/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	Long: `Run the HTTP server on $PORT.

Configuration is read from the environment and an optional .env file.
Capabilities without credentials stay disabled and are reported by /health.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cache := store.New(ctx, cfg.RedisURL, logger)
	defer cache.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s, err := server.NewServer(cfg, logger, reg, cache)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	for name, ok := range cfg.Capabilities() {
		logger.Info("capability", zap.String("name", name), zap.Bool("configured", ok))
	}
	return s.Run(ctx)
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/findoc-labs/findoc-analyzer/internal/server"
	"github.com/findoc-labs/findoc-analyzer/pkg/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	// Heal the index before serving so search reflects the database even
	// after an index wipe.
	if err := deps.DocumentService.Reindex(ctx); err != nil {
		logger.Warn("startup reindex failed", slog.Any("error", err))
	}

	if err := deps.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	router := server.NewRouter(server.RouterConfig{
		Auth:           deps.AuthHandler,
		Templates:      deps.TemplateHandler,
		Documents:      deps.DocumentHandler,
		AuthService:    deps.AuthService,
		Metrics:        deps.Metrics,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   float64(cfg.Server.RateLimitPerSecond),
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	opts := server.Options{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Metrics: deps.Metrics,
	}
	if cfg.Observability.MetricsEnabled {
		opts.MetricsAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Observability.MetricsPort)
	}
	if cfg.Profiling.Enabled {
		opts.PprofAddr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Profiling.Port)
	}

	return server.New(router, opts, logger).Run(ctx)
}

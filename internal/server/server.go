package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"
)

// Server runs the API listener plus optional metrics and pprof listeners,
// and shuts them down together.
type Server struct {
	api     *http.Server
	metrics *http.Server
	profile *http.Server
	logger  *slog.Logger
}

// Options configures the listeners
type Options struct {
	Addr        string
	MetricsAddr string // empty disables the metrics listener
	PprofAddr   string // empty disables the pprof listener
	Metrics     *Metrics
}

// New creates a server around the API handler
func New(handler http.Handler, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		api: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}

	if opts.MetricsAddr != "" && opts.Metrics != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", opts.Metrics.Handler())
		s.metrics = &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	if opts.PprofAddr != "" {
		profileMux := http.NewServeMux()
		profileMux.HandleFunc("/debug/pprof/", pprof.Index)
		profileMux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		profileMux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		profileMux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		profileMux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		s.profile = &http.Server{
			Addr:              opts.PprofAddr,
			Handler:           profileMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return s
}

// Run serves until the context is canceled, then drains connections
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 3)

	go func() {
		s.logger.Info("api listening", slog.String("addr", s.api.Addr))
		if err := s.api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if s.metrics != nil {
		go func() {
			s.logger.Info("metrics listening", slog.String("addr", s.metrics.Addr))
			if err := s.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	if s.profile != nil {
		go func() {
			s.logger.Info("pprof listening", slog.String("addr", s.profile.Addr))
			if err := s.profile.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("pprof server: %w", err)
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var shutdownErr error
	for _, srv := range []*http.Server{s.api, s.metrics, s.profile} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}
	return shutdownErr
}

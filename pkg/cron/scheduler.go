// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	docservice "github.com/findoc-labs/findoc-analyzer/internal/domain/documents/service"
)

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron      *cron.Cron
	documents *docservice.Service
	logger    *slog.Logger
}

// NewScheduler creates a new job scheduler.
func NewScheduler(documents *docservice.Service, logger *slog.Logger) *Scheduler {
	// Standard 5-field format, no seconds
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:      c,
		documents: documents,
		logger:    logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Search index rebuild: runs daily at 2:00 AM. Catches documents whose
	// live indexing failed during upload.
	_, err := s.cron.AddFunc("0 2 * * *", s.reindexDocuments)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the reindex (for testing/admin).
func (s *Scheduler) RunNow() {
	go s.reindexDocuments()
}

// reindexDocuments rebuilds the full-text index from the database.
func (s *Scheduler) reindexDocuments() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	s.logger.Info("starting nightly document reindex")

	start := time.Now()
	if err := s.documents.Reindex(ctx); err != nil {
		s.logger.Error("nightly document reindex failed", slog.Any("error", err))
		return
	}

	s.logger.Info("nightly document reindex completed",
		slog.Duration("duration", time.Since(start)),
	)
}

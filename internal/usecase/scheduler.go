package usecase

import (
	"context"
	"log/slog"
	"time"

	"MomentumScanner/internal/ports"
)

// Scheduler wires the cron-like driver with the watchlist analysis.
type Scheduler struct {
	driver    ports.Scheduler
	analysis  *AnalysisService
	watchlist []string
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring watchlist analyses.
func NewScheduler(driver ports.Scheduler, analysis *AnalysisService, watchlist []string, log *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, analysis: analysis, watchlist: watchlist, logger: log}
}

// Start registers the watchlist run with the provided scheduler. Nothing is
// scheduled when the watchlist is empty.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.analysis == nil || len(s.watchlist) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		res := s.analysis.AnalyzeBatch(ctx, s.watchlist)
		if s.logger != nil {
			s.logger.Info("scheduled analysis finished",
				"trigger", trigger,
				"analyzed", len(res.Records),
				"failed", len(res.Errors))
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

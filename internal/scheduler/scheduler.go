package scheduler

import (
	"context"
	"log/slog"
	"time"

	"ptt_crawler/internal/domain"
)

// Runner performs one crawl run.
type Runner interface {
	Run(ctx context.Context) (*domain.CrawlResult, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs immediately, then on every tick until ctx is done. A failed
// run is logged and the schedule continues.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	result, err := s.runner.Run(runCtx)
	if err != nil {
		s.logger.Error("crawl failed", "error", err)
		return
	}
	s.logger.Info("scheduled crawl finished",
		"run_id", result.Stats.RunID,
		"articles", result.Stats.Articles,
	)
}

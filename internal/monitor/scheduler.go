package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/errors"
)

// Runner runs one monitoring pass.
type Runner interface {
	RunPass(ctx context.Context, userID string) (*PassReport, error)
}

// Scheduler runs a pass over all users at a fixed interval.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   slog.Default().With("component", "monitor-scheduler"),
	}
}

// Run runs a pass immediately and then every interval until ctx is
// cancelled. Pass failures are logged and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, err := s.runner.RunPass(ctx, "")
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrPassInProgress):
		s.logger.Info("skipping scheduled pass, another pass is running")
	case ctx.Err() != nil:
	default:
		s.logger.Error("scheduled pass failed", "error", err)
	}
}

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/viadrive/lance/internal/domain/auctions"
)

// DefaultInterval is how often the scheduler sweeps when no interval is
// configured.
const DefaultInterval = 60 * time.Second

// Sweeper advances auction lifecycles up to a point in time.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (auctions.SweepResult, error)
}

// Scheduler drives auction activations and closes on a fixed tick. It is the
// in-process replacement for an external cron caller; both paths funnel into
// the same sweep so transitions stay idempotent.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

// New creates a new scheduler
func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps once immediately, then on every tick until the context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	result, err := s.sweeper.Sweep(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("Sweep failed", "error", err)
		return
	}
	if result.Activated > 0 || result.Ended > 0 {
		s.logger.Info("Sweep complete", "activated", result.Activated, "ended", result.Ended)
	}
}

// Package jobs holds background work that runs next to the HTTP server.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Flagger marks stale low-rated reviews.
type Flagger interface {
	FlagStale(ctx context.Context, now time.Time) (int64, error)
}

// ReviewSweep runs the flagger once immediately and then every interval
// until ctx is done. Failures are logged and retried on the next tick.
type ReviewSweep struct {
	flagger  Flagger
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewReviewSweep(flagger Flagger, interval time.Duration, log *zap.Logger) *ReviewSweep {
	return &ReviewSweep{
		flagger:  flagger,
		interval: interval,
		log:      log.Named("review-sweep"),
		now:      time.Now,
	}
}

func (s *ReviewSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("started", zap.Duration("interval", s.interval))
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *ReviewSweep) tick(ctx context.Context) {
	flagged, err := s.flagger.FlagStale(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error("flag stale reviews", zap.Error(err))
		}
		return
	}
	if flagged > 0 {
		s.log.Info("flagged stale reviews", zap.Int64("count", flagged))
	}
}

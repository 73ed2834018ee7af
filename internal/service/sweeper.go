package service

import (
	"context"
	"fmt"
	"time"

	"github.com/velorek/notiq/internal/observability"
	"github.com/velorek/notiq/internal/repository"
	"go.uber.org/zap"
)

const defaultSweepInterval = time.Hour

// Sweeper deletes idempotency keys past their expiry, completed or not.
type Sweeper struct {
	keys     repository.IdempotencyRepository
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewSweeper(keys repository.IdempotencyRepository, interval time.Duration, logger *zap.Logger) (*Sweeper, error) {
	if keys == nil {
		return nil, fmt.Errorf("idempotency repository is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sweeper{
		keys:     keys,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *Sweeper) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Sweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweepOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("idempotency sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) error {
	removed, err := s.keys.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return fmt.Errorf("failed to delete expired idempotency keys: %w", err)
	}

	if removed > 0 {
		s.metrics.AddSweptKeys(removed)
		s.logger.Info("expired idempotency keys removed", zap.Int64("count", removed))
	}

	return nil
}

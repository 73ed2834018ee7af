package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/velorek/notiq/internal/observability"
	"github.com/velorek/notiq/internal/provider"
	"github.com/velorek/notiq/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultMonitorInterval   = 60 * time.Second
	defaultStrugglingMin     = 3
	defaultDegradedThreshold = 20
)

// Monitor periodically counts jobs that keep failing and alerts the operator
// on the healthy-to-degraded transition. Observability only; it never
// touches job scheduling.
type Monitor struct {
	jobs          repository.JobRepository
	dispatcher    *Dispatcher
	operatorEmail string
	interval      time.Duration
	minAttempts   int
	threshold     int
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time

	degraded bool
}

func NewMonitor(
	jobs repository.JobRepository,
	dispatcher *Dispatcher,
	operatorEmail string,
	interval time.Duration,
	minAttempts int,
	threshold int,
	logger *zap.Logger,
) (*Monitor, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if strings.TrimSpace(operatorEmail) == "" {
		return nil, fmt.Errorf("operator email is required")
	}
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	if minAttempts <= 0 {
		minAttempts = defaultStrugglingMin
	}
	if threshold <= 0 {
		threshold = defaultDegradedThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		jobs:          jobs,
		dispatcher:    dispatcher,
		operatorEmail: strings.TrimSpace(operatorEmail),
		interval:      interval,
		minAttempts:   minAttempts,
		threshold:     threshold,
		logger:        logger,
		now:           time.Now,
	}, nil
}

func (m *Monitor) SetMetrics(metrics *observability.Metrics) {
	if m == nil {
		return
	}
	m.metrics = metrics
}

func (m *Monitor) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.checkOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.logger.Error("health check failed", zap.Error(err))
			}
		}
	}
}

func (m *Monitor) checkOnce(ctx context.Context) error {
	count, err := m.jobs.CountStruggling(ctx, m.minAttempts)
	if err != nil {
		return fmt.Errorf("failed to count struggling jobs: %w", err)
	}

	m.metrics.SetStrugglingJobs(count)

	exceeded := count > int64(m.threshold)
	switch {
	case exceeded && !m.degraded:
		m.degraded = true
		m.logger.Error("queue entered degraded mode",
			zap.Int64("strugglingJobs", count),
			zap.Int("threshold", m.threshold),
		)
		m.sendDegradedAlert(ctx, count)
	case !exceeded && m.degraded:
		m.degraded = false
		m.logger.Info("queue recovered from degraded mode",
			zap.Int64("strugglingJobs", count),
		)
	}

	return nil
}

func (m *Monitor) sendDegradedAlert(ctx context.Context, count int64) {
	checkedAt := m.now().UTC()
	subject := "Notification queue degraded: repeated delivery failures"
	body := fmt.Sprintf(
		"<p>The notification queue is degraded.</p>"+
			"<ul><li>Jobs failing repeatedly (attempts &ge; %d): %d</li>"+
			"<li>Threshold: %d</li><li>Checked at: %s</li></ul>",
		m.minAttempts, count, m.threshold, checkedAt.Format(time.RFC3339),
	)

	result := m.dispatcher.Dispatch(ctx, provider.Message{
		To:      m.operatorEmail,
		Subject: subject,
		HTML:    body,
	})
	if !result.Delivered() {
		m.logger.Error("failed to deliver degraded-mode alert", zap.Error(result.Err))
	}
}

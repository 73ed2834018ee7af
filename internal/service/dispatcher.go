package service

import (
	"context"
	"fmt"

	"github.com/velorek/notiq/internal/domain"
	"github.com/velorek/notiq/internal/observability"
	"github.com/velorek/notiq/internal/provider"
	"go.uber.org/zap"
)

// Dispatcher sends a message through the primary provider and, when that
// fails, through the independent secondary path. Operator alerts and job
// deliveries share this single escalation transport.
type Dispatcher struct {
	primary   provider.Provider
	secondary provider.Provider
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// DispatchResult captures which provider path settled the attempt.
type DispatchResult struct {
	Provider domain.ProviderTag
	Response *provider.Response
	Err      error
}

// Delivered reports whether any path accepted the message.
func (r DispatchResult) Delivered() bool {
	return r.Err == nil
}

// NewDispatcher wires the primary provider (callers usually pass it wrapped
// in a RetryingSender) and an optional secondary fallback.
func NewDispatcher(primary, secondary provider.Provider, metrics *observability.Metrics, logger *zap.Logger) (*Dispatcher, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Dispatch tries the primary path first; on any primary failure it falls
// back to the secondary provider when one is configured.
func (d *Dispatcher) Dispatch(ctx context.Context, msg provider.Message) DispatchResult {
	resp, err := d.primary.Send(ctx, msg)
	if err == nil {
		d.metrics.IncDelivery(domain.ProviderPrimary.String(), true)
		return DispatchResult{Provider: domain.ProviderPrimary, Response: resp}
	}

	d.metrics.IncDelivery(domain.ProviderPrimary.String(), false)
	d.logger.Warn("primary delivery failed",
		zap.String("to", msg.To),
		zap.Error(err),
	)

	if d.secondary == nil {
		return DispatchResult{
			Provider: domain.ProviderPrimary,
			Err:      fmt.Errorf("primary delivery failed, no failover configured: %w", err),
		}
	}

	fallbackResp, fallbackErr := d.secondary.Send(ctx, msg)
	if fallbackErr == nil {
		d.metrics.IncDelivery(domain.ProviderSecondary.String(), true)
		return DispatchResult{Provider: domain.ProviderSecondary, Response: fallbackResp}
	}

	d.metrics.IncDelivery(domain.ProviderSecondary.String(), false)
	return DispatchResult{
		Provider: domain.ProviderSecondary,
		Err:      fmt.Errorf("failover delivery failed: %w (primary: %v)", fallbackErr, err),
	}
}

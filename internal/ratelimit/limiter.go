package ratelimit

import "context"

// RateLimiter throttles outbound provider calls per delivery channel so the
// poll loop cannot burst past a provider's rate limits.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}

// NopLimiter never throttles; used in tests and when Redis is not wired.
type NopLimiter struct{}

func (NopLimiter) Allow(ctx context.Context, channel string) (bool, error) { return true, nil }
func (NopLimiter) Wait(ctx context.Context, channel string) error          { return nil }

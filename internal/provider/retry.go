package provider

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultRetryTries     = 3
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	retryJitterFraction   = 0.3
)

// RetryingSender wraps a provider with a bounded in-process retry loop.
// Transient failures are retried with capped exponential backoff plus up to
// 30% random jitter; permanent failures short-circuit immediately.
type RetryingSender struct {
	provider  Provider
	tries     int
	baseDelay time.Duration
	maxDelay  time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

func NewRetryingSender(provider Provider, tries int) *RetryingSender {
	if tries <= 0 {
		tries = defaultRetryTries
	}

	return &RetryingSender{
		provider:  provider,
		tries:     tries,
		baseDelay: defaultRetryBaseDelay,
		maxDelay:  defaultRetryMaxDelay,
		sleep:     sleepWithContext,
		randFloat: rand.Float64,
	}
}

func (s *RetryingSender) Send(ctx context.Context, msg Message) (*Response, error) {
	var lastErr error
	var lastResp *Response

	for attempt := 0; attempt < s.tries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.delayFor(attempt)); err != nil {
				return nil, err
			}
		}

		resp, err := s.provider.Send(ctx, msg)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		lastResp = resp

		if IsPermanent(err) {
			return resp, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return lastResp, lastErr
}

// delayFor returns min(base * 2^(attempt-1), max) with jitter on top.
func (s *RetryingSender) delayFor(attempt int) time.Duration {
	delay := s.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.maxDelay {
			delay = s.maxDelay
			break
		}
	}
	if delay > s.maxDelay {
		delay = s.maxDelay
	}

	jitter := time.Duration(0)
	if s.randFloat != nil {
		jitter = time.Duration(s.randFloat() * retryJitterFraction * float64(delay))
	}

	return delay + jitter
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

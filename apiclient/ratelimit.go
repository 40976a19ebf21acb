package apiclient

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures client-side rate limiting. Every attempt,
// including retries, consumes one token.
type RateLimitConfig struct {
	// RequestsPerSecond is the maximum sustained attempt rate.
	RequestsPerSecond float64

	// Burst is the number of attempts allowed to exceed the rate briefly.
	Burst int

	// WaitOnLimit makes attempts wait for a token (respecting the request
	// context) instead of failing fast with ErrRateLimited.
	WaitOnLimit bool
}

// limiter wraps a token bucket with the configured limit behavior.
type limiter struct {
	bucket *rate.Limiter
	wait   bool
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return &limiter{
		bucket: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		wait:   cfg.WaitOnLimit,
	}
}

// acquire blocks or fails fast according to the configuration.
func (l *limiter) acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	if l.wait {
		if err := l.bucket.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return ErrRateLimited
		}
		return nil
	}
	if !l.bucket.Allow() {
		return ErrRateLimited
	}
	return nil
}

package apiclient

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// MaxBackoffDelay caps every computed retry delay.
const MaxBackoffDelay = 30 * time.Second

// Ensure the strategy satisfies the backoff.BackOff interface so callers
// can plug it into cenkalti/backoff retry loops directly.
var _ backoff.BackOff = (*ExponentialJitterBackOff)(nil)

// ExponentialJitterBackOff computes retry delays as
//
//	delay(k) = base × 2^k + uniformRandom(0, base)
//
// capped at MaxBackoffDelay. The additive jitter spreads concurrent
// retries so a recovering dependency is not hit by a synchronized wave.
type ExponentialJitterBackOff struct {
	// BaseDelay is the multiplier base. Values below 1ms are clamped to 1ms.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay. Zero means MaxBackoffDelay.
	MaxDelay time.Duration

	attempt int
}

// NewExponentialJitterBackOff returns a strategy with the given base delay
// and the default 30s cap.
func NewExponentialJitterBackOff(base time.Duration) *ExponentialJitterBackOff {
	return &ExponentialJitterBackOff{BaseDelay: base, MaxDelay: MaxBackoffDelay}
}

// Delay returns the delay preceding the given attempt (attempt 1 is the
// first retry). The result lies in [base×2^attempt, base×2^attempt + base),
// capped at MaxDelay.
func (b *ExponentialJitterBackOff) Delay(attempt int) time.Duration {
	base := b.BaseDelay
	if base < time.Millisecond {
		base = time.Millisecond
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = MaxBackoffDelay
	}

	// Guard the shift against overflow for large attempt numbers.
	if attempt > 30 {
		return maxDelay
	}
	raw := base << attempt

	//nolint:gosec // weak rand is intentional for jitter
	jitter := time.Duration(rand.Int64N(int64(base)))

	d := raw + jitter
	if d > maxDelay || d < 0 {
		return maxDelay
	}
	return d
}

// Reset restarts the attempt counter used by NextBackOff.
func (b *ExponentialJitterBackOff) Reset() { b.attempt = 0 }

// NextBackOff returns the delay for the next retry, advancing the internal
// attempt counter. The first call corresponds to Delay(1).
func (b *ExponentialJitterBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.Delay(b.attempt)
}

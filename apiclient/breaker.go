package apiclient

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig configures the optional circuit breaker wrapped around the
// transport call. A zero ConsecutiveFailures disables tripping on streaks.
type BreakerConfig struct {
	// Name identifies the breaker in its state-change logs.
	Name string

	// MaxRequests is the number of probe requests allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period for clearing counts while closed.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// ConsecutiveFailures trips the breaker once that many attempts in a
	// row have failed.
	ConsecutiveFailures uint32
}

// errBreakerSynthetic marks a 5xx response as a breaker failure even though
// the transport returned no error. It is unwrapped before the response is
// handed back to the retry loop.
var errBreakerSynthetic = errors.New("synthetic breaker failure")

// breakerTransport counts 5xx responses and transport errors against the
// breaker; an open breaker rejects the attempt, which the engine treats as
// a transport-level failure.
type breakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerTransport(next http.RoundTripper, cfg BreakerConfig) http.RoundTripper {
	name := cfg.Name
	if name == "" {
		name = "apiclient"
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	}

	return &breakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose // closed by the engine
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return resp, errBreakerSynthetic
		}
		return resp, nil
	})
	if errors.Is(err, errBreakerSynthetic) {
		return resp, nil
	}
	return resp, err
}

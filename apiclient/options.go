package apiclient

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the process-wide defaults seeded into every RequestBuilder
// at creation time. All of them are overridable per call.
type Config struct {
	// BaseURL is the default RequestSpec base URL.
	BaseURL string

	// Timeout is the default per-request timeout.
	// Default: 30s
	Timeout time.Duration

	// Retries is the default retry count (attempts = retries + 1).
	// Default: 2
	Retries int

	// RetryDelay is the default base delay for backoff computation.
	// Default: 1s
	RetryDelay time.Duration

	// LogRequests enables outgoing request logging.
	LogRequests bool

	// LogResponses enables response logging.
	LogResponses bool
}

// DefaultConfig returns the builtin defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		Retries:      2,
		RetryDelay:   time.Second,
		LogRequests:  true,
		LogResponses: true,
	}
}

// ConfigFromEnv loads configuration from the environment, reading an
// optional .env file first. Recognized keys:
//
//	API_BASE_URL, API_TIMEOUT_SECONDS, API_RETRIES,
//	API_RETRY_DELAY_MS, API_LOG_REQUESTS, API_LOG_RESPONSES
//
// Unset or malformed values fall back to DefaultConfig.
func ConfigFromEnv() Config {
	// A missing .env file is fine; real environment variables still apply.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v, err := strconv.Atoi(os.Getenv("API_TIMEOUT_SECONDS")); err == nil && v > 0 {
		cfg.Timeout = time.Duration(v) * time.Second
	}
	if v, err := strconv.Atoi(os.Getenv("API_RETRIES")); err == nil && v >= 0 {
		cfg.Retries = v
	}
	if v, err := strconv.Atoi(os.Getenv("API_RETRY_DELAY_MS")); err == nil && v > 0 {
		cfg.RetryDelay = time.Duration(v) * time.Millisecond
	}
	if v, err := strconv.ParseBool(os.Getenv("API_LOG_REQUESTS")); err == nil {
		cfg.LogRequests = v
	}
	if v, err := strconv.ParseBool(os.Getenv("API_LOG_RESPONSES")); err == nil {
		cfg.LogResponses = v
	}
	return cfg
}

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the client defaults wholesale.
func WithConfig(cfg Config) Option {
	return func(c *Client) { c.config = cfg }
}

// WithBaseURL sets the default base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.config.BaseURL = baseURL }
}

// WithTimeout sets the default per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.config.Timeout = d }
}

// WithRetries sets the default retry count.
func WithRetries(n int) Option {
	return func(c *Client) { c.config.Retries = n }
}

// WithRetryDelay sets the default backoff base delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.config.RetryDelay = d }
}

// WithTransport sets the HTTP transport the engine issues calls through.
// Tests typically pass a *MockTransport here.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithLogger sets the client logger. Defaults to a no-op logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenCache injects a shared TokenCache. The client will not close a
// cache it did not create.
func WithTokenCache(tc *TokenCache) Option {
	return func(c *Client) {
		c.tokens = tc
		c.ownsTokens = false
	}
}

// WithMetricsRegistry injects a shared MetricsRegistry.
func WithMetricsRegistry(m *MetricsRegistry) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRequestInterceptor registers a pre-request hook.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(c *Client) { c.pipeline.OnRequest(i) }
}

// WithResponseInterceptor registers a post-response hook.
func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(c *Client) { c.pipeline.OnResponse(i) }
}

// WithRateLimit enables client-side rate limiting, consulted before every
// attempt including retries.
func WithRateLimit(cfg RateLimitConfig) Option {
	return func(c *Client) { c.rateLimit = &cfg }
}

// WithBreaker enables a circuit breaker around the transport call.
func WithBreaker(cfg BreakerConfig) Option {
	return func(c *Client) { c.breakerCfg = &cfg }
}

package apiclient

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client is the top-level object of the request-execution core. It owns
// the token cache, metrics registry and interceptor pipeline shared by all
// requests it builds, and injects them into its execution engine.
//
//	client := apiclient.New(
//	    apiclient.WithBaseURL("https://api.example.com"),
//	    apiclient.WithRetries(3),
//	)
//	defer client.Close()
//
//	res, err := client.NewRequest().
//	    Path("/orders").
//	    Body(order).
//	    Post(ctx)
type Client struct {
	config    Config
	transport http.RoundTripper
	logger    zerolog.Logger

	tokens     *TokenCache
	ownsTokens bool
	metrics    *MetricsRegistry
	pipeline   *InterceptorPipeline

	rateLimit  *RateLimitConfig
	breakerCfg *BreakerConfig

	engine *ExecutionEngine
}

// New creates a Client with the builtin defaults, then applies options.
func New(opts ...Option) *Client {
	c := &Client{
		config:     DefaultConfig(),
		logger:     zerolog.Nop(),
		pipeline:   NewInterceptorPipeline(),
		ownsTokens: true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = http.DefaultTransport
	}
	if c.metrics == nil {
		c.metrics = NewMetricsRegistry()
	}
	if c.tokens == nil {
		// Token fetches flow through the same transport as regular calls so
		// a mock transport also serves token endpoints in tests.
		c.tokens = NewTokenCache(
			WithTokenHTTPClient(&http.Client{Transport: c.transport, Timeout: 30 * time.Second}),
			WithTokenCacheLogger(c.logger),
		)
	}

	transport := c.transport
	if c.breakerCfg != nil {
		transport = newBreakerTransport(transport, *c.breakerCfg)
	}

	var lim *limiter
	if c.rateLimit != nil {
		lim = newLimiter(*c.rateLimit)
	}

	c.engine = &ExecutionEngine{
		transport:    transport,
		tokens:       c.tokens,
		pipeline:     c.pipeline,
		metrics:      c.metrics,
		limiter:      lim,
		logger:       c.logger,
		logRequests:  c.config.LogRequests,
		logResponses: c.config.LogResponses,
	}

	return c
}

// NewRequest creates a RequestBuilder seeded with the client defaults.
func (c *Client) NewRequest() *RequestBuilder {
	return &RequestBuilder{
		client:     c,
		baseURL:    c.config.BaseURL,
		timeout:    c.config.Timeout,
		retryCount: c.config.Retries,
		retryDelay: c.config.RetryDelay,
		retryIf:    DefaultRetryPredicate,
		pathParams: make(map[string]string),
		logEnabled: true,
	}
}

// Upload creates a multipart upload builder.
func (c *Client) Upload() *UploadBuilder {
	return &UploadBuilder{client: c}
}

// Engine returns the execution engine, for callers that assemble
// RequestSpec values themselves.
func (c *Client) Engine() *ExecutionEngine { return c.engine }

// Metrics returns the client's metrics registry.
func (c *Client) Metrics() *MetricsRegistry { return c.metrics }

// Tokens returns the client's token cache.
func (c *Client) Tokens() *TokenCache { return c.tokens }

// Interceptors returns the client's pipeline. Register hooks before
// issuing requests; concurrent registration during execution is not
// supported.
func (c *Client) Interceptors() *InterceptorPipeline { return c.pipeline }

// Close releases background resources. A token cache injected via
// WithTokenCache is left running for its other owners.
func (c *Client) Close() {
	if c.ownsTokens {
		c.tokens.Close()
	}
}

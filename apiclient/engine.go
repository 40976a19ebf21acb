package apiclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ExecutionEngine executes RequestSpec values: it resolves the auth
// descriptor, runs pre-request interceptors, performs the call inside the
// retry loop, records every attempt into the metrics registry, runs
// post-response interceptors, and returns a Result.
//
// The engine is synchronous: a call blocks its goroutine for the duration
// of the network round trip and any retry sleeps. It is safe for many
// concurrent callers sharing one engine.
type ExecutionEngine struct {
	transport http.RoundTripper
	tokens    *TokenCache
	pipeline  *InterceptorPipeline
	metrics   *MetricsRegistry
	limiter   *limiter
	logger    zerolog.Logger

	logRequests  bool
	logResponses bool
}

// NewExecutionEngine assembles an engine from explicitly constructed
// collaborators. Client.New wires one automatically; this constructor is
// for callers composing the pieces themselves.
func NewExecutionEngine(transport http.RoundTripper, tokens *TokenCache, pipeline *InterceptorPipeline, metrics *MetricsRegistry) *ExecutionEngine {
	return &ExecutionEngine{
		transport: transport,
		tokens:    tokens,
		pipeline:  pipeline,
		metrics:   metrics,
		logger:    zerolog.Nop(),
	}
}

// Execute runs one spec to completion. It fails with *ExecutionError only
// after all retry attempts are exhausted; token acquisition and
// serialization failures surface immediately as their own types.
func (e *ExecutionEngine) Execute(ctx context.Context, spec RequestSpec) (*Result, error) {
	fullPath := spec.FullPath()

	if !spec.Method.supported() {
		return nil, &ExecutionError{Method: spec.Method, Path: fullPath, Err: ErrUnsupportedMethod}
	}

	urlStr, err := spec.URL()
	if err != nil {
		return nil, &ExecutionError{Method: spec.Method, Path: fullPath, Err: err}
	}

	bodyBytes, contentType, err := encodeBody(spec.Body, spec.ContentType)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, string(spec.Method), urlStr, nil)
	if err != nil {
		return nil, &ExecutionError{Method: spec.Method, Path: fullPath, Err: err}
	}

	// Headers are applied in insertion order with key casing exactly as
	// supplied, bypassing canonicalization.
	for _, h := range spec.Headers {
		req.Header[h.Name] = append(req.Header[h.Name], h.Value)
	}
	if bodyBytes != nil && contentType != "" && !hasHeader(spec.Headers, "Content-Type") {
		req.Header.Set("Content-Type", contentType)
	}

	if err := e.applyAuth(ctx, req, spec.Auth); err != nil {
		return nil, err
	}

	if err := e.pipeline.RunBefore(req); err != nil {
		return nil, &ExecutionError{Method: spec.Method, Path: fullPath, Err: err}
	}

	bo := NewExponentialJitterBackOff(spec.RetryDelay)
	pred := spec.RetryIf
	if pred == nil {
		pred = DefaultRetryPredicate
	}

	var (
		attempts   int
		lastErr    error
		lastStatus int
	)

	for attempt := 0; attempt <= spec.RetryCount; attempt++ {
		if attempt > 0 {
			delay := bo.Delay(attempt)
			if spec.LogEnabled {
				e.logger.Warn().
					Str("method", string(spec.Method)).
					Str("path", fullPath).
					Int("attempt", attempt).
					Dur("backoff", delay).
					Msg("retrying request")
			}
			select {
			case <-ctx.Done():
				return nil, &ExecutionError{Method: spec.Method, Path: fullPath, Attempts: attempts, LastStatus: lastStatus, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		// An already-cancelled context short-circuits without a transport call.
		if err := ctx.Err(); err != nil {
			return nil, &ExecutionError{Method: spec.Method, Path: fullPath, Attempts: attempts, LastStatus: lastStatus, Err: err}
		}

		if err := e.limiter.acquire(ctx); err != nil {
			return nil, &ExecutionError{Method: spec.Method, Path: fullPath, Attempts: attempts, LastStatus: lastStatus, Err: err}
		}

		attemptCtx := ctx
		cancel := func() {}
		if spec.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		}

		attemptReq := req.Clone(attemptCtx)
		if bodyBytes != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			attemptReq.ContentLength = int64(len(bodyBytes))
		}

		if spec.LogEnabled && e.logRequests {
			e.logger.Debug().
				Str("method", string(spec.Method)).
				Str("url", urlStr).
				Int("attempt", attempt).
				Msg("HTTP request")
		}

		attempts++
		start := time.Now()
		resp, err := e.transport.RoundTrip(attemptReq)
		duration := time.Since(start)

		if err != nil {
			cancel()
			lastErr = err
			lastStatus = 0
			if spec.LogEnabled {
				e.logger.Warn().
					Str("method", string(spec.Method)).
					Str("path", fullPath).
					Int("attempt", attempt).
					Err(err).
					Msg("request attempt failed")
			}
			continue
		}

		// Drain the body before the attempt context is released so a
		// per-attempt timeout cannot truncate a slow read later.
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if readErr != nil {
			lastErr = readErr
			lastStatus = 0
			continue
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))

		e.metrics.Record(spec.Method, fullPath, resp.StatusCode, duration)

		if err := e.pipeline.RunAfter(resp, attemptReq); err != nil {
			// Interceptor failures consume a retry attempt, same as a
			// transport error.
			lastErr = err
			lastStatus = resp.StatusCode
			continue
		}

		if spec.LogEnabled && e.logResponses {
			e.logger.Info().
				Str("method", string(spec.Method)).
				Str("path", fullPath).
				Int("status", resp.StatusCode).
				Dur("duration", duration).
				Msg("HTTP response")
		}

		if pred(resp) {
			lastErr = nil
			lastStatus = resp.StatusCode
			if spec.LogEnabled {
				e.logger.Warn().
					Str("method", string(spec.Method)).
					Str("path", fullPath).
					Int("status", resp.StatusCode).
					Msg("retry predicate matched")
			}
			continue
		}

		return &Result{
			resp:     resp,
			body:     body,
			duration: duration,
			attempts: attempts,
			logger:   e.logger,
		}, nil
	}

	cause := lastErr
	if cause == nil {
		cause = ErrRetryExhausted
	}
	if spec.LogEnabled {
		e.logger.Error().
			Str("method", string(spec.Method)).
			Str("path", fullPath).
			Int("attempts", attempts).
			Err(cause).
			Msg("request failed after all attempts")
	}
	return nil, &ExecutionError{
		Method:     spec.Method,
		Path:       fullPath,
		Attempts:   attempts,
		LastStatus: lastStatus,
		Err:        cause,
	}
}

// applyAuth resolves the auth descriptor into concrete headers. OAuth2
// client-credentials consults the token cache, which may perform its own
// network call; its failure surfaces untouched as *TokenError.
func (e *ExecutionEngine) applyAuth(ctx context.Context, req *http.Request, auth AuthConfig) error {
	switch auth.kind {
	case authNone:
		return nil
	case authBasic:
		req.SetBasicAuth(auth.user, auth.pass)
		return nil
	case authBearer:
		req.Header.Set("Authorization", "Bearer "+auth.token)
		return nil
	case authOAuth2ClientCredentials:
		token, err := e.tokens.GetToken(ctx, auth.clientID, auth.clientSecret, auth.tokenURL)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	default:
		return nil
	}
}

// hasHeader reports whether a header with the given name (case-insensitive)
// was supplied on the spec.
func hasHeader(headers []Header, name string) bool {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

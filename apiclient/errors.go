package apiclient

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the execution engine.
var (
	// ErrRetryExhausted signals that every attempt produced a response the
	// retry predicate still classified as retryable.
	ErrRetryExhausted = errors.New("retry budget exhausted")

	// ErrUnsupportedMethod is returned when a RequestSpec carries a method
	// the engine does not dispatch. Builders never validate the method;
	// the check happens at execution time.
	ErrUnsupportedMethod = errors.New("unsupported HTTP method")

	// ErrRateLimited is returned when the client-side rate limiter rejects
	// a request in fail-fast mode.
	ErrRateLimited = errors.New("client-side rate limit exceeded")
)

// ExecutionError is returned by the engine once all retry attempts are
// exhausted. It carries the method, full path and attempt count so the
// caller can distinguish exhausted-retries from a single hard failure.
type ExecutionError struct {
	Method   Method
	Path     string
	Attempts int

	// LastStatus is the status code of the final response when the failure
	// was driven by the retry predicate rather than a transport error.
	// Zero when no response was ever received.
	LastStatus int

	// Err is the last underlying cause: a transport error, an interceptor
	// error, or ErrRetryExhausted.
	Err error
}

func (e *ExecutionError) Error() string {
	if e.LastStatus != 0 {
		return fmt.Sprintf("request failed for %s %s after %d attempt(s): last status %d: %v",
			e.Method, e.Path, e.Attempts, e.LastStatus, e.Err)
	}
	return fmt.Sprintf("request failed for %s %s after %d attempt(s): %v",
		e.Method, e.Path, e.Attempts, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// TokenError is returned when the OAuth2 token endpoint returns a non-2xx
// status or the network call to it fails. The engine never retries token
// acquisition inside its own loop.
type TokenError struct {
	TokenURL string
	Status   int
	Body     string
	Err      error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token request to %s failed: %v", e.TokenURL, e.Err)
	}
	return fmt.Sprintf("token request to %s failed: status %d: %s", e.TokenURL, e.Status, e.Body)
}

func (e *TokenError) Unwrap() error { return e.Err }

// AssertionError is returned by Result assertions. It is a terminal,
// never-retried condition and always includes the offending status and
// body text.
type AssertionError struct {
	Message string
	Status  int
	Body    string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s (status %d, body: %s)", e.Message, e.Status, e.Body)
}

// SerializationError wraps a body (de)serialization failure. It propagates
// on first occurrence; the retry loop never re-attempts it.
type SerializationError struct {
	Op  string // "marshal" or "unmarshal"
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

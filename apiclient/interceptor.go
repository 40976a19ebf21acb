package apiclient

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestInterceptor runs against the outgoing request before the retry
// loop starts. Interceptors are side-effecting hooks; an error aborts the
// execution before any transport call is made.
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor runs after every attempt that produced a response.
// An error from a response interceptor is treated like a transport-level
// failure and consumes a retry attempt.
type ResponseInterceptor func(resp *http.Response, req *http.Request) error

// InterceptorPipeline holds two ordered capability lists: pre-request and
// post-response hooks. Both run in registration order. The pipeline is
// expected to be populated once at startup; concurrent registration during
// active execution is not supported.
type InterceptorPipeline struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorPipeline creates an empty pipeline.
func NewInterceptorPipeline() *InterceptorPipeline {
	return &InterceptorPipeline{}
}

// OnRequest appends a pre-request hook.
func (p *InterceptorPipeline) OnRequest(i RequestInterceptor) {
	p.requestInterceptors = append(p.requestInterceptors, i)
}

// OnResponse appends a post-response hook.
func (p *InterceptorPipeline) OnResponse(i ResponseInterceptor) {
	p.responseInterceptors = append(p.responseInterceptors, i)
}

// RunBefore invokes all pre-request hooks in registration order, stopping
// at the first error.
func (p *InterceptorPipeline) RunBefore(req *http.Request) error {
	for _, i := range p.requestInterceptors {
		if err := i(req); err != nil {
			return err
		}
	}
	return nil
}

// RunAfter invokes all post-response hooks in registration order, stopping
// at the first error.
func (p *InterceptorPipeline) RunAfter(resp *http.Response, req *http.Request) error {
	for _, i := range p.responseInterceptors {
		if err := i(resp, req); err != nil {
			return err
		}
	}
	return nil
}

// Common interceptor constructors.

// BearerInterceptor adds a static bearer token to every request.
func BearerInterceptor(token string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// APIKeyInterceptor adds an API key header to every request.
func APIKeyInterceptor(headerName, apiKey string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(headerName, apiKey)
		return nil
	}
}

// CorrelationIDInterceptor stamps every request with a fresh UUID in the
// given header, typically "X-Correlation-ID".
func CorrelationIDInterceptor(headerName string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set(headerName, uuid.NewString())
		return nil
	}
}

// UserAgentInterceptor sets the User-Agent header on every request.
func UserAgentInterceptor(userAgent string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("User-Agent", userAgent)
		return nil
	}
}

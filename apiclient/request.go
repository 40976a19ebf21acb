package apiclient

import (
	"context"
	"sort"
	"time"
)

// RequestBuilder is a mutable, fluent accumulator that produces an
// immutable RequestSpec. Every setter returns the builder; the HTTP verb
// methods finalize the configuration and immediately hand the spec to the
// execution engine. No validation happens at build time.
//
//	res, err := client.NewRequest().
//	    Path("/users/{id}").
//	    PathParam("id", userID).
//	    Query("expand", "roles").
//	    Get(ctx)
type RequestBuilder struct {
	client *Client

	baseURL     string
	basePath    string
	path        string
	headers     []Header
	query       []Param
	pathParams  map[string]string
	body        any
	contentType string
	auth        AuthConfig
	timeout     time.Duration
	retryCount  int
	retryDelay  time.Duration
	retryIf     RetryPredicate
	logEnabled  bool
}

// BaseURL overrides the client's default base URL for this request.
func (rb *RequestBuilder) BaseURL(u string) *RequestBuilder {
	rb.baseURL = u
	return rb
}

// BasePath sets a path prefix joined ahead of Path.
func (rb *RequestBuilder) BasePath(p string) *RequestBuilder {
	rb.basePath = p
	return rb
}

// Path sets the request path. Placeholders in {name} syntax are filled
// with PathParam.
func (rb *RequestBuilder) Path(p string) *RequestBuilder {
	rb.path = p
	return rb
}

// PathParam sets a path parameter value.
func (rb *RequestBuilder) PathParam(name, value string) *RequestBuilder {
	rb.pathParams[name] = value
	return rb
}

// Header appends a request header. Insertion order and key casing are
// preserved exactly as supplied.
func (rb *RequestBuilder) Header(name, value string) *RequestBuilder {
	rb.headers = append(rb.headers, Header{Name: name, Value: value})
	return rb
}

// Headers appends multiple headers. Keys are sorted so the resulting order
// is deterministic; use Header when a specific order matters.
func (rb *RequestBuilder) Headers(h map[string]string) *RequestBuilder {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rb.headers = append(rb.headers, Header{Name: k, Value: h[k]})
	}
	return rb
}

// Query appends a query parameter.
func (rb *RequestBuilder) Query(name, value string) *RequestBuilder {
	rb.query = append(rb.query, Param{Name: name, Value: value})
	return rb
}

// Queries appends multiple query parameters in sorted key order.
func (rb *RequestBuilder) Queries(q map[string]string) *RequestBuilder {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rb.query = append(rb.query, Param{Name: k, Value: q[k]})
	}
	return rb
}

// Body sets the request payload. A string passes through as a
// pre-serialized payload; anything else is JSON-encoded at execution time.
func (rb *RequestBuilder) Body(v any) *RequestBuilder {
	rb.body = v
	return rb
}

// ContentType overrides the content type tag attached to the body.
func (rb *RequestBuilder) ContentType(ct string) *RequestBuilder {
	rb.contentType = ct
	return rb
}

// BasicAuth authenticates this request with HTTP Basic credentials.
func (rb *RequestBuilder) BasicAuth(user, pass string) *RequestBuilder {
	rb.auth = BasicAuth(user, pass)
	return rb
}

// BearerAuth authenticates this request with a static bearer token.
func (rb *RequestBuilder) BearerAuth(token string) *RequestBuilder {
	rb.auth = BearerAuth(token)
	return rb
}

// OAuth2ClientCredentials authenticates this request through the client's
// token cache using the OAuth2 client-credentials flow.
func (rb *RequestBuilder) OAuth2ClientCredentials(clientID, clientSecret, tokenURL string) *RequestBuilder {
	rb.auth = OAuth2ClientCredentials(clientID, clientSecret, tokenURL)
	return rb
}

// Auth sets an arbitrary auth descriptor.
func (rb *RequestBuilder) Auth(a AuthConfig) *RequestBuilder {
	rb.auth = a
	return rb
}

// Timeout overrides the per-request timeout.
func (rb *RequestBuilder) Timeout(d time.Duration) *RequestBuilder {
	rb.timeout = d
	return rb
}

// Retries overrides the retry count for this request.
func (rb *RequestBuilder) Retries(n int) *RequestBuilder {
	rb.retryCount = n
	return rb
}

// RetryDelay overrides the backoff base delay for this request.
func (rb *RequestBuilder) RetryDelay(d time.Duration) *RequestBuilder {
	rb.retryDelay = d
	return rb
}

// RetryIf replaces the retry predicate. The default retries on 408, 429
// and any 5xx status.
func (rb *RequestBuilder) RetryIf(pred RetryPredicate) *RequestBuilder {
	rb.retryIf = pred
	return rb
}

// DisableLogging suppresses request/response logging for this request.
func (rb *RequestBuilder) DisableLogging() *RequestBuilder {
	rb.logEnabled = false
	return rb
}

// Get executes a GET request.
func (rb *RequestBuilder) Get(ctx context.Context) (*Result, error) {
	return rb.Execute(ctx, MethodGet)
}

// Post executes a POST request.
func (rb *RequestBuilder) Post(ctx context.Context) (*Result, error) {
	return rb.Execute(ctx, MethodPost)
}

// Put executes a PUT request.
func (rb *RequestBuilder) Put(ctx context.Context) (*Result, error) {
	return rb.Execute(ctx, MethodPut)
}

// Patch executes a PATCH request.
func (rb *RequestBuilder) Patch(ctx context.Context) (*Result, error) {
	return rb.Execute(ctx, MethodPatch)
}

// Delete executes a DELETE request.
func (rb *RequestBuilder) Delete(ctx context.Context) (*Result, error) {
	return rb.Execute(ctx, MethodDelete)
}

// Head executes a HEAD request.
func (rb *RequestBuilder) Head(ctx context.Context) (*Result, error) {
	return rb.Execute(ctx, MethodHead)
}

// Options executes an OPTIONS request.
func (rb *RequestBuilder) Options(ctx context.Context) (*Result, error) {
	return rb.Execute(ctx, MethodOptions)
}

// Execute finalizes the builder into an immutable RequestSpec and runs it
// through the engine. Unsupported methods fail here, not at build time.
func (rb *RequestBuilder) Execute(ctx context.Context, m Method) (*Result, error) {
	return rb.client.engine.Execute(ctx, rb.Build(m))
}

// Build produces the immutable RequestSpec for the given method. The spec
// owns copies of the builder's collections, so further builder mutation
// cannot affect a spec already built.
func (rb *RequestBuilder) Build(m Method) RequestSpec {
	headers := make([]Header, len(rb.headers))
	copy(headers, rb.headers)

	query := make([]Param, len(rb.query))
	copy(query, rb.query)

	pathParams := make(map[string]string, len(rb.pathParams))
	for k, v := range rb.pathParams {
		pathParams[k] = v
	}

	return RequestSpec{
		Method:      m,
		BaseURL:     rb.baseURL,
		BasePath:    rb.basePath,
		Path:        rb.path,
		Headers:     headers,
		Query:       query,
		PathParams:  pathParams,
		Body:        rb.body,
		ContentType: rb.contentType,
		Auth:        rb.auth,
		Timeout:     rb.timeout,
		RetryCount:  rb.retryCount,
		RetryDelay:  rb.retryDelay,
		RetryIf:     rb.retryIf,
		LogEnabled:  rb.logEnabled,
	}
}

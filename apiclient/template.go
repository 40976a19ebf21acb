package apiclient

import "time"

// Template is a reusable bundle of request settings. Endpoints that share
// a base path, auth and headers declare them once and stamp them onto
// builders, so the per-call code only states what differs.
//
//	orders := apiclient.NewTemplate().
//		BasePath("/v2/orders").
//		Header("Accept", "application/json").
//		Auth(apiclient.OAuth2ClientCredentials(id, secret, tokenURL))
//
//	res, err := orders.Apply(client.NewRequest()).
//		Path("/{id}").
//		PathParam("id", "42").
//		Get(ctx)
type Template struct {
	basePath   string
	headers    []Header
	query      []Param
	auth       *AuthConfig
	timeout    time.Duration
	retries    *int
	retryDelay time.Duration
	retryIf    RetryPredicate
}

// NewTemplate returns an empty template.
func NewTemplate() *Template { return &Template{} }

// BasePath sets the path prefix shared by requests built from this
// template.
func (t *Template) BasePath(p string) *Template {
	t.basePath = p
	return t
}

// Header adds a header applied to every request.
func (t *Template) Header(name, value string) *Template {
	t.headers = append(t.headers, Header{Name: name, Value: value})
	return t
}

// Query adds a query parameter applied to every request.
func (t *Template) Query(name, value string) *Template {
	t.query = append(t.query, Param{Name: name, Value: value})
	return t
}

// Auth sets the default auth descriptor.
func (t *Template) Auth(a AuthConfig) *Template {
	t.auth = &a
	return t
}

// Timeout sets the default per-attempt timeout.
func (t *Template) Timeout(d time.Duration) *Template {
	t.timeout = d
	return t
}

// Retries sets the default retry budget.
func (t *Template) Retries(n int) *Template {
	t.retries = &n
	return t
}

// RetryDelay sets the default base backoff delay.
func (t *Template) RetryDelay(d time.Duration) *Template {
	t.retryDelay = d
	return t
}

// RetryIf sets the default retry predicate.
func (t *Template) RetryIf(pred RetryPredicate) *Template {
	t.retryIf = pred
	return t
}

// Apply stamps the template's settings onto a builder and returns it.
// Settings the template never declared are left untouched, and the caller
// can still override anything afterwards in the usual fluent chain.
func (t *Template) Apply(rb *RequestBuilder) *RequestBuilder {
	if t.basePath != "" {
		rb.BasePath(t.basePath)
	}
	for _, h := range t.headers {
		rb.Header(h.Name, h.Value)
	}
	for _, q := range t.query {
		rb.Query(q.Name, q.Value)
	}
	if t.auth != nil {
		rb.Auth(*t.auth)
	}
	if t.timeout > 0 {
		rb.Timeout(t.timeout)
	}
	if t.retries != nil {
		rb.Retries(*t.retries)
	}
	if t.retryDelay > 0 {
		rb.RetryDelay(t.retryDelay)
	}
	if t.retryIf != nil {
		rb.RetryIf(t.retryIf)
	}
	return rb
}

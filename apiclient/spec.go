package apiclient

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Method is the set of HTTP methods the engine dispatches. Using a tagged
// type instead of a raw string lets the engine match exhaustively and
// reject anything else with ErrUnsupportedMethod.
type Method string

// Supported HTTP methods.
const (
	MethodGet     Method = http.MethodGet
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
)

// supported reports whether the engine dispatches this method.
func (m Method) supported() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions:
		return true
	default:
		return false
	}
}

// Header is a single request header. Headers are kept as an ordered slice
// so insertion order and key casing survive exactly as supplied.
type Header struct {
	Name  string
	Value string
}

// Param is a single query parameter, ordered like Header.
type Param struct {
	Name  string
	Value string
}

// RetryPredicate decides whether a received response should trigger
// another attempt. It is only consulted after a successful transport
// round trip; transport errors are always retried up to the budget.
type RetryPredicate func(*http.Response) bool

// DefaultRetryPredicate retries on 408 Request Timeout, 429 Too Many
// Requests and any 5xx status.
func DefaultRetryPredicate(resp *http.Response) bool {
	if resp == nil {
		return true
	}
	s := resp.StatusCode
	return s == http.StatusRequestTimeout || s == http.StatusTooManyRequests || (s >= 500 && s < 600)
}

// authKind tags the AuthConfig variant.
type authKind int

const (
	authNone authKind = iota
	authBasic
	authBearer
	authOAuth2ClientCredentials
)

// AuthConfig describes how a request authenticates. Construct one with
// NoAuth, BasicAuth, BearerAuth or OAuth2ClientCredentials; the zero value
// means no authentication.
type AuthConfig struct {
	kind authKind

	user string
	pass string

	token string

	clientID     string
	clientSecret string
	tokenURL     string
}

// NoAuth returns the empty auth descriptor.
func NoAuth() AuthConfig { return AuthConfig{} }

// BasicAuth authenticates with HTTP Basic credentials.
func BasicAuth(user, pass string) AuthConfig {
	return AuthConfig{kind: authBasic, user: user, pass: pass}
}

// BearerAuth authenticates with a static bearer token.
func BearerAuth(token string) AuthConfig {
	return AuthConfig{kind: authBearer, token: token}
}

// OAuth2ClientCredentials authenticates with the OAuth2 client-credentials
// flow. The token is fetched through the client's TokenCache, which reuses
// it until it nears expiry.
func OAuth2ClientCredentials(clientID, clientSecret, tokenURL string) AuthConfig {
	return AuthConfig{
		kind:         authOAuth2ClientCredentials,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
	}
}

// RequestSpec is the immutable description of one HTTP call. The builder
// produces a fresh spec per execution; once built it never mutates, so
// re-executing the same spec is safe from the engine's point of view
// (the underlying HTTP call may of course not be idempotent).
type RequestSpec struct {
	Method      Method
	BaseURL     string
	BasePath    string
	Path        string
	Headers     []Header
	Query       []Param
	PathParams  map[string]string
	Body        any
	ContentType string
	Auth        AuthConfig
	Timeout     time.Duration
	RetryCount  int
	RetryDelay  time.Duration
	RetryIf     RetryPredicate
	LogEnabled  bool
}

// FullPath returns BasePath joined with Path, with {name} placeholders
// replaced by their path parameters. Used for metrics keys, logging and
// error messages.
func (s RequestSpec) FullPath() string {
	p := s.Path
	for k, v := range s.PathParams {
		p = strings.ReplaceAll(p, "{"+k+"}", url.PathEscape(v))
	}
	if s.BasePath == "" {
		return p
	}
	return strings.TrimSuffix(s.BasePath, "/") + "/" + strings.TrimPrefix(p, "/")
}

// URL assembles the absolute request URL including query parameters.
func (s RequestSpec) URL() (string, error) {
	full := s.FullPath()
	if s.BaseURL != "" {
		full = strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.TrimPrefix(full, "/")
	}

	if len(s.Query) == 0 {
		return full, nil
	}
	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for _, p := range s.Query {
		q.Add(p.Name, p.Value)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

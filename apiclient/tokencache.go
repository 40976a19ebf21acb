package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenSkewWindow is subtracted from a cached token's expiry so a token
	// is never presented to a downstream server moments before it really
	// expires. It absorbs clock drift and in-flight request latency.
	tokenSkewWindow = 10 * time.Second

	// defaultTokenTTL is assumed when the token endpoint omits expires_in.
	defaultTokenTTL = 3600 * time.Second

	// defaultSweepInterval is how often the background sweeper removes
	// entries whose expiry has already elapsed.
	defaultSweepInterval = 5 * time.Minute
)

type cachedToken struct {
	token  string
	expiry time.Time
}

// TokenCache is a thread-safe store of OAuth2 client-credentials access
// tokens keyed by (clientID, tokenURL). A valid cached token is reused
// without synchronization; refreshes for the same key are coalesced
// through singleflight so at most one fetch per key is ever in flight,
// while distinct keys refresh concurrently. A background sweeper bounds
// growth from keys that are no longer used.
type TokenCache struct {
	mu     sync.RWMutex
	tokens map[string]cachedToken

	group      singleflight.Group
	httpClient *http.Client
	logger     zerolog.Logger

	now func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithTokenHTTPClient sets the HTTP client used for token endpoint calls.
func WithTokenHTTPClient(hc *http.Client) TokenCacheOption {
	return func(tc *TokenCache) { tc.httpClient = hc }
}

// WithTokenCacheLogger sets the logger used by the sweeper and fetch path.
func WithTokenCacheLogger(l zerolog.Logger) TokenCacheOption {
	return func(tc *TokenCache) { tc.logger = l }
}

// NewTokenCache creates a cache and starts its background sweeper.
// Call Close to stop the sweeper.
func NewTokenCache(opts ...TokenCacheOption) *TokenCache {
	tc := &TokenCache{
		tokens:     make(map[string]cachedToken),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     zerolog.Nop(),
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(tc)
	}
	go tc.sweepLoop(defaultSweepInterval)
	return tc
}

// GetToken returns a valid access token for the given client credentials,
// fetching one from tokenURL when the cache has no fresh entry. Concurrent
// callers for the same key share a single fetch; callers for distinct keys
// never contend. A non-2xx status or network failure yields a *TokenError.
func (tc *TokenCache) GetToken(ctx context.Context, clientID, clientSecret, tokenURL string) (string, error) {
	key := clientID + "|" + tokenURL

	if tok, ok := tc.lookup(key); ok {
		return tok, nil
	}

	v, err, _ := tc.group.Do(key, func() (any, error) {
		// Re-check: another caller may have refreshed while this one was
		// waiting to enter the flight.
		if tok, ok := tc.lookup(key); ok {
			return tok, nil
		}

		// The flight serves every waiter on this key, so the fetch must not
		// die with the first caller's context. The cache's own HTTP client
		// timeout still bounds it.
		tok, expiry, err := tc.fetch(context.WithoutCancel(ctx), clientID, clientSecret, tokenURL)
		if err != nil {
			return "", err
		}

		tc.mu.Lock()
		tc.tokens[key] = cachedToken{token: tok, expiry: expiry}
		tc.mu.Unlock()

		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// lookup returns the cached token for key if it is still outside the skew
// window.
func (tc *TokenCache) lookup(key string) (string, bool) {
	tc.mu.RLock()
	ct, ok := tc.tokens[key]
	tc.mu.RUnlock()

	if ok && tc.now().Before(ct.expiry.Add(-tokenSkewWindow)) {
		return ct.token, true
	}
	return "", false
}

// tokenResponse is the subset of RFC 6749 §5.1 the cache cares about.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (tc *TokenCache) fetch(ctx context.Context, clientID, clientSecret, tokenURL string) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, &TokenError{TokenURL: tokenURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return "", time.Time{}, &TokenError{TokenURL: tokenURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", time.Time{}, &TokenError{TokenURL: tokenURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", time.Time{}, &TokenError{TokenURL: tokenURL, Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", time.Time{}, &TokenError{TokenURL: tokenURL, Err: err}
	}

	ttl := defaultTokenTTL
	if tr.ExpiresIn > 0 {
		ttl = time.Duration(tr.ExpiresIn) * time.Second
	}

	tc.logger.Debug().Str("token_url", tokenURL).Dur("ttl", ttl).Msg("fetched access token")
	return tr.AccessToken, tc.now().Add(ttl), nil
}

// sweepLoop periodically drops entries whose expiry has already elapsed.
func (tc *TokenCache) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-tc.done:
			return
		case <-ticker.C:
			tc.sweep()
		}
	}
}

func (tc *TokenCache) sweep() {
	now := tc.now()

	tc.mu.Lock()
	defer tc.mu.Unlock()

	for key, ct := range tc.tokens {
		if ct.expiry.Before(now) {
			delete(tc.tokens, key)
			tc.logger.Debug().Str("key", key).Msg("swept expired token")
		}
	}
}

// Close stops the background sweeper. Cached tokens remain usable.
func (tc *TokenCache) Close() {
	tc.closeOnce.Do(func() { close(tc.done) })
}

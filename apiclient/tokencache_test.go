package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenServer(t *testing.T, fetches *atomic.Int64, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenCache_FetchAndReuse(t *testing.T) {
	var fetches atomic.Int64
	srv := newTokenServer(t, &fetches, `{"access_token":"tok-1","expires_in":3600}`, http.StatusOK)

	tc := NewTokenCache()
	defer tc.Close()

	tok, err := tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	assert.Equal(t, int64(1), fetches.Load())
}

func TestTokenCache_StampedePrevention(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the flight open so callers pile up
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}))
	defer srv.Close()

	tc := NewTokenCache()
	defer tc.Close()

	const callers = 20
	var wg sync.WaitGroup
	errs := make([]error, callers)
	toks := make([]string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			toks[i], errs[i] = tc.GetToken(context.Background(), "cid", "secret", srv.URL)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "tok-1", toks[i])
	}
	assert.Equal(t, int64(1), fetches.Load(), "concurrent callers must share one fetch")
}

func TestTokenCache_SkewWindowForcesRefresh(t *testing.T) {
	var fetches atomic.Int64
	srv := newTokenServer(t, &fetches, `{"access_token":"tok-1","expires_in":60}`, http.StatusOK)

	tc := NewTokenCache()
	defer tc.Close()

	base := time.Now()
	tc.now = func() time.Time { return base }

	_, err := tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	require.Equal(t, int64(1), fetches.Load())

	// 5s before the skew boundary: still fresh, no refetch.
	tc.now = func() time.Time { return base.Add(45 * time.Second) }
	_, err = tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())

	// Inside the 10s skew window: treated as expired.
	tc.now = func() time.Time { return base.Add(55 * time.Second) }
	_, err = tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestTokenCache_DistinctKeysAreIsolated(t *testing.T) {
	var fetches atomic.Int64
	srv := newTokenServer(t, &fetches, `{"access_token":"tok","expires_in":3600}`, http.StatusOK)

	tc := NewTokenCache()
	defer tc.Close()

	_, err := tc.GetToken(context.Background(), "client-a", "s", srv.URL)
	require.NoError(t, err)
	_, err = tc.GetToken(context.Background(), "client-b", "s", srv.URL)
	require.NoError(t, err)

	assert.Equal(t, int64(2), fetches.Load(), "different client IDs must not share an entry")
}

func TestTokenCache_NonSuccessStatus(t *testing.T) {
	var fetches atomic.Int64
	srv := newTokenServer(t, &fetches, `{"error":"invalid_client"}`, http.StatusUnauthorized)

	tc := NewTokenCache()
	defer tc.Close()

	_, err := tc.GetToken(context.Background(), "cid", "bad", srv.URL)
	require.Error(t, err)

	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, http.StatusUnauthorized, tokenErr.Status)
	assert.Contains(t, tokenErr.Body, "invalid_client")
	assert.Equal(t, srv.URL, tokenErr.TokenURL)
}

func TestTokenCache_FailureIsNotCached(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"access_token":"tok-2","expires_in":3600}`))
	}))
	defer srv.Close()

	tc := NewTokenCache()
	defer tc.Close()

	_, err := tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.Error(t, err)

	tok, err := tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestTokenCache_DefaultTTLWhenExpiresInMissing(t *testing.T) {
	var fetches atomic.Int64
	srv := newTokenServer(t, &fetches, `{"access_token":"tok-1"}`, http.StatusOK)

	tc := NewTokenCache()
	defer tc.Close()

	base := time.Now()
	tc.now = func() time.Time { return base }

	_, err := tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)

	// Just inside the default one hour TTL minus skew: still cached.
	tc.now = func() time.Time { return base.Add(3600*time.Second - 11*time.Second) }
	_, err = tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetches.Load())

	// Past it: refetched.
	tc.now = func() time.Time { return base.Add(3600 * time.Second) }
	_, err = tc.GetToken(context.Background(), "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetches.Load())
}

func TestTokenCache_SweepRemovesExpired(t *testing.T) {
	tc := NewTokenCache()
	defer tc.Close()

	base := time.Now()
	tc.now = func() time.Time { return base }

	tc.mu.Lock()
	tc.tokens["old|url"] = cachedToken{token: "stale", expiry: base.Add(-time.Minute)}
	tc.tokens["new|url"] = cachedToken{token: "fresh", expiry: base.Add(time.Hour)}
	tc.mu.Unlock()

	tc.sweep()

	tc.mu.RLock()
	defer tc.mu.RUnlock()
	assert.NotContains(t, tc.tokens, "old|url")
	assert.Contains(t, tc.tokens, "new|url")
}

func TestTokenCache_FetchSurvivesCallerCancellation(t *testing.T) {
	var fetches atomic.Int64
	srv := newTokenServer(t, &fetches, `{"access_token":"tok-1","expires_in":3600}`, http.StatusOK)

	tc := NewTokenCache()
	defer tc.Close()

	// The in-flight fetch is shared by every waiter on the key; a caller's
	// cancellation must not poison it for the others.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tok, err := tc.GetToken(ctx, "cid", "secret", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int64(1), fetches.Load())
}

func TestTokenCache_CloseIsIdempotent(t *testing.T) {
	tc := NewTokenCache()
	tc.Close()
	tc.Close()
}

package apiclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Empty(t, cfg.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.True(t, cfg.LogRequests)
	assert.True(t, cfg.LogResponses)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://env.test")
	t.Setenv("API_TIMEOUT_SECONDS", "12")
	t.Setenv("API_RETRIES", "5")
	t.Setenv("API_RETRY_DELAY_MS", "250")
	t.Setenv("API_LOG_REQUESTS", "false")
	t.Setenv("API_LOG_RESPONSES", "false")

	cfg := ConfigFromEnv()

	assert.Equal(t, "https://env.test", cfg.BaseURL)
	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.False(t, cfg.LogRequests)
	assert.False(t, cfg.LogResponses)
}

func TestConfigFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("API_TIMEOUT_SECONDS", "never")
	t.Setenv("API_RETRIES", "-3")
	t.Setenv("API_RETRY_DELAY_MS", "")

	cfg := ConfigFromEnv()

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 2, cfg.Retries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
}

func TestNew_Defaults(t *testing.T) {
	client := New()
	defer client.Close()

	require.NotNil(t, client.Engine())
	require.NotNil(t, client.Metrics())
	require.NotNil(t, client.Tokens())
	require.NotNil(t, client.Interceptors())
	assert.Equal(t, DefaultConfig(), client.config)
}

func TestNew_SharedTokenCacheSurvivesClose(t *testing.T) {
	shared := NewTokenCache()
	defer shared.Close()

	client := New(WithTokenCache(shared))
	client.Close()

	// The shared cache's sweeper must still be running; Close on it later
	// must be the first real close.
	select {
	case <-shared.done:
		t.Fatal("client closed a token cache it does not own")
	default:
	}
}

func TestNew_WithMetricsRegistryShared(t *testing.T) {
	m := NewMetricsRegistry()

	a := New(WithMetricsRegistry(m))
	defer a.Close()
	b := New(WithMetricsRegistry(m))
	defer b.Close()

	assert.Same(t, m, a.Metrics())
	assert.Same(t, m, b.Metrics())
}

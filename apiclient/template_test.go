package apiclient

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_ApplyStampsSettings(t *testing.T) {
	client := New(WithBaseURL("https://api.test"))
	defer client.Close()

	tmpl := NewTemplate().
		BasePath("/v2/orders").
		Header("Accept", "application/json").
		Query("tenant", "acme").
		Auth(BearerAuth("tok")).
		Timeout(3 * time.Second).
		Retries(5).
		RetryDelay(100 * time.Millisecond)

	spec := tmpl.Apply(client.NewRequest()).
		Path("/{id}").
		PathParam("id", "42").
		Build(MethodGet)

	assert.Equal(t, "/v2/orders", spec.BasePath)
	assert.Equal(t, "/v2/orders/42", spec.FullPath())
	require.Len(t, spec.Headers, 1)
	assert.Equal(t, "Accept", spec.Headers[0].Name)
	require.Len(t, spec.Query, 1)
	assert.Equal(t, "tenant", spec.Query[0].Name)
	assert.Equal(t, authBearer, spec.Auth.kind)
	assert.Equal(t, 3*time.Second, spec.Timeout)
	assert.Equal(t, 5, spec.RetryCount)
	assert.Equal(t, 100*time.Millisecond, spec.RetryDelay)
}

func TestTemplate_UndeclaredSettingsLeftUntouched(t *testing.T) {
	client := New(
		WithBaseURL("https://api.test"),
		WithTimeout(7*time.Second),
		WithRetries(1),
	)
	defer client.Close()

	tmpl := NewTemplate().BasePath("/v1")

	spec := tmpl.Apply(client.NewRequest()).Path("/x").Build(MethodGet)

	assert.Equal(t, 7*time.Second, spec.Timeout)
	assert.Equal(t, 1, spec.RetryCount)
	assert.Equal(t, authNone, spec.Auth.kind)
}

func TestTemplate_CallerOverridesWin(t *testing.T) {
	client := New()
	defer client.Close()

	tmpl := NewTemplate().Timeout(10 * time.Second).Retries(3)

	spec := tmpl.Apply(client.NewRequest()).
		Path("/x").
		Timeout(time.Second).
		Retries(0).
		Build(MethodGet)

	assert.Equal(t, time.Second, spec.Timeout)
	assert.Zero(t, spec.RetryCount)
}

func TestTemplate_ZeroRetriesIsStamped(t *testing.T) {
	client := New(WithRetries(4))
	defer client.Close()

	tmpl := NewTemplate().Retries(0)

	spec := tmpl.Apply(client.NewRequest()).Path("/x").Build(MethodGet)
	assert.Zero(t, spec.RetryCount, "an explicit zero must override the client default")
}

func TestTemplate_ReusableAcrossRequests(t *testing.T) {
	mock := NewMockTransport().StubResponse(http.StatusOK, "")
	client := newTestClient(mock)
	defer client.Close()

	tmpl := NewTemplate().BasePath("/v2").Header("X-Tenant", "acme")

	_, err := tmpl.Apply(client.NewRequest()).Path("/a").Get(context.Background())
	require.NoError(t, err)
	_, err = tmpl.Apply(client.NewRequest()).Path("/b").Get(context.Background())
	require.NoError(t, err)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/v2/a", reqs[0].URL.Path)
	assert.Equal(t, "/v2/b", reqs[1].URL.Path)
	assert.Equal(t, "acme", reqs[0].Header["X-Tenant"][0])
	assert.Equal(t, "acme", reqs[1].Header["X-Tenant"][0])
}

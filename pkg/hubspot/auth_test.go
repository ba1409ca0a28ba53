package hubspot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/secrets"
)

func TestAuthenticateHapikeyWinsOverOAuthFields(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	c.TokenURL = srv.URL

	blob := secrets.Blob{
		"hapikey":       "legacy-key",
		"client_id":     "id",
		"client_secret": "secret",
		"refresh_token": "refresh",
		"access_token":  "stored",
	}

	// hapikey takes precedence even with alwaysRefresh set.
	err := c.Authenticate(context.Background(), blob, true)
	require.NoError(t, err)
	assert.Equal(t, AuthAPIKey, c.AuthType())
	assert.Equal(t, 0, tokenCalls)
}

func TestAuthenticateRefreshGrant(t *testing.T) {
	tokenCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "refresh", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "fresh-token"}`))
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	c.TokenURL = srv.URL

	blob := secrets.Blob{
		"client_id":     "id",
		"client_secret": "secret",
		"refresh_token": "refresh",
		"access_token":  "stale",
	}

	err := c.Authenticate(context.Background(), blob, true)
	require.NoError(t, err)
	assert.Equal(t, AuthBearer, c.AuthType())
	assert.Equal(t, 1, tokenCalls)
}

func TestAuthenticateRefreshFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant"}`))
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	c.TokenURL = srv.URL

	blob := secrets.Blob{
		"client_id":     "id",
		"client_secret": "secret",
		"refresh_token": "expired",
		"access_token":  "stored",
	}

	// No silent fallback to the stored token when a forced refresh fails.
	err := c.Authenticate(context.Background(), blob, true)
	assert.Error(t, err)
}

func TestAuthenticateStoredTokenWithoutRefreshFlag(t *testing.T) {
	c := NewClientWithLogger(zap.NewNop())

	blob := secrets.Blob{
		"client_id":     "id",
		"client_secret": "secret",
		"refresh_token": "refresh",
		"access_token":  "stored",
	}

	// Without alwaysRefresh the stored token is used directly.
	err := c.Authenticate(context.Background(), blob, false)
	require.NoError(t, err)
	assert.Equal(t, AuthBearer, c.AuthType())
}

func TestAuthenticateStoredTokenKeyOrder(t *testing.T) {
	c := NewClientWithLogger(zap.NewNop())

	err := c.Authenticate(context.Background(), secrets.Blob{"token": "t", "api_key": "k"}, false)
	require.NoError(t, err)
	assert.Equal(t, "t", c.token)

	c = NewClientWithLogger(zap.NewNop())
	err = c.Authenticate(context.Background(), secrets.Blob{"api_key": "k"}, false)
	require.NoError(t, err)
	assert.Equal(t, "k", c.token)
}

func TestAuthenticateNoUsableCredentialListsKeys(t *testing.T) {
	c := NewClientWithLogger(zap.NewNop())

	err := c.Authenticate(context.Background(), secrets.Blob{"portal_id": "123", "owner": "ops"}, false)
	require.Error(t, err)
	// The error names what the secret holds so an operator can fix it, but
	// never any values.
	assert.Contains(t, err.Error(), "owner")
	assert.Contains(t, err.Error(), "portal_id")
	assert.NotContains(t, err.Error(), "123")
}

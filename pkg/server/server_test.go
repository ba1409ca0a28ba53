package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/history"
	"github.com/hookline/crmq/pkg/runner"
	"github.com/hookline/crmq/pkg/secrets"
)

type fakeSecretsManager struct {
	secretsmanageriface.SecretsManagerAPI
	payloads map[string]string
}

func (f *fakeSecretsManager) GetSecretValueWithContext(_ aws.Context, in *secretsmanager.GetSecretValueInput, _ ...request.Option) (*secretsmanager.GetSecretValueOutput, error) {
	payload, ok := f.payloads[aws.StringValue(in.SecretId)]
	if !ok {
		return nil, &secretsmanager.ResourceNotFoundException{}
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(payload)}, nil
}

func newTestServer(t *testing.T, payloads map[string]string) *Server {
	t.Helper()
	store := secrets.NewStoreWithClient(&fakeSecretsManager{payloads: payloads}, zap.NewNop())
	r := runner.New(store, history.NopRecorder{}, zap.NewNop())
	return New(r, zap.NewNop())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueryRejectsInvalidBody(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader("not-json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestQueryRejectsInvalidRequest(t *testing.T) {
	srv := newTestServer(t, nil)

	// Validation runs before any secret fetch or network call.
	body := `{"platform": "zendesk", "secretPath": "acme/x", "object": "tickets", "type": "count"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	payload, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(payload), "unknown platform")
}

func TestQueryMissingSecretIsBadGateway(t *testing.T) {
	srv := newTestServer(t, map[string]string{})

	body := `{"platform": "hubspot", "secretPath": "missing/secret", "object": "contacts", "type": "count"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestDiscoverRequiresSecretPath(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/discover", strings.NewReader(`{"platform": "hubspot"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

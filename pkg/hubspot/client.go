// Package hubspot is a client for the HubSpot CRM v3 REST API, covering
// the query shapes this tool needs: record counts, listing, filtered
// search, cursor-paginated bulk fetch, and property/schema discovery.
package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	httpclient "github.com/hookline/crmq/pkg/http"
	"github.com/hookline/crmq/pkg/secrets"
)

const (
	defaultBaseURL  = "https://api.hubapi.com"
	defaultTokenURL = "https://api.hubapi.com/oauth/v1/token"

	// maxPageSize is HubSpot's per-page ceiling on list and search calls.
	maxPageSize = 100
)

// AuthType tags which transport mechanism the resolved token requires.
type AuthType string

const (
	// AuthBearer sends the token in an Authorization header.
	AuthBearer AuthType = "bearer"
	// AuthAPIKey sends a legacy key as a ?hapikey= query parameter.
	AuthAPIKey AuthType = "hapikey"
)

// Client is the HubSpot API client. Authenticate must be called before
// any query method. The resolved token is held for the lifetime of the
// client; nothing is accessed concurrently.
type Client struct {
	// BaseURL and TokenURL are overridable for tests.
	BaseURL  string
	TokenURL string

	httpClient *httpclient.Client
	logger     *zap.Logger

	token    string
	authType AuthType
}

// NewClientWithLogger creates a new HubSpot client with a custom logger.
func NewClientWithLogger(logger *zap.Logger) *Client {
	return &Client{
		BaseURL:    defaultBaseURL,
		TokenURL:   defaultTokenURL,
		httpClient: httpclient.NewClientWithLogger(logger),
		logger:     logger,
	}
}

// AuthType reports the transport chosen by Authenticate.
func (c *Client) AuthType() AuthType { return c.authType }

// Authenticate resolves a token from the credential blob. Priority:
//
//  1. hapikey, the legacy API key with query-param transport
//  2. OAuth refresh grant, when client_id + client_secret + refresh_token
//     are all present and alwaysRefresh is set
//  3. stored access_token / token / api_key, first present, as Bearer
//
// A refresh failure propagates; there is no silent fallback to a stored
// token.
func (c *Client) Authenticate(ctx context.Context, blob secrets.Blob, alwaysRefresh bool) error {
	if blob.Has("hapikey") {
		c.token = blob.Get("hapikey")
		c.authType = AuthAPIKey
		c.logger.Info("Authenticated with legacy API key (hapikey)")
		return nil
	}

	hasOAuth := blob.Has("client_id") && blob.Has("client_secret") && blob.Has("refresh_token")
	if alwaysRefresh && hasOAuth {
		token, err := c.refreshAccessToken(ctx, blob)
		if err != nil {
			return err
		}
		c.token = token
		c.authType = AuthBearer
		c.logger.Info("Authenticated with fresh OAuth access token")
		return nil
	}

	for _, key := range []string{"access_token", "token", "api_key"} {
		if blob.Has(key) {
			c.token = blob.Get(key)
			c.authType = AuthBearer
			c.logger.Info("Authenticated with stored bearer token", zap.String("credential_key", key))
			return nil
		}
	}

	return fmt.Errorf("no token found in credentials: expected one of access_token, hapikey, token, api_key, "+
		"or OAuth fields (client_id + client_secret + refresh_token); found keys: %s",
		strings.Join(blob.Keys(), ", "))
}

// refreshAccessToken exchanges the refresh token for a fresh access token.
func (c *Client) refreshAccessToken(ctx context.Context, blob secrets.Blob) (string, error) {
	c.logger.Info("Refreshing OAuth access token", zap.String("url", c.TokenURL))

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", blob.Get("client_id"))
	form.Set("client_secret", blob.Get("client_secret"))
	form.Set("refresh_token", blob.Get("refresh_token"))

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	resp, err := c.httpClient.Post(ctx, c.TokenURL, headers, form)
	if err != nil {
		c.logger.Error("OAuth token refresh failed", zap.Error(err))
		return "", fmt.Errorf("oauth token refresh failed: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body, &tok); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token response contained no access_token")
	}
	return tok.AccessToken, nil
}

// headers returns the per-request headers for the resolved transport.
func (c *Client) headers() map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if c.authType == AuthBearer {
		h["Authorization"] = "Bearer " + c.token
	}
	return h
}

// params folds the hapikey query parameter into extra when the legacy
// transport is in use.
func (c *Client) params(extra map[string]string) map[string]string {
	p := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		p[k] = v
	}
	if c.authType == AuthAPIKey {
		p["hapikey"] = c.token
	}
	return p
}

func (c *Client) get(ctx context.Context, path string, extra map[string]string) (*httpclient.Response, error) {
	u, err := httpclient.BuildURL(c.BaseURL, path, c.params(extra))
	if err != nil {
		return nil, err
	}
	return c.httpClient.Get(ctx, u, c.headers())
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*httpclient.Response, error) {
	u, err := httpclient.BuildURL(c.BaseURL, path, c.params(nil))
	if err != nil {
		return nil, err
	}
	return c.httpClient.Post(ctx, u, c.headers(), payload)
}

func clampPageSize(limit int) string {
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return strconv.Itoa(limit)
}

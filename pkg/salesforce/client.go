// Package salesforce is a client for the Salesforce REST API covering
// SOQL queries, sobject listing and describe, and the three OAuth grant
// flows this tool's credential blobs can carry.
package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	httpclient "github.com/hookline/crmq/pkg/http"
	"github.com/hookline/crmq/pkg/secrets"
)

const (
	// APIVersion pins the REST API version for all data calls.
	APIVersion = "v59.0"

	// MaxWildcardRows is the server-enforced ceiling on
	// SELECT FIELDS(ALL) queries.
	MaxWildcardRows = 200
)

// Client is the Salesforce API client. Authenticate must be called
// before any query method; it resolves the instance URL and an access
// token from the credential blob.
type Client struct {
	httpClient *httpclient.Client
	logger     *zap.Logger

	instanceURL string
	accessToken string
}

// NewClientWithLogger creates a new Salesforce client with a custom logger.
func NewClientWithLogger(logger *zap.Logger) *Client {
	return &Client{
		httpClient: httpclient.NewClientWithLogger(logger),
		logger:     logger,
	}
}

// InstanceURL reports the instance resolved by Authenticate.
func (c *Client) InstanceURL() string { return c.instanceURL }

// Authenticate resolves the instance URL and access token from the blob.
// instance_url must be present or resolution fails immediately; nothing
// can proceed without it. When forceOAuth is false and the blob holds a
// stored access_token, it is used directly without validation.
func (c *Client) Authenticate(ctx context.Context, blob secrets.Blob, forceOAuth bool) error {
	instanceURL := strings.TrimRight(blob.Get("instance_url"), "/")
	if instanceURL == "" {
		return fmt.Errorf("instance_url not found in credentials")
	}
	c.instanceURL = instanceURL

	if !forceOAuth && blob.Has("access_token") {
		c.accessToken = blob.Get("access_token")
		c.logger.Info("Using stored access token")
		return nil
	}

	token, err := c.resolveToken(ctx, blob)
	if err != nil {
		return err
	}
	c.accessToken = token
	return nil
}

// resolveToken tries the OAuth grants in fixed order: refresh token,
// username/password (with security token suffix when present), then
// client credentials. Each attempt swallows its own failure and falls
// through; the final attempt's error propagates.
func (c *Client) resolveToken(ctx context.Context, blob secrets.Blob) (string, error) {
	tokenURL := c.instanceURL + "/services/oauth2/token"

	if blob.Has("refresh_token") {
		c.logger.Info("Attempting refresh token grant")
		form := url.Values{}
		form.Set("grant_type", "refresh_token")
		form.Set("client_id", blob.Get("client_id"))
		form.Set("client_secret", blob.Get("client_secret"))
		form.Set("refresh_token", blob.Get("refresh_token"))

		token, err := c.tokenExchange(ctx, tokenURL, form)
		if err == nil {
			c.logger.Info("Refresh token grant succeeded")
			return token, nil
		}
		c.logger.Warn("Refresh token grant failed", zap.Error(err))
	}

	if blob.Has("username") && blob.Has("password") {
		c.logger.Info("Attempting password grant")
		password := blob.Get("password")
		if blob.Has("security_token") {
			password += blob.Get("security_token")
		}

		form := url.Values{}
		form.Set("grant_type", "password")
		form.Set("client_id", blob.Get("client_id"))
		form.Set("client_secret", blob.Get("client_secret"))
		form.Set("username", blob.Get("username"))
		form.Set("password", password)

		token, err := c.tokenExchange(ctx, tokenURL, form)
		if err == nil {
			c.logger.Info("Password grant succeeded")
			return token, nil
		}
		c.logger.Warn("Password grant failed", zap.Error(err))
	}

	c.logger.Info("Attempting client credentials grant")
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", blob.Get("client_id"))
	form.Set("client_secret", blob.Get("client_secret"))

	token, err := c.tokenExchange(ctx, tokenURL, form)
	if err != nil {
		c.logger.Error("All authentication flows failed", zap.Error(err))
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	return token, nil
}

func (c *Client) tokenExchange(ctx context.Context, tokenURL string, form url.Values) (string, error) {
	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	resp, err := c.httpClient.Post(ctx, tokenURL, headers, form)
	if err != nil {
		return "", err
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

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.accessToken,
		"Content-Type":  "application/json",
	}
}

func (c *Client) dataURL(path string, query map[string]string) (string, error) {
	return httpclient.BuildURL(c.instanceURL, "/services/data/"+APIVersion+path, query)
}

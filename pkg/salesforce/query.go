package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/discovery"
	httpclient "github.com/hookline/crmq/pkg/http"
	"github.com/hookline/crmq/pkg/secrets"
)

// BuildSOQL constructs the canned SOQL statement for a query type. The
// wildcard "all" form is clamped to the server's 200-row ceiling.
func BuildSOQL(queryType, sobject string, limit int) string {
	switch queryType {
	case "count":
		return fmt.Sprintf("SELECT COUNT() FROM %s", sobject)
	case "list":
		return fmt.Sprintf("SELECT Id, Name FROM %s LIMIT 20", sobject)
	case "all":
		if limit <= 0 {
			limit = 10
		}
		if limit > MaxWildcardRows {
			limit = MaxWildcardRows
		}
		return fmt.Sprintf("SELECT FIELDS(ALL) FROM %s LIMIT %d", sobject, limit)
	default:
		return fmt.Sprintf("SELECT Id FROM %s LIMIT 10", sobject)
	}
}

// Query executes a SOQL statement.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResponse, error) {
	c.logger.Info("Executing query", zap.String("soql", soql))

	u, err := c.dataURL("/query", map[string]string{"q": soql})
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, u, c.headers())
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var result QueryResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}
	return &result, nil
}

// RefetchFunc re-fetches the credential blob from the secret store when a
// query hits an expired token.
type RefetchFunc func(ctx context.Context) (secrets.Blob, error)

// QueryWithReauth runs a SOQL statement and, on a 401 with refetch
// provided, re-fetches the secret, forces a fresh OAuth resolution, and
// retries the same query exactly once. A second failure is fatal.
func (c *Client) QueryWithReauth(ctx context.Context, soql string, refetch RefetchFunc) (*QueryResponse, error) {
	result, err := c.Query(ctx, soql)
	if err == nil || refetch == nil || !httpclient.IsStatus(err, http.StatusUnauthorized) {
		return result, err
	}

	c.logger.Warn("Access token expired, re-authenticating and retrying query once")

	blob, ferr := refetch(ctx)
	if ferr != nil {
		return nil, fmt.Errorf("failed to refresh credentials: %w", ferr)
	}
	if aerr := c.Authenticate(ctx, blob, true); aerr != nil {
		return nil, fmt.Errorf("failed to refresh credentials: %w", aerr)
	}
	return c.Query(ctx, soql)
}

// Count returns the record count via SELECT COUNT(). Failures propagate;
// discovery maps them to a sentinel at its own call site.
func (c *Client) Count(ctx context.Context, sobject string) (int, error) {
	result, err := c.Query(ctx, BuildSOQL("count", sobject, 0))
	if err != nil {
		return 0, fmt.Errorf("failed to count %s records: %w", sobject, err)
	}
	return result.TotalSize, nil
}

// Describe fetches the field descriptors for an sobject from the
// schema-describe endpoint (no record data).
func (c *Client) Describe(ctx context.Context, sobject string) ([]Field, error) {
	c.logger.Info("Describing object", zap.String("sobject", sobject))

	u, err := c.dataURL(fmt.Sprintf("/sobjects/%s/describe", sobject), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, u, c.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s: %w", sobject, err)
	}

	var result describeResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse describe response: %w", err)
	}
	return result.Fields, nil
}

// GetObjects lists every sobject visible to the integration user.
func (c *Client) GetObjects(ctx context.Context) ([]SObject, error) {
	c.logger.Info("Fetching all Salesforce objects")

	u, err := c.dataURL("/sobjects", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, u, c.headers())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sobjects: %w", err)
	}

	var result sobjectsResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse sobjects response: %w", err)
	}
	return result.SObjects, nil
}

// DiscoverObjects converts the sobjects listing into discovery
// descriptors. Non-queryable objects are kept but marked so the count
// sweep can skip them.
func (c *Client) DiscoverObjects(ctx context.Context) ([]discovery.Object, error) {
	sobjects, err := c.GetObjects(ctx)
	if err != nil {
		return nil, err
	}

	objects := make([]discovery.Object, 0, len(sobjects))
	for _, so := range sobjects {
		kind := discovery.KindStandard
		if so.Custom {
			kind = discovery.KindCustom
		}
		objects = append(objects, discovery.Object{
			Name:      so.Name,
			Label:     so.Label,
			Kind:      kind,
			Queryable: so.Queryable,
		})
	}
	return objects, nil
}

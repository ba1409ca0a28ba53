package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/discovery"
)

// Count returns the total record count for an object type, read from the
// search envelope with a one-record page and a minimal projection.
// Failures propagate; discovery mode maps them to a sentinel at its own
// call site.
func (c *Client) Count(ctx context.Context, objectType string) (int, error) {
	payload := searchRequest{
		FilterGroups: []filterGroup{},
		Properties:   []string{"hs_object_id"},
		Limit:        1,
	}

	resp, err := c.post(ctx, fmt.Sprintf("/crm/v3/objects/%s/search", objectType), payload)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s records: %w", objectType, err)
	}

	var result SearchResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return 0, fmt.Errorf("failed to parse count response: %w", err)
	}
	return result.Total, nil
}

// GetProperties fetches all property descriptors for an object type.
func (c *Client) GetProperties(ctx context.Context, objectType string) ([]Property, error) {
	c.logger.Info("Fetching properties", zap.String("object_type", objectType))

	resp, err := c.get(ctx, fmt.Sprintf("/crm/v3/properties/%s", objectType), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch properties for %s: %w", objectType, err)
	}

	var result propertiesResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse properties response: %w", err)
	}
	return result.Results, nil
}

// ListRecords fetches records from the basic listing endpoint with the
// platform defaults (or the given properties).
func (c *Client) ListRecords(ctx context.Context, objectType string, properties []string, limit int) ([]Record, error) {
	c.logger.Info("Listing records", zap.String("object_type", objectType), zap.Int("limit", limit))

	extra := map[string]string{"limit": clampPageSize(limit)}
	if len(properties) > 0 {
		extra["properties"] = strings.Join(properties, ",")
	}

	resp, err := c.get(ctx, fmt.Sprintf("/crm/v3/objects/%s", objectType), extra)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", objectType, err)
	}

	var result listResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}
	return result.Results, nil
}

// SearchRecords runs a filtered search. Filters are combined into a
// single AND group; there is no OR support.
func (c *Client) SearchRecords(ctx context.Context, objectType string, filters []Filter, properties []string, limit int) (*SearchResponse, error) {
	c.logger.Info("Searching records",
		zap.String("object_type", objectType),
		zap.Int("filters", len(filters)),
		zap.Int("limit", limit))

	payload := searchRequest{
		FilterGroups: []filterGroup{},
		Limit:        min(limit, maxPageSize),
	}
	if len(filters) > 0 {
		payload.FilterGroups = []filterGroup{{Filters: filters}}
	}
	if len(properties) > 0 {
		payload.Properties = properties
	}

	resp, err := c.post(ctx, fmt.Sprintf("/crm/v3/objects/%s/search", objectType), payload)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s records: %w", objectType, err)
	}

	var result SearchResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return &result, nil
}

// FetchAll pages through the search endpoint carrying the opaque after
// cursor forward until limit records are accumulated, the server stops
// returning a cursor, or a page comes back empty. Overshoot on the final
// page is truncated to limit.
//
// Records are not deduplicated: cursor stability across pages is assumed,
// so a dataset mutated mid-scan can skip or repeat records.
func (c *Client) FetchAll(ctx context.Context, objectType string, propertyNames []string, limit int) ([]Record, error) {
	c.logger.Info("Fetching all records",
		zap.String("object_type", objectType),
		zap.Int("properties", len(propertyNames)),
		zap.Int("limit", limit))

	var records []Record
	after := ""

	for len(records) < limit {
		payload := searchRequest{
			FilterGroups: []filterGroup{},
			Properties:   propertyNames,
			Limit:        min(maxPageSize, limit-len(records)),
			After:        after,
		}

		resp, err := c.post(ctx, fmt.Sprintf("/crm/v3/objects/%s/search", objectType), payload)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s records: %w", objectType, err)
		}

		var page SearchResponse
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return nil, fmt.Errorf("failed to parse search response: %w", err)
		}

		records = append(records, page.Results...)

		after = ""
		if page.Paging != nil && page.Paging.Next != nil {
			after = page.Paging.Next.After
		}
		if after == "" || len(page.Results) == 0 {
			break
		}
	}

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// GetObjectSchemas lists custom object schemas. A failure degrades to an
// empty list so discovery can still show the standard objects.
func (c *Client) GetObjectSchemas(ctx context.Context) ([]Schema, error) {
	resp, err := c.get(ctx, "/crm/v3/schemas", nil)
	if err != nil {
		c.logger.Warn("Could not fetch custom schemas", zap.Error(err))
		return nil, nil
	}

	var result schemasResponse
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		c.logger.Warn("Could not parse custom schemas", zap.Error(err))
		return nil, nil
	}
	return result.Results, nil
}

// DiscoverObjects merges the standard object list with custom schemas
// into discovery descriptors.
func (c *Client) DiscoverObjects(ctx context.Context) ([]discovery.Object, error) {
	schemas, _ := c.GetObjectSchemas(ctx)

	objects := make([]discovery.Object, 0, len(StandardObjects)+len(schemas))
	for _, name := range StandardObjects {
		objects = append(objects, discovery.Object{
			Name:      name,
			Label:     titleCase(name),
			Kind:      discovery.KindStandard,
			Queryable: true,
		})
	}
	for _, schema := range schemas {
		name := schema.FullyQualifiedName
		if name == "" {
			name = schema.Name
		}
		label := schema.Labels.Singular
		if label == "" {
			label = schema.Name
		}
		objects = append(objects, discovery.Object{
			Name:      name,
			Label:     label,
			Kind:      discovery.KindCustom,
			Queryable: true,
		})
	}
	return objects, nil
}

// titleCase upper-cases the first letter of each underscore-separated
// word ("line_items" -> "Line_Items"), matching the display labels used
// for standard objects.
func titleCase(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "_")
}

package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/secrets"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClientWithLogger(zap.NewNop())
	c.BaseURL = srv.URL
	require.NoError(t, c.Authenticate(context.Background(), secrets.Blob{"access_token": "tok"}, false))
	return c, srv
}

func searchPage(ids []string, nextAfter string) []byte {
	resp := SearchResponse{Total: 9999}
	for _, id := range ids {
		resp.Results = append(resp.Results, Record{ID: id, Properties: map[string]interface{}{"email": id + "@example.com"}})
	}
	if nextAfter != "" {
		resp.Paging = &Paging{Next: &PagingNext{After: nextAfter}}
	}
	b, _ := json.Marshal(resp)
	return b
}

func TestCount(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/objects/contacts/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 1, req["limit"])

		w.Write([]byte(`{"total": 4217, "results": []}`))
	}))

	count, err := c.Count(context.Background(), "contacts")
	require.NoError(t, err)
	assert.Equal(t, 4217, count)
}

func TestFetchAllFollowsCursorToEnd(t *testing.T) {
	var afters []string
	pages := map[string][]byte{
		"":   searchPage([]string{"1", "2"}, "c1"),
		"c1": searchPage([]string{"3", "4"}, "c2"),
		"c2": searchPage([]string{"5"}, ""),
	}

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			After string `json:"after"`
			Limit int    `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		afters = append(afters, req.After)
		w.Write(pages[req.After])
	}))

	records, err := c.FetchAll(context.Background(), "contacts", []string{"email"}, 1000)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "1", records[0].ID)
	assert.Equal(t, "5", records[4].ID)
	// The final page returned no cursor, so no extra request was made.
	assert.Equal(t, []string{"", "c1", "c2"}, afters)
}

func TestFetchAllStopsAtLimit(t *testing.T) {
	requests := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var req struct {
			Limit int `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		ids := make([]string, req.Limit)
		for i := range ids {
			ids[i] = fmt.Sprintf("r%d-%d", requests, i)
		}
		w.Write(searchPage(ids, fmt.Sprintf("c%d", requests)))
	}))

	records, err := c.FetchAll(context.Background(), "deals", nil, 150)
	require.NoError(t, err)
	assert.Len(t, records, 150)
	// 100 on the first page, the remaining 50 on the second.
	assert.Equal(t, 2, requests)
}

func TestFetchAllTruncatesOvershoot(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Server ignores the requested page size and returns more.
		w.Write(searchPage([]string{"1", "2", "3", "4", "5"}, ""))
	}))

	records, err := c.FetchAll(context.Background(), "deals", nil, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	requests := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Cursor present but no results: terminate rather than loop.
		w.Write([]byte(`{"total": 10, "results": [], "paging": {"next": {"after": "c1"}}}`))
	}))

	records, err := c.FetchAll(context.Background(), "deals", nil, 100)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, 1, requests)
}

func TestListRecordsClampsPageSize(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/objects/companies", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "name,domain", r.URL.Query().Get("properties"))
		w.Write([]byte(`{"results": [{"id": "77", "properties": {"name": "Acme"}}]}`))
	}))

	records, err := c.ListRecords(context.Background(), "companies", []string{"name", "domain"}, 500)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "77", records[0].ID)
}

func TestSearchRecordsSingleFilterGroup(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FilterGroups []struct {
				Filters []Filter `json:"filters"`
			} `json:"filterGroups"`
			Limit int `json:"limit"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// All filters live in one AND group.
		require.Len(t, req.FilterGroups, 1)
		assert.Len(t, req.FilterGroups[0].Filters, 2)
		assert.Equal(t, 10, req.Limit)

		w.Write([]byte(`{"total": 2, "results": [{"id": "1", "properties": {}}, {"id": "2", "properties": {}}]}`))
	}))

	filters := []Filter{
		{PropertyName: "email", Operator: "CONTAINS_TOKEN", Value: "*@acme.com"},
		{PropertyName: "lifecyclestage", Operator: "EQ", Value: "customer"},
	}
	result, err := c.SearchRecords(context.Background(), "contacts", filters, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Results, 2)
}

func TestHapikeyTransportUsesQueryParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "legacy", r.URL.Query().Get("hapikey"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	c := NewClientWithLogger(zap.NewNop())
	c.BaseURL = srv.URL
	require.NoError(t, c.Authenticate(context.Background(), secrets.Blob{"hapikey": "legacy"}, false))

	_, err := c.ListRecords(context.Background(), "contacts", nil, 10)
	require.NoError(t, err)
}

func TestDiscoverObjectsMergesCustomSchemas(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crm/v3/schemas", r.URL.Path)
		w.Write([]byte(`{"results": [
			{"name": "machines", "fullyQualifiedName": "p123_machines", "labels": {"singular": "Machine"}}
		]}`))
	}))

	objects, err := c.DiscoverObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, len(StandardObjects)+1)

	assert.Equal(t, "contacts", objects[0].Name)
	assert.Equal(t, "Contacts", objects[0].Label)

	custom := objects[len(objects)-1]
	assert.Equal(t, "p123_machines", custom.Name)
	assert.Equal(t, "Machine", custom.Label)
	assert.Equal(t, "custom", custom.Kind)
}

func TestDiscoverObjectsSchemaFailureDegrades(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	// Missing schema scope still yields the standard objects.
	objects, err := c.DiscoverObjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, objects, len(StandardObjects))
}

func TestFlattenHoistsIDAndProperties(t *testing.T) {
	row := Flatten(Record{ID: "42", Properties: map[string]interface{}{"email": "a@b.c", "age": float64(30)}})
	assert.Equal(t, map[string]interface{}{"id": "42", "email": "a@b.c", "age": float64(30)}, row)
}

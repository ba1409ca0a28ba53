package hubspot

// StandardObjects is the fixed list of built-in CRM object types merged
// with custom schemas during discovery.
var StandardObjects = []string{
	"contacts", "companies", "deals", "tickets",
	"line_items", "products", "quotes", "calls",
	"emails", "meetings", "notes", "tasks", "communications",
}

// Record is HubSpot's native shape for one entity instance.
type Record struct {
	ID         string                 `json:"id"`
	Properties map[string]interface{} `json:"properties"`
}

// Flatten hoists the id and merges properties into one flat row.
func Flatten(r Record) map[string]interface{} {
	flat := make(map[string]interface{}, len(r.Properties)+1)
	flat["id"] = r.ID
	for k, v := range r.Properties {
		flat[k] = v
	}
	return flat
}

// FlattenAll flattens a batch of records in order.
func FlattenAll(records []Record) []map[string]interface{} {
	rows := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		rows = append(rows, Flatten(r))
	}
	return rows
}

// Filter is one search condition; a set of filters is ANDed together.
// Operators: EQ, NEQ, LT, LTE, GT, GTE, HAS_PROPERTY, NOT_HAS_PROPERTY,
// CONTAINS_TOKEN, NOT_CONTAINS_TOKEN, BETWEEN, IN, NOT_IN.
type Filter struct {
	PropertyName string      `json:"propertyName"`
	Operator     string      `json:"operator"`
	Value        interface{} `json:"value,omitempty"`
}

// Property describes one attribute of an object type.
type Property struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Type      string `json:"type"`
	FieldType string `json:"fieldType"`
	GroupName string `json:"groupName"`
}

// Schema is a custom object schema from the schemas endpoint.
type Schema struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Labels             struct {
		Singular string `json:"singular"`
	} `json:"labels"`
}

type filterGroup struct {
	Filters []Filter `json:"filters"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

// SearchResponse is the search endpoint envelope.
type SearchResponse struct {
	Total   int      `json:"total"`
	Results []Record `json:"results"`
	Paging  *Paging  `json:"paging,omitempty"`
}

type Paging struct {
	Next *PagingNext `json:"next,omitempty"`
}

type PagingNext struct {
	After string `json:"after"`
}

type listResponse struct {
	Results []Record `json:"results"`
}

type propertiesResponse struct {
	Results []Property `json:"results"`
}

type schemasResponse struct {
	Results []Schema `json:"results"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

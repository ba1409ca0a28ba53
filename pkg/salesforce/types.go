package salesforce

// Record is Salesforce's native shape for one entity instance: a flat
// field map plus an attributes metadata key.
type Record map[string]interface{}

// Flatten drops the attributes metadata key, leaving the field map.
func Flatten(r Record) map[string]interface{} {
	flat := make(map[string]interface{}, len(r))
	for k, v := range r {
		if k == "attributes" {
			continue
		}
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

// QueryResponse is the SOQL query endpoint envelope.
type QueryResponse struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	Records        []Record `json:"records"`
	NextRecordsURL string   `json:"nextRecordsUrl,omitempty"`
}

// Field describes one attribute of an sobject, from the describe
// endpoint.
type Field struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Label  string `json:"label"`
	Length int    `json:"length"`
}

// SObject is one entry from the sobjects listing.
type SObject struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Custom    bool   `json:"custom"`
	Queryable bool   `json:"queryable"`
}

type describeResponse struct {
	Fields []Field `json:"fields"`
}

type sobjectsResponse struct {
	SObjects []SObject `json:"sobjects"`
}

// tokenResponse is the OAuth token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

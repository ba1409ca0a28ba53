// Package runner drives one query run end to end: secret fetch, auth,
// query dispatch, flattening, and export. The CLI and the web dashboard
// are thin adapters over this package so the two front ends cannot
// drift apart.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hookline/crmq/pkg/config"
	"github.com/hookline/crmq/pkg/discovery"
	"github.com/hookline/crmq/pkg/exporter"
	"github.com/hookline/crmq/pkg/history"
	"github.com/hookline/crmq/pkg/hubspot"
	"github.com/hookline/crmq/pkg/salesforce"
	"github.com/hookline/crmq/pkg/secrets"
)

// Runner holds the run-independent collaborators.
type Runner struct {
	store    *secrets.Store
	recorder history.Recorder
	logger   *zap.Logger
}

func New(store *secrets.Store, recorder history.Recorder, logger *zap.Logger) *Runner {
	return &Runner{store: store, recorder: recorder, logger: logger}
}

// Outcome is the result of one query run, shaped for both terminal
// display and the JSON API.
type Outcome struct {
	RunID     uuid.UUID       `json:"runId"`
	Platform  config.Platform `json:"platform"`
	Object    string          `json:"object"`
	QueryType string          `json:"queryType"`

	// Count is set for count queries; Total is the server-side total for
	// searches (may exceed len(Rows)).
	Count int                      `json:"count,omitempty"`
	Total int                      `json:"total,omitempty"`
	Rows  []map[string]interface{} `json:"rows,omitempty"`

	// Shape results.
	Properties []hubspot.Property `json:"properties,omitempty"`
	Fields     []salesforce.Field `json:"fields,omitempty"`

	// Spreadsheet output for all/shape queries. SavedPath is set when an
	// output directory was configured.
	Workbook  []byte `json:"-"`
	Filename  string `json:"filename,omitempty"`
	SavedPath string `json:"savedPath,omitempty"`
}

// RunHubSpot executes one HubSpot query.
func (r *Runner) RunHubSpot(ctx context.Context, q config.Query, filters []hubspot.Filter) (*Outcome, error) {
	run := history.NewRun(string(q.Platform), q.Object, q.Type)
	logger := r.logger.With(zap.String("run_id", run.ID.String()))
	outcome := &Outcome{RunID: run.ID, Platform: q.Platform, Object: q.Object, QueryType: q.Type}

	err := func() error {
		blob, err := r.store.Fetch(ctx, q.SecretPath)
		if err != nil {
			return err
		}

		client := hubspot.NewClientWithLogger(logger)
		if err := client.Authenticate(ctx, blob, q.AlwaysRefresh); err != nil {
			return err
		}

		switch q.Type {
		case config.QueryCount:
			count, err := client.Count(ctx, q.Object)
			if err != nil {
				return err
			}
			outcome.Count = count

		case config.QueryList:
			records, err := client.ListRecords(ctx, q.Object, q.Properties, q.Limit)
			if err != nil {
				return err
			}
			outcome.Rows = hubspot.FlattenAll(records)

		case config.QuerySearch:
			result, err := client.SearchRecords(ctx, q.Object, filters, q.Properties, q.Limit)
			if err != nil {
				return err
			}
			outcome.Total = result.Total
			outcome.Rows = hubspot.FlattenAll(result.Results)

		case config.QueryAll:
			props, err := client.GetProperties(ctx, q.Object)
			if err != nil {
				return err
			}
			names := make([]string, len(props))
			for i, p := range props {
				names[i] = p.Name
			}
			records, err := client.FetchAll(ctx, q.Object, names, q.Limit)
			if err != nil {
				return err
			}
			outcome.Rows = hubspot.FlattenAll(records)
			return r.export(outcome, q, "records", exporter.HubSpotTheme, nil)

		case config.QueryShape:
			props, err := client.GetProperties(ctx, q.Object)
			if err != nil {
				return err
			}
			outcome.Properties = props
			rows := make([][]interface{}, len(props))
			for i, p := range props {
				rows[i] = []interface{}{p.Name, p.Label, p.Type, p.FieldType, p.GroupName}
			}
			return r.export(outcome, q, "shape", exporter.HubSpotTheme,
				&shapeSheet{headers: []string{"Property Name", "Label", "Type", "Field Type", "Group"}, rows: rows})

		default:
			return fmt.Errorf("unsupported hubspot query type %q", q.Type)
		}
		return nil
	}()

	r.finish(&run, outcome, err)
	return outcome, err
}

// RunSalesforce executes one Salesforce query.
func (r *Runner) RunSalesforce(ctx context.Context, q config.Query) (*Outcome, error) {
	run := history.NewRun(string(q.Platform), q.Object, q.Type)
	logger := r.logger.With(zap.String("run_id", run.ID.String()))
	outcome := &Outcome{RunID: run.ID, Platform: q.Platform, Object: q.Object, QueryType: q.Type}

	err := func() error {
		blob, err := r.store.Fetch(ctx, q.SecretPath)
		if err != nil {
			return err
		}

		client := salesforce.NewClientWithLogger(logger)
		if err := client.Authenticate(ctx, blob, q.AlwaysRefresh); err != nil {
			return err
		}

		if q.Type == config.QueryShape {
			fields, err := client.Describe(ctx, q.Object)
			if err != nil {
				return err
			}
			outcome.Fields = fields
			rows := make([][]interface{}, len(fields))
			for i, f := range fields {
				rows[i] = []interface{}{f.Name, f.Type, f.Label, f.Length}
			}
			return r.export(outcome, q, "shape", exporter.SalesforceTheme,
				&shapeSheet{headers: []string{"Field Name", "Data Type", "Label", "Length"}, rows: rows})
		}

		soql := q.CustomQuery
		if q.Type != config.QueryCustom {
			soql = salesforce.BuildSOQL(q.Type, q.Object, q.Limit)
		}

		// Expired-token recovery re-fetches the secret and retries once.
		var refetch salesforce.RefetchFunc
		if q.AutoRefreshOnExpire {
			refetch = func(ctx context.Context) (secrets.Blob, error) {
				return r.store.Fetch(ctx, q.SecretPath)
			}
		}

		result, err := client.QueryWithReauth(ctx, soql, refetch)
		if err != nil {
			return err
		}

		outcome.Total = result.TotalSize
		if q.Type == config.QueryCount {
			outcome.Count = result.TotalSize
			return nil
		}

		outcome.Rows = salesforce.FlattenAll(result.Records)
		if q.Type == config.QueryAll {
			return r.export(outcome, q, "all_fields", exporter.SalesforceTheme, nil)
		}
		return nil
	}()

	r.finish(&run, outcome, err)
	return outcome, err
}

// Discover enumerates object types with record counts for either
// platform.
func (r *Runner) Discover(ctx context.Context, platform config.Platform, secretPath, filterTerm string, alwaysRefresh bool, progress discovery.Progress) ([]discovery.Result, error) {
	blob, err := r.store.Fetch(ctx, secretPath)
	if err != nil {
		return nil, err
	}

	var objects []discovery.Object
	var counter discovery.Counter

	switch platform {
	case config.PlatformHubSpot:
		client := hubspot.NewClientWithLogger(r.logger)
		if err := client.Authenticate(ctx, blob, alwaysRefresh); err != nil {
			return nil, err
		}
		if objects, err = client.DiscoverObjects(ctx); err != nil {
			return nil, err
		}
		counter = client
	case config.PlatformSalesforce:
		client := salesforce.NewClientWithLogger(r.logger)
		if err := client.Authenticate(ctx, blob, alwaysRefresh); err != nil {
			return nil, err
		}
		if objects, err = client.DiscoverObjects(ctx); err != nil {
			return nil, err
		}
		counter = client
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}

	objects = discovery.Filter(objects, filterTerm)
	return discovery.CountObjects(ctx, counter, objects, progress, r.logger), nil
}

type shapeSheet struct {
	headers []string
	rows    [][]interface{}
}

// export builds the workbook for all/shape queries and saves it when an
// output directory is configured.
func (r *Runner) export(outcome *Outcome, q config.Query, kind string, theme exporter.Theme, shape *shapeSheet) error {
	var data []byte
	var err error
	if shape != nil {
		data, err = exporter.Shape(shape.headers, shape.rows, theme)
	} else {
		data, err = exporter.Records(outcome.Rows, theme)
	}
	if err != nil {
		return err
	}

	outcome.Workbook = data
	outcome.Filename = exporter.Filename(q.Object, kind, time.Now())

	if q.OutputDir != "" {
		path, err := exporter.Save(q.OutputDir, outcome.Filename, data)
		if err != nil {
			return err
		}
		outcome.SavedPath = path
	}
	return nil
}

func (r *Runner) finish(run *history.Run, outcome *Outcome, err error) {
	run.Duration = time.Since(run.StartedAt)
	run.RecordCount = len(outcome.Rows)
	if outcome.QueryType == config.QueryCount {
		run.RecordCount = outcome.Count
	}
	if err != nil {
		run.Status = "error"
		run.Error = err.Error()
	} else {
		run.Status = "ok"
	}
	r.recorder.Record(*run)
}

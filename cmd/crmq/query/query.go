// Package querycmder provides the query command for running one canned
// query against HubSpot or Salesforce.
package querycmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hookline/crmq/cmd/crmq/boot"
	"github.com/hookline/crmq/pkg/config"
	"github.com/hookline/crmq/pkg/hubspot"
	"github.com/hookline/crmq/pkg/render"
	"github.com/hookline/crmq/pkg/runner"
)

const queryLongDesc string = `Run one query against a customer's CRM.

Credentials are fetched from AWS Secrets Manager under the
customer/integration path (e.g. acme/hubspot) and used for this run
only; nothing is written back.

Query types:
  count   Total record count for the object type
  list    A small sample of records (HubSpot: chosen properties;
          Salesforce: Id and Name)
  all     Every property/field for up to --limit records, exported to a
          styled .xlsx workbook
  shape   The object's schema (property names, types, labels), exported
          to .xlsx
  search  Filtered search (HubSpot only), filters as property:operator:value
  custom  Raw SOQL passthrough (Salesforce only), via --soql

Examples:
  crmq query --platform hubspot --secret acme/hubspot --object contacts --type count
  crmq query --platform hubspot --secret acme/hubspot --object deals --type all --limit 500
  crmq query --platform hubspot --secret acme/hubspot --object contacts --type search \
      --filter "email:CONTAINS_TOKEN:*@acme.com" --properties email,firstname
  crmq query --platform salesforce --secret acme/sfdc --object Account --type shape
  crmq query --platform salesforce --secret acme/sfdc --type custom \
      --soql "SELECT Id, Name FROM Account WHERE CreatedDate = THIS_YEAR"`

const queryShortDesc string = "Run one query against a customer's CRM"

func NewQueryCmd() *cobra.Command {
	var platform string
	var secretPath string
	var object string
	var queryType string
	var limit int
	var properties []string
	var soql string
	var filters []string
	var outputDir string
	var alwaysRefresh bool
	var autoRefresh bool

	cmd := &cobra.Command{
		Use:   "query",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			sessionJSON, _ := cmd.Flags().GetString("session-json")

			q := config.Query{
				Platform:            config.Platform(platform),
				SecretPath:          secretPath,
				Object:              object,
				Type:                queryType,
				Limit:               limit,
				Properties:          properties,
				CustomQuery:         soql,
				AlwaysRefresh:       alwaysRefresh,
				AutoRefreshOnExpire: autoRefresh,
				OutputDir:           outputDir,
			}
			if q.Type == config.QueryCustom && q.Object == "" {
				// Custom SOQL names its own object; keep the run record readable.
				q.Object = "custom"
			}
			if err := q.Validate(); err != nil {
				return err
			}

			hsFilters, err := parseFilters(filters)
			if err != nil {
				return err
			}

			deps, err := boot.Up(boot.Options{Verbose: verbose, SessionJSON: sessionJSON})
			if err != nil {
				return err
			}
			defer deps.Down()

			printSettings(q)

			var outcome *runner.Outcome
			if q.Platform == config.PlatformHubSpot {
				outcome, err = deps.Runner.RunHubSpot(cmd.Context(), q, hsFilters)
			} else {
				outcome, err = deps.Runner.RunSalesforce(cmd.Context(), q)
			}
			if err != nil {
				return err
			}

			printOutcome(outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "CRM platform: hubspot or salesforce")
	cmd.Flags().StringVar(&secretPath, "secret", "", "Secret path (customer/integration)")
	cmd.Flags().StringVar(&object, "object", "", "Object type (e.g. contacts, Account)")
	cmd.Flags().StringVar(&queryType, "type", "count", "Query type: count, list, all, shape, search, custom")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum records to fetch")
	cmd.Flags().StringSliceVar(&properties, "properties", nil, "Properties to return (HubSpot list/search)")
	cmd.Flags().StringVar(&soql, "soql", "", "Raw SOQL statement (Salesforce custom)")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "Search filter as property:operator:value (repeatable)")
	cmd.Flags().StringVar(&outputDir, "output", ".", "Directory for .xlsx exports")
	cmd.Flags().BoolVar(&alwaysRefresh, "always-refresh", false, "Force a fresh OAuth token before running")
	cmd.Flags().BoolVar(&autoRefresh, "auto-refresh", true, "Retry once with a re-fetched secret on 401 (Salesforce)")

	return cmd
}

// parseFilters turns property:operator:value triples into search
// filters. The value part may itself contain colons.
func parseFilters(raw []string) ([]hubspot.Filter, error) {
	var filters []hubspot.Filter
	for _, f := range raw {
		parts := strings.SplitN(f, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid filter %q (expected property:operator:value)", f)
		}
		filter := hubspot.Filter{PropertyName: parts[0], Operator: parts[1]}
		if len(parts) == 3 {
			filter.Value = parts[2]
		}
		filters = append(filters, filter)
	}
	return filters, nil
}

func printSettings(q config.Query) {
	pairs := [][2]string{
		{"Platform", string(q.Platform)},
		{"Secret", q.SecretPath},
		{"Object", q.Object},
		{"Query type", q.Type},
	}
	if q.Type != config.QueryCount && q.Type != config.QueryShape {
		pairs = append(pairs, [2]string{"Limit", fmt.Sprint(q.Limit)})
	}
	fmt.Println(render.KV("Query Settings", pairs))
}

func printOutcome(outcome *runner.Outcome) {
	switch outcome.QueryType {
	case config.QueryCount:
		fmt.Println(render.Panel("Record Count",
			fmt.Sprintf("%s has %d records", outcome.Object, outcome.Count)))

	case config.QueryShape:
		rows := make([][]string, 0)
		var headers []string
		if len(outcome.Properties) > 0 {
			headers = []string{"Property Name", "Label", "Type", "Field Type", "Group"}
			for _, p := range outcome.Properties {
				rows = append(rows, []string{p.Name, p.Label, p.Type, p.FieldType, p.GroupName})
			}
		} else {
			headers = []string{"Field Name", "Data Type", "Label", "Length"}
			for _, f := range outcome.Fields {
				rows = append(rows, []string{f.Name, f.Type, f.Label, fmt.Sprint(f.Length)})
			}
		}
		fmt.Println(render.Table(fmt.Sprintf("Shape of %s (%d fields)", outcome.Object, len(rows)), headers, rows))

	default:
		title := fmt.Sprintf("%s (%d records)", outcome.Object, len(outcome.Rows))
		if outcome.Total > len(outcome.Rows) {
			title = fmt.Sprintf("%s (%d of %d records)", outcome.Object, len(outcome.Rows), outcome.Total)
		}
		fmt.Println(render.RecordsTable(title, outcome.Rows))
	}

	if outcome.SavedPath != "" {
		fmt.Printf("\nSaved to %s\n", outcome.SavedPath)
	}
}

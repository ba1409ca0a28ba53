// Package discovercmder provides the discover command for enumerating
// object types with record counts.
package discovercmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hookline/crmq/cmd/crmq/boot"
	"github.com/hookline/crmq/pkg/config"
	"github.com/hookline/crmq/pkg/render"
)

const discoverLongDesc string = `List every object type the credential can see, with record counts.

Counts are fetched one object at a time with a short delay between
calls. Objects the credential cannot count show "Error"; non-queryable
Salesforce objects show "N/A".

Examples:
  crmq discover --platform hubspot --secret acme/hubspot
  crmq discover --platform salesforce --secret acme/sfdc --filter account`

const discoverShortDesc string = "List object types with record counts"

func NewDiscoverCmd() *cobra.Command {
	var platform string
	var secretPath string
	var filter string
	var alwaysRefresh bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: discoverShortDesc,
		Long:  discoverLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			sessionJSON, _ := cmd.Flags().GetString("session-json")

			if secretPath == "" {
				return fmt.Errorf("flag --secret is required")
			}

			deps, err := boot.Up(boot.Options{Verbose: verbose, SessionJSON: sessionJSON})
			if err != nil {
				return err
			}
			defer deps.Down()

			progress := func(index, total int, name string) {
				fmt.Printf("\rCounting %-40s [%d/%d]", name, index, total)
			}

			results, err := deps.Runner.Discover(cmd.Context(),
				config.Platform(platform), secretPath, filter, alwaysRefresh, progress)
			if err != nil {
				return err
			}
			fmt.Print("\r\033[K")

			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, r.Label, r.Kind, r.CountLabel()})
			}
			fmt.Println(render.Table(
				fmt.Sprintf("Discovered %d object types", len(results)),
				[]string{"Name", "Label", "Kind", "Records"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "CRM platform: hubspot or salesforce")
	cmd.Flags().StringVar(&secretPath, "secret", "", "Secret path (customer/integration)")
	cmd.Flags().StringVar(&filter, "filter", "", "Case-insensitive substring filter on name or label")
	cmd.Flags().BoolVar(&alwaysRefresh, "always-refresh", false, "Force a fresh OAuth token before running")

	return cmd
}

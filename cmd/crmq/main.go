package main

import (
	"os"

	"github.com/spf13/cobra"

	checkcmder "github.com/hookline/crmq/cmd/crmq/check"
	discovercmder "github.com/hookline/crmq/cmd/crmq/discover"
	querycmder "github.com/hookline/crmq/cmd/crmq/query"
	servecmder "github.com/hookline/crmq/cmd/crmq/serve"
)

const rootLongDesc string = `crmq runs read-only queries against customer HubSpot and Salesforce
accounts using credentials stored in AWS Secrets Manager.

Secrets are addressed by a customer/integration path (e.g. acme/hubspot)
and fetched fresh for every run; credentials are never cached to disk
and values are never logged.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crmq",
		Short:         "Query customer CRM accounts from stored credentials",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	cmd.PersistentFlags().String("session-json", "", "Path to exported AWS session credentials JSON")

	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(discovercmder.NewDiscoverCmd())
	cmd.AddCommand(checkcmder.NewCheckCmd())
	cmd.AddCommand(servecmder.NewServeCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// Package checkcmder provides the check command for inspecting which
// credential fields a stored secret contains.
package checkcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hookline/crmq/cmd/crmq/boot"
	"github.com/hookline/crmq/pkg/config"
	"github.com/hookline/crmq/pkg/render"
)

const checkLongDesc string = `Fetch a secret and report which credential fields it contains.

Only key names are shown, never values. Use this to debug why a
credential falls through to a weaker auth strategy.

Examples:
  crmq check --platform hubspot --secret acme/hubspot
  crmq check --platform salesforce --secret acme/sfdc`

const checkShortDesc string = "Report which credential fields a secret contains"

// expectedKeys lists the fields the auth strategies look for, in
// precedence order.
var expectedKeys = map[config.Platform][]string{
	config.PlatformHubSpot: {
		"hapikey", "client_id", "client_secret", "refresh_token",
		"access_token", "token", "api_key",
	},
	config.PlatformSalesforce: {
		"instance_url", "access_token", "client_id", "client_secret",
		"refresh_token", "username", "password", "security_token",
	},
}

func NewCheckCmd() *cobra.Command {
	var platform string
	var secretPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: checkShortDesc,
		Long:  checkLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			sessionJSON, _ := cmd.Flags().GetString("session-json")

			expected, ok := expectedKeys[config.Platform(platform)]
			if !ok {
				return fmt.Errorf("unknown platform %q (expected hubspot or salesforce)", platform)
			}
			if secretPath == "" {
				return fmt.Errorf("flag --secret is required")
			}

			deps, err := boot.Up(boot.Options{Verbose: verbose, SessionJSON: sessionJSON})
			if err != nil {
				return err
			}
			defer deps.Down()

			blob, err := deps.Store.Fetch(cmd.Context(), secretPath)
			if err != nil {
				return err
			}

			fmt.Println(render.CredentialSummary(blob.Keys(), expected))
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "CRM platform: hubspot or salesforce")
	cmd.Flags().StringVar(&secretPath, "secret", "", "Secret path (customer/integration)")

	return cmd
}

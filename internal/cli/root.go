// Package cli defines the cobra command tree for visit-hub.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-hub/internal/client"
	"github.com/evcraddock/visit-hub/internal/identity"
)

var (
	flagFormat string
	flagServer string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vh",
		Short:         "Record and review visitor attendance",
		Long:          "A visitor log. Record who came, when and why, review statistics, export the log, and manage the staff accounts that use it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagServer, "server", "", "API server URL (default: $VH_SERVER_URL, config, or "+defaultServerURL+")")

	root.AddCommand(
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newWhoamiCmd(),
		newVisitsCmd(),
		newStatsCmd(),
		newExportCmd(),
		newImportCmd(),
		newClearCmd(),
		newStorageCmd(),
		newPurposesCmd(),
		newUsersCmd(),
		newAdminCmd(),
		newVersionCmd(),
	)

	return root
}

// newSession creates an API client and the identity provider that owns its
// token. The cached token is installed on the client.
func newSession() (*client.Client, *identity.Remote) {
	api := client.New(getServerURL(), "")
	return api, identity.NewRemote(api, fileCache{})
}

// newAPIClient creates an authenticated HTTP client for the visit-hub API.
func newAPIClient() *client.Client {
	api, _ := newSession()
	return api
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-hub/internal/identity"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks that the stored session is still accepted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	api, provider := newSession()
	fmt.Fprintf(out, "Server:  %s\n", getServerURL())

	if err := api.Health(ctx); err != nil {
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
		return nil
	}

	cached, ok := provider.Current()
	if !ok {
		fmt.Fprintln(out, "Session: not signed in")
		fmt.Fprintln(out, "\nRun 'vh login' to authenticate.")
		return nil
	}

	profile, err := provider.Refresh(ctx)
	switch {
	case errors.Is(err, identity.ErrSessionEnded):
		fmt.Fprintf(out, "Session: ✗ %s's session has ended\n", cached.Username)
		fmt.Fprintln(out, "\nRun 'vh login' to re-authenticate.")
	case err != nil:
		fmt.Fprintf(out, "Status:  ✗ unexpected response (%v)\n", err)
	default:
		fmt.Fprintf(out, "Session: ✓ %s (%s)%s\n", profile.Username, profile.Role, expiry(profile.ExpiresAt))
	}

	return nil
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Long:  "Fetches the signed-in account and its capabilities from the server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami(cmd)
		},
	}
}

func runWhoami(cmd *cobra.Command) error {
	_, provider := newSession()
	profile, err := provider.Refresh(cmd.Context())
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), profile)
	}
	printProfile(cmd.OutOrStdout(), profile)
	return nil
}

// expiry renders a session expiry as a relative suffix, or nothing.
func expiry(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ", expires " + humanize.Time(t)
}

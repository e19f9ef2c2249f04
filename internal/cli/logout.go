package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Long:  "Ends the session on the server and removes the stored token from the config file. The local token is removed even when the server cannot be reached.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd)
		},
	}
}

func runLogout(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	_, provider := newSession()
	if _, ok := provider.Current(); !ok {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	if err := provider.SignOut(cmd.Context()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	fmt.Fprintln(out, "✓ Logged out. Session token removed.")
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-hub/internal/provision"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Privileged account provisioning",
		Long:  "Create accounts, reset passwords and bootstrap the first administrator through the provisioning endpoints.",
	}

	cmd.AddCommand(
		newAdminCreateUserCmd(),
		newAdminResetPasswordCmd(),
		newAdminBootstrapCmd(),
	)

	return cmd
}

func newAdminCreateUserCmd() *cobra.Command {
	var req provision.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an account with a password",
		Long:  "Create an account. The username defaults to the email; unknown roles become user. Requires the admin role.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := newAPIClient().AdminCreateUser(cmd.Context(), req)
			return reportProvisioned(cmd, id, err, "Account created.")
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "email address (required)")
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "login name (default: email)")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password (required)")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&req.Role, "role", "user", "role (admin|user|viewer)")

	return cmd
}

func newAdminResetPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "reset-password <user-id>",
		Short: "Set another account's password",
		Long:  "Set another account's password and end its sessions. Requires the admin role.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := newAPIClient().AdminUpdatePassword(cmd.Context(), provision.UpdatePasswordRequest{
				UserID:      args[0],
				NewPassword: password,
			})
			return reportProvisioned(cmd, id, err, "Password updated.")
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "new password (required)")

	return cmd
}

func newAdminBootstrapCmd() *cobra.Command {
	var (
		setupToken string
		req        provision.BootstrapRequest
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create an administrator with the setup token",
		Long:  "Create an administrator account without signing in. The server's setup token must be given with --setup-token or VH_SETUP_TOKEN.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if setupToken == "" {
				setupToken = os.Getenv("VH_SETUP_TOKEN")
			}
			if setupToken == "" {
				return fmt.Errorf("no setup token provided (use --setup-token or VH_SETUP_TOKEN)")
			}
			id, err := newAPIClient().BootstrapAdmin(cmd.Context(), setupToken, req)
			return reportProvisioned(cmd, id, err, "Administrator created.")
		},
	}

	cmd.Flags().StringVar(&setupToken, "setup-token", "", "server setup token")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address, also the username (required)")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "password (required)")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "display name (default: Administrator)")

	return cmd
}

func reportProvisioned(cmd *cobra.Command, id string, err error, done string) error {
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]any{"success": true, "user_id": id})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (user id %s)\n", done, id)
	return nil
}

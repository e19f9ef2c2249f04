package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/client"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage staff accounts",
		Long:  "List, create, edit and remove staff accounts. Requires the admin role.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listUsers(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List accounts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listUsers(cmd)
			},
		},
		newUsersAddCmd(),
		newUsersUpdateCmd(),
		&cobra.Command{
			Use:     "remove <id>",
			Aliases: []string{"rm", "delete"},
			Short:   "Delete an account",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := newAPIClient().DeleteUser(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ User %s deleted.\n", args[0])
				return nil
			},
		},
	)

	return cmd
}

func listUsers(cmd *cobra.Command) error {
	agents, err := newAPIClient().ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), agents)
	}
	return printUserTable(cmd.OutOrStdout(), agents)
}

// userFlags are the account fields shared by add and update.
type userFlags struct {
	username string
	email    string
	fullName string
	role     string
	active   bool
	password string
}

func (f *userFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "login name")
	cmd.Flags().StringVar(&f.email, "email", "", "email address")
	cmd.Flags().StringVar(&f.fullName, "name", "", "full name")
	cmd.Flags().StringVar(&f.role, "role", "", "role (admin|user|viewer)")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "password")
}

// request builds a request from the flags that were set.
func (f *userFlags) request(cmd *cobra.Command) (client.UserRequest, error) {
	var req client.UserRequest
	changed := cmd.Flags().Changed
	if changed("username") {
		req.Username = &f.username
	}
	if changed("email") {
		req.Email = &f.email
	}
	if changed("name") {
		req.FullName = &f.fullName
	}
	if changed("role") {
		role := account.Role(f.role)
		if !role.IsValid() {
			return req, fmt.Errorf("invalid role %q (want admin, user or viewer)", f.role)
		}
		req.Role = &role
	}
	if changed("active") {
		req.IsActive = &f.active
	}
	req.Password = f.password
	return req, nil
}

func newUsersAddCmd() *cobra.Command {
	var f userFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateCredentials(f.username, f.password); err != nil {
				return err
			}
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			a, err := newAPIClient().AddUser(cmd.Context(), req)
			if err != nil {
				return err
			}
			return reportUser(cmd, a, "User created.")
		},
	}

	f.register(cmd)
	return cmd
}

func newUsersUpdateCmd() *cobra.Command {
	var f userFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit an account",
		Long:  "Edit an account. Only the flags given are changed. Deactivating an account or changing its password ends its sessions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := f.request(cmd)
			if err != nil {
				return err
			}
			if req == (client.UserRequest{}) {
				return fmt.Errorf("nothing to update")
			}
			a, err := newAPIClient().UpdateUser(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return reportUser(cmd, a, "User updated.")
		},
	}

	f.register(cmd)
	cmd.Flags().BoolVar(&f.active, "active", true, "whether the account may sign in")
	return cmd
}

func reportUser(cmd *cobra.Command, a *account.Agent, done string) error {
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), a)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", done)
	printUser(cmd.OutOrStdout(), a)
	return nil
}

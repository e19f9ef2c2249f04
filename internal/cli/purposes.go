package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurposesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purposes",
		Short: "Manage the list of visit purposes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPurposes(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List purposes",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listPurposes(cmd)
			},
		},
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a purpose",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				purposes, err := newAPIClient().AddPurpose(cmd.Context(), args[0])
				return reportPurposes(cmd, purposes, err, fmt.Sprintf("Added %q.", args[0]))
			},
		},
		&cobra.Command{
			Use:   "rename <old> <new>",
			Short: "Rename a purpose",
			Long:  "Rename a purpose. Visits already recorded keep the old name.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				purposes, err := newAPIClient().RenamePurpose(cmd.Context(), args[0], args[1])
				return reportPurposes(cmd, purposes, err, fmt.Sprintf("Renamed %q to %q.", args[0], args[1]))
			},
		},
		&cobra.Command{
			Use:     "remove <name>",
			Aliases: []string{"rm"},
			Short:   "Remove a purpose",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				purposes, err := newAPIClient().RemovePurpose(cmd.Context(), args[0])
				return reportPurposes(cmd, purposes, err, fmt.Sprintf("Removed %q.", args[0]))
			},
		},
	)

	return cmd
}

func listPurposes(cmd *cobra.Command) error {
	purposes, err := newAPIClient().ListPurposes(cmd.Context())
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), purposes)
	}
	printPurposes(cmd.OutOrStdout(), purposes)
	return nil
}

// reportPurposes prints the updated list after a change.
func reportPurposes(cmd *cobra.Command, purposes []string, err error, done string) error {
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), purposes)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s\n", done)
	printPurposes(cmd.OutOrStdout(), purposes)
	return nil
}

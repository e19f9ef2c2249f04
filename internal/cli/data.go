package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show visit statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newAPIClient().Stats(cmd.Context())
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), s)
			}
			printStats(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newExportCmd() *cobra.Command {
	var kind, lang, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the visit log",
		Long:  "Export the visit log as csv, json or xlsx. CSV and xlsx headers follow --lang (en|fr). Text formats go to stdout unless -o is given; xlsx is always written to a file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, kind, lang, output, time.Now())
		},
	}

	cmd.Flags().StringVarP(&kind, "type", "t", "csv", "export type (csv|json|xlsx)")
	cmd.Flags().StringVar(&lang, "lang", "en", "header language for csv and xlsx (en|fr)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout, or visits-<date>.xlsx)")

	return cmd
}

func runExport(cmd *cobra.Command, kind, lang, output string, now time.Time) error {
	kind = strings.ToLower(kind)
	switch kind {
	case "csv", "json", "xlsx":
	default:
		return fmt.Errorf("unsupported export type %q (want csv, json or xlsx)", kind)
	}

	data, err := newAPIClient().Export(cmd.Context(), kind, lang)
	if err != nil {
		return err
	}

	if output == "" && kind == "xlsx" {
		output = fmt.Sprintf("visits-%s.xlsx", now.Format("2006-01-02"))
	}
	if output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported %s to %s.\n", humanize.IBytes(uint64(len(data))), output)
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the visit log with a JSON export",
		Long:  "Replace every visit with the contents of a JSON array as produced by 'vh export -t json'. Use - to read stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0])
		},
	}
}

func runImport(cmd *cobra.Command, path string) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("reading import: %w", err)
	}

	n, err := newAPIClient().Import(cmd.Context(), data)
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]int{"imported": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %s visits.\n", humanize.Comma(int64(n)))
	return nil
}

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every visit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete every visit without --yes")
			}
			if err := newAPIClient().ClearVisits(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ All visits deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deleting every visit")

	return cmd
}

func newStorageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "Show storage usage of the visit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := newAPIClient().Storage(cmd.Context())
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), info)
			}
			printStorage(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

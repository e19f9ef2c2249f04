package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-hub/internal/visit"
)

func newVisitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "List and manage recorded visits",
		Long:  "List, search, record, edit and delete visits. Visits are listed newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisitsList(cmd, "")
		},
	}

	cmd.AddCommand(
		newVisitsListCmd(),
		newVisitsSearchCmd(),
		newVisitsShowCmd(),
		newVisitsAddCmd(),
		newVisitsUpdateCmd(),
		newVisitsDeleteCmd(),
	)

	return cmd
}

func newVisitsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all visits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisitsList(cmd, "")
		},
	}
}

func newVisitsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search visits by visitor, company, purpose or notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisitsList(cmd, args[0])
		},
	}
}

func runVisitsList(cmd *cobra.Command, query string) error {
	visits, err := newAPIClient().ListVisits(cmd.Context(), query)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), visits)
	}
	return printVisitTable(cmd.OutOrStdout(), visits)
}

func newVisitsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newAPIClient().GetVisit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printVisit(cmd, v)
		},
	}
}

// visitFlags are the editable visit fields shared by add and update.
type visitFlags struct {
	visitor   string
	company   string
	purpose   string
	date      string
	start     string
	end       string
	duration  int
	strategic bool
	notes     string
}

func (f *visitFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.visitor, "visitor", "", "visitor name")
	cmd.Flags().StringVar(&f.company, "company", "", "visitor's company")
	cmd.Flags().StringVar(&f.purpose, "purpose", "", "purpose of the visit")
	cmd.Flags().StringVar(&f.date, "date", "", "visit date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.start, "start", "", "start time, HH:MM")
	cmd.Flags().StringVar(&f.end, "end", "", "end time, HH:MM")
	cmd.Flags().IntVar(&f.duration, "duration", 0, "duration in minutes (derived from --end when omitted)")
	cmd.Flags().BoolVar(&f.strategic, "strategic", false, "mark the visit as strategic")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
}

// input builds a new visit. Date and start time default to now.
func (f *visitFlags) input(cmd *cobra.Command, now time.Time) visit.Input {
	in := visit.Input{
		VisitorName: f.visitor,
		Company:     f.company,
		Purpose:     f.purpose,
		Date:        f.date,
		StartTime:   f.start,
		EndTime:     f.end,
		IsStrategic: f.strategic,
		Notes:       f.notes,
	}
	if in.Date == "" {
		in.Date = now.Format("2006-01-02")
	}
	if in.StartTime == "" {
		in.StartTime = now.Format("15:04")
	}
	if cmd.Flags().Changed("duration") {
		d := f.duration
		in.Duration = &d
	}
	return in
}

// patch builds an update from the flags that were set.
func (f *visitFlags) patch(cmd *cobra.Command) visit.Patch {
	var p visit.Patch
	changed := cmd.Flags().Changed
	str := func(name string, v string) *string {
		if !changed(name) {
			return nil
		}
		return &v
	}
	p.VisitorName = str("visitor", f.visitor)
	p.Company = str("company", f.company)
	p.Purpose = str("purpose", f.purpose)
	p.Date = str("date", f.date)
	p.StartTime = str("start", f.start)
	p.EndTime = str("end", f.end)
	p.Notes = str("notes", f.notes)
	if changed("duration") {
		d := f.duration
		p.Duration = &d
	}
	if changed("strategic") {
		s := f.strategic
		p.IsStrategic = &s
	}
	return p
}

func newVisitsAddCmd() *cobra.Command {
	var f visitFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a visit",
		Long:  "Record a visit. Visitor, company and purpose are required; date and start time default to now.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newAPIClient().AddVisit(cmd.Context(), f.input(cmd, time.Now()))
			if err != nil {
				return err
			}
			if !isJSON() {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Visit recorded.")
			}
			return printVisit(cmd, v)
		},
	}

	f.register(cmd)
	return cmd
}

func newVisitsUpdateCmd() *cobra.Command {
	var f visitFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a visit",
		Long:  "Edit a visit. Only the flags given are changed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := f.patch(cmd)
			if p == (visit.Patch{}) {
				return fmt.Errorf("nothing to update")
			}
			v, err := newAPIClient().UpdateVisit(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			if !isJSON() {
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Visit updated.")
			}
			return printVisit(cmd, v)
		},
	}

	f.register(cmd)
	return cmd
}

func newVisitsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"remove", "rm"},
		Short:   "Delete a visit",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := newAPIClient().DeleteVisit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"id": args[0], "deleted": deleted})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Visit %s deleted.\n", args[0])
			return nil
		},
	}
}

func printVisit(cmd *cobra.Command, v *visit.Visit) error {
	if isJSON() {
		return printJSON(cmd.OutOrStdout(), v)
	}
	printVisitSummary(cmd.OutOrStdout(), v)
	return nil
}

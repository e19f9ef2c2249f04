package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/evcraddock/visit-hub/internal/account"
	"github.com/evcraddock/visit-hub/internal/identity"
	"github.com/evcraddock/visit-hub/internal/store"
	"github.com/evcraddock/visit-hub/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printVisitSummary prints a single visit in text format.
func printVisitSummary(w io.Writer, v *visit.Visit) {
	fmt.Fprintf(w, "Visit %s\n", v.ID)
	fmt.Fprintf(w, "  Visitor:   %s\n", v.VisitorName)
	fmt.Fprintf(w, "  Company:   %s\n", v.Company)
	fmt.Fprintf(w, "  Purpose:   %s\n", v.Purpose)
	fmt.Fprintf(w, "  Date:      %s %s\n", v.Date, timeRange(v))
	if v.Duration != nil {
		fmt.Fprintf(w, "  Duration:  %s\n", formatDuration(*v.Duration))
	}
	if v.IsStrategic {
		fmt.Fprintln(w, "  Strategic: yes")
	}
	if v.Notes != "" {
		fmt.Fprintf(w, "  Notes:     %s\n", v.Notes)
	}
}

// printVisitTable prints a list of visits as a formatted table.
func printVisitTable(w io.Writer, visits []visit.Visit) error {
	if len(visits) == 0 {
		fmt.Fprintln(w, "No visits recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tDATE\tTIME\tVISITOR\tCOMPANY\tPURPOSE\tDURATION\tSTRATEGIC"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t----\t----\t-------\t-------\t-------\t--------\t---------"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for i := range visits {
		v := &visits[i]
		duration := "-"
		if v.Duration != nil {
			duration = formatDuration(*v.Duration)
		}
		strategic := ""
		if v.IsStrategic {
			strategic = "★"
		}

		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID, v.Date, timeRange(v), truncate(v.VisitorName, 30),
			truncate(v.Company, 30), v.Purpose, duration, strategic); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %s visits\n", humanize.Comma(int64(len(visits))))
	return nil
}

// printStats prints the dashboard statistics.
func printStats(w io.Writer, s *visit.Stats) {
	fmt.Fprintf(w, "Total visits:      %s\n", humanize.Comma(int64(s.TotalVisits)))
	fmt.Fprintf(w, "Unique visitors:   %s\n", humanize.Comma(int64(s.UniqueVisitors)))
	fmt.Fprintf(w, "Average duration:  %s\n", formatDuration(int(s.AverageDuration+0.5)))
	fmt.Fprintf(w, "Total time:        %s\n", formatDuration(s.TotalTime))
	fmt.Fprintf(w, "Strategic:         %.1f%%\n", s.StrategicPercentage)
	fmt.Fprintf(w, "Last 7 days:       %d\n", s.WeeklyVisits)
}

// printStorage prints the storage usage.
func printStorage(w io.Writer, info *store.Info) {
	fmt.Fprintf(w, "Used:  %s of %s (%.1f%%)\n",
		humanize.IBytes(uint64(info.Used)), humanize.IBytes(uint64(info.Total)), info.Percentage)
}

// printPurposes prints the purpose list, one per line.
func printPurposes(w io.Writer, purposes []string) {
	if len(purposes) == 0 {
		fmt.Fprintln(w, "No purposes defined.")
		return
	}
	for _, p := range purposes {
		fmt.Fprintf(w, "  %s\n", p)
	}
}

// printUserTable prints accounts as a formatted table.
func printUserTable(w io.Writer, agents []account.Agent) error {
	if len(agents) == 0 {
		fmt.Fprintln(w, "No users.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tROLE\tACTIVE\tLAST LOGIN"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, a := range agents {
		active := "yes"
		if !a.IsActive {
			active = "no"
		}
		last := "never"
		if a.LastLogin != nil {
			last = humanize.Time(*a.LastLogin)
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID, a.Username, truncate(a.FullName, 30), a.Role, active, last); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return tw.Flush()
}

// printUser prints a single account in text format.
func printUser(w io.Writer, a *account.Agent) {
	fmt.Fprintf(w, "User %s\n", a.ID)
	fmt.Fprintf(w, "  Username:  %s\n", a.Username)
	if a.FullName != "" {
		fmt.Fprintf(w, "  Name:      %s\n", a.FullName)
	}
	if a.Email != "" {
		fmt.Fprintf(w, "  Email:     %s\n", a.Email)
	}
	fmt.Fprintf(w, "  Role:      %s\n", a.Role)
	fmt.Fprintf(w, "  Active:    %t\n", a.IsActive)
}

// printProfile prints the signed-in identity.
func printProfile(w io.Writer, p *identity.Profile) {
	fmt.Fprintf(w, "Username:     %s\n", p.Username)
	if p.FullName != "" {
		fmt.Fprintf(w, "Name:         %s\n", p.FullName)
	}
	if p.Email != "" {
		fmt.Fprintf(w, "Email:        %s\n", p.Email)
	}
	fmt.Fprintf(w, "Role:         %s\n", p.Role)
	fmt.Fprintf(w, "Capabilities: %s\n", strings.Join(p.Capabilities, ", "))
	if !p.ExpiresAt.IsZero() {
		fmt.Fprintf(w, "Expires:      %s\n", humanize.Time(p.ExpiresAt))
	}
}

// formatDuration renders minutes as "45m", "2h" or "1h 30m".
func formatDuration(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, m)
	}
}

func timeRange(v *visit.Visit) string {
	if v.EndTime == "" {
		return v.StartTime
	}
	return v.StartTime + "-" + v.EndTime
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

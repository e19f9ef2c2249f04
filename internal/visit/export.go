package visit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Locale selects the column labels and yes/no tokens of tabular exports.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleFR Locale = "fr"
)

// SheetName is the worksheet holding visits in XLSX exports.
const SheetName = "Visits"

type labels struct {
	header  []string
	yes, no string
}

var localeLabels = map[Locale]labels{
	LocaleEN: {
		header: []string{"Date", "Visitor", "Company", "Purpose", "Start Time", "End Time", "Duration (min)", "Strategic", "Notes"},
		yes:    "Yes",
		no:     "No",
	},
	LocaleFR: {
		header: []string{"Date", "Visiteur", "Entreprise", "Motif", "Heure début", "Heure fin", "Durée (min)", "Stratégique", "Notes"},
		yes:    "Oui",
		no:     "Non",
	},
}

// ParseLocale returns the locale for s, defaulting to English.
func ParseLocale(s string) Locale {
	if _, ok := localeLabels[Locale(s)]; ok {
		return Locale(s)
	}
	return LocaleEN
}

func labelsFor(l Locale) labels {
	if lb, ok := localeLabels[l]; ok {
		return lb
	}
	return localeLabels[LocaleEN]
}

// row renders a visit as export cells. Absent or zero durations are empty.
func (lb labels) row(v Visit) []string {
	duration := ""
	if v.Duration != nil && *v.Duration != 0 {
		duration = strconv.Itoa(*v.Duration)
	}
	strategic := lb.no
	if v.IsStrategic {
		strategic = lb.yes
	}
	return []string{v.Date, v.VisitorName, v.Company, v.Purpose, v.StartTime, v.EndTime, duration, strategic, v.Notes}
}

// WriteCSV writes a header row and one row per visit, in list order.
func WriteCSV(w io.Writer, visits []Visit, locale Locale) error {
	lb := labelsFor(locale)
	cw := csv.NewWriter(w)
	if err := cw.Write(lb.header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, v := range visits {
		if err := cw.Write(lb.row(v)); err != nil {
			return fmt.Errorf("writing csv row %s: %w", v.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportJSON returns the collection pretty-printed in its persisted form.
func ExportJSON(visits []Visit) ([]byte, error) {
	if visits == nil {
		visits = []Visit{}
	}
	data, err := json.MarshalIndent(visits, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding visits: %w", err)
	}
	return data, nil
}

// WriteXLSX writes the same columns as WriteCSV into a single-sheet workbook.
func WriteXLSX(w io.Writer, visits []Visit, locale Locale) (err error) {
	lb := labelsFor(locale)
	f := excelize.NewFile()
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing workbook: %w", closeErr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	writeRow := func(n int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(SheetName, cell, &values)
	}

	if err := writeRow(1, lb.header); err != nil {
		return fmt.Errorf("writing xlsx header: %w", err)
	}
	for i, v := range visits {
		if err := writeRow(i+2, lb.row(v)); err != nil {
			return fmt.Errorf("writing xlsx row %s: %w", v.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// ErrInvalidImport is returned when import data is not an array of visits
// carrying the mandatory fields.
var ErrInvalidImport = errors.New("invalid visit data structure")

// ParseImport decodes a JSON array of visits, requiring id, visitorName,
// company, purpose and date on every element. Ids must be unique and
// durations non-negative.
func ParseImport(data []byte) ([]Visit, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &raw); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidImport)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: expected a JSON array", ErrInvalidImport)
	}

	visits := make([]Visit, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, msg := range raw {
		var v Visit
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrInvalidImport, i, err)
		}
		if v.ID == "" || v.VisitorName == "" || v.Company == "" || v.Purpose == "" || v.Date == "" {
			return nil, fmt.Errorf("%w: element %d is missing a required field", ErrInvalidImport, i)
		}
		if v.Duration != nil && *v.Duration < 0 {
			return nil, fmt.Errorf("%w: element %d has a negative duration", ErrInvalidImport, i)
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("%w: element %d repeats id %q", ErrInvalidImport, i, v.ID)
		}
		seen[v.ID] = true
		visits = append(visits, v)
	}
	return visits, nil
}

// Package visit provides the visitor-log domain model, its repository and the
// pure read-side views over it (statistics, search, export).
package visit

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Visit represents one recorded visitor attendance.
type Visit struct {
	ID          string    `json:"id"`
	VisitorName string    `json:"visitorName"`
	Company     string    `json:"company"`
	Purpose     string    `json:"purpose"`
	Date        string    `json:"date"`      // YYYY-MM-DD
	StartTime   string    `json:"startTime"` // HH:MM
	EndTime     string    `json:"endTime,omitempty"`
	Duration    *int      `json:"duration,omitempty"` // minutes
	IsStrategic bool      `json:"isStrategic"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Input holds the caller-supplied fields of a new visit.
type Input struct {
	VisitorName string `json:"visitorName"`
	Company     string `json:"company"`
	Purpose     string `json:"purpose"`
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime,omitempty"`
	Duration    *int   `json:"duration,omitempty"`
	IsStrategic bool   `json:"isStrategic"`
	Notes       string `json:"notes,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	VisitorName *string `json:"visitorName,omitempty"`
	Company     *string `json:"company,omitempty"`
	Purpose     *string `json:"purpose,omitempty"`
	Date        *string `json:"date,omitempty"`
	StartTime   *string `json:"startTime,omitempty"`
	EndTime     *string `json:"endTime,omitempty"`
	Duration    *int    `json:"duration,omitempty"`
	IsStrategic *bool   `json:"isStrategic,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// ValidationError reports invalid visit fields, keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid visit: " + strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Visit converts the input into an unsaved visit.
func (in Input) Visit() Visit {
	return Visit{
		VisitorName: in.VisitorName,
		Company:     in.Company,
		Purpose:     in.Purpose,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Duration:    in.Duration,
		IsStrategic: in.IsStrategic,
		Notes:       in.Notes,
	}
}

// Apply merges the non-nil patch fields over v. Changing the end time
// without an explicit duration drops the old duration so it is derived again.
func (p Patch) Apply(v *Visit) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&v.VisitorName, p.VisitorName)
	set(&v.Company, p.Company)
	set(&v.Purpose, p.Purpose)
	set(&v.Date, p.Date)
	set(&v.StartTime, p.StartTime)
	set(&v.Notes, p.Notes)

	if p.EndTime != nil {
		v.EndTime = *p.EndTime
		if p.Duration == nil {
			v.Duration = nil
		}
	}
	if p.Duration != nil {
		d := *p.Duration
		v.Duration = &d
	}
	if p.IsStrategic != nil {
		v.IsStrategic = *p.IsStrategic
	}
}

// Normalize trims text fields, derives the duration from start and end times
// when both are present, and validates the result.
func Normalize(v *Visit) error {
	v.VisitorName = strings.TrimSpace(v.VisitorName)
	v.Company = strings.TrimSpace(v.Company)
	v.Purpose = strings.TrimSpace(v.Purpose)
	v.Date = strings.TrimSpace(v.Date)
	v.StartTime = strings.TrimSpace(v.StartTime)
	v.EndTime = strings.TrimSpace(v.EndTime)
	v.Notes = strings.TrimSpace(v.Notes)

	verr := &ValidationError{}
	if v.VisitorName == "" {
		verr.add("visitorName", "required")
	}
	if v.Company == "" {
		verr.add("company", "required")
	}
	if v.Purpose == "" {
		verr.add("purpose", "required")
	}
	if v.Date == "" {
		verr.add("date", "required")
	} else if _, err := time.Parse(dateLayout, v.Date); err != nil {
		verr.add("date", "must be YYYY-MM-DD")
	}

	start, startErr := time.Parse(timeLayout, v.StartTime)
	switch {
	case v.StartTime == "":
		verr.add("startTime", "required")
	case startErr != nil:
		verr.add("startTime", "must be HH:MM")
	}

	var end time.Time
	if v.EndTime != "" {
		var err error
		if end, err = time.Parse(timeLayout, v.EndTime); err != nil {
			verr.add("endTime", "must be HH:MM")
		}
	}

	if _, bad := verr.Fields["startTime"]; !bad && v.EndTime != "" {
		if _, bad := verr.Fields["endTime"]; !bad {
			minutes := int(end.Sub(start).Minutes())
			switch {
			case minutes < 0:
				verr.add("endTime", "must not be before startTime")
			case minutes == 0:
				v.Duration = nil
			default:
				v.Duration = &minutes
			}
		}
	}

	if v.Duration != nil && *v.Duration < 0 {
		verr.add("duration", fmt.Sprintf("must not be negative, got %d", *v.Duration))
	}

	return verr.orNil()
}

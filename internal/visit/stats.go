package visit

import (
	"strings"
	"time"
)

const week = 7 * 24 * time.Hour

// Stats is a summary of the visit collection, recomputed on every read.
type Stats struct {
	TotalVisits         int     `json:"totalVisits"`
	UniqueVisitors      int     `json:"uniqueVisitors"`
	AverageDuration     float64 `json:"averageDuration"`
	TotalTime           int     `json:"totalTime"`
	StrategicPercentage float64 `json:"strategicPercentage"`
	WeeklyVisits        int     `json:"weeklyVisits"`
}

// ComputeStats aggregates visits. Averages only count positive durations.
// Weekly visits are those dated within the 7×24h window before now, with
// dates read as UTC midnight.
func ComputeStats(visits []Visit, now time.Time) Stats {
	s := Stats{TotalVisits: len(visits)}
	if len(visits) == 0 {
		return s
	}

	weekAgo := now.Add(-week)
	names := make(map[string]struct{}, len(visits))
	var withDuration, durationSum, strategic int

	for _, v := range visits {
		names[strings.ToLower(v.VisitorName)] = struct{}{}

		if v.Duration != nil {
			s.TotalTime += *v.Duration
			if *v.Duration > 0 {
				withDuration++
				durationSum += *v.Duration
			}
		}
		if v.IsStrategic {
			strategic++
		}
		if d, err := time.Parse(dateLayout, v.Date); err == nil && !d.Before(weekAgo) {
			s.WeeklyVisits++
		}
	}

	s.UniqueVisitors = len(names)
	if withDuration > 0 {
		s.AverageDuration = float64(durationSum) / float64(withDuration)
	}
	s.StrategicPercentage = float64(strategic) / float64(len(visits)) * 100
	return s
}

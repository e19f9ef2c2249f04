package visit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intPtr(n int) *int { return &n }

func TestComputeStatsEmpty(t *testing.T) {
	s := ComputeStats(nil, time.Now())
	assert.Equal(t, Stats{}, s)
}

func TestComputeStatsDurations(t *testing.T) {
	visits := []Visit{
		{VisitorName: "A", Duration: intPtr(30), Date: "2020-01-01"},
		{VisitorName: "B", Duration: intPtr(60), Date: "2020-01-01"},
		{VisitorName: "C", Date: "2020-01-01"},
	}

	s := ComputeStats(visits, time.Now())
	assert.Equal(t, 3, s.TotalVisits)
	assert.InDelta(t, 45.0, s.AverageDuration, 0.0001)
	assert.Equal(t, 90, s.TotalTime)
}

func TestComputeStatsUniqueVisitorsIgnoresCase(t *testing.T) {
	visits := []Visit{
		{VisitorName: "Jane Doe"},
		{VisitorName: "jane doe"},
		{VisitorName: "JANE DOE"},
		{VisitorName: "Bob"},
	}
	assert.Equal(t, 2, ComputeStats(visits, time.Now()).UniqueVisitors)
}

func TestComputeStatsStrategicPercentage(t *testing.T) {
	visits := []Visit{
		{IsStrategic: true},
		{IsStrategic: false},
		{IsStrategic: false},
		{IsStrategic: true},
	}
	assert.InDelta(t, 50.0, ComputeStats(visits, time.Now()).StrategicPercentage, 0.0001)
}

func TestComputeStatsWeeklyWindow(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	visits := []Visit{
		{Date: "2026-03-15"},
		{Date: "2026-03-09"},
		{Date: "2026-03-08"}, // midnight before now - 7d
		{Date: "2026-01-01"},
		{Date: "not-a-date"},
	}
	assert.Equal(t, 2, ComputeStats(visits, now).WeeklyVisits)
}

func TestComputeStatsZeroDurationNotAveraged(t *testing.T) {
	visits := []Visit{
		{Duration: intPtr(0)},
		{Duration: intPtr(40)},
	}
	s := ComputeStats(visits, time.Now())
	assert.InDelta(t, 40.0, s.AverageDuration, 0.0001)
	assert.Equal(t, 40, s.TotalTime)
}

func TestSearch(t *testing.T) {
	visits := []Visit{
		{ID: "1", VisitorName: "Jane", Company: "Acme Corp", Purpose: "Meeting"},
		{ID: "2", VisitorName: "Bob", Company: "Other", Purpose: "Delivery"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"acme", []string{"1"}},
		{"BOB", []string{"2"}},
		{"deliv", []string{"2"}},
		{"e", []string{"1", "2"}},
		{"nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var ids []string
			for _, v := range Search(visits, tt.query) {
				ids = append(ids, v.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

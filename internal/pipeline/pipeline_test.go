package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcal/internal/model"
	"fitcal/internal/recommend"
	"fitcal/internal/table"
	"fitcal/internal/timeparse"
)

var testNow = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

func testInputs() Inputs {
	return Inputs{
		Calendar: table.FromRecords(
			[]string{"Summary", "Start", "End"},
			[][]string{
				{"Standup", "2025-09-15T07:30:00-04:00", "2025-09-15T08:30:00-04:00"},
				{"Offsite", "2025-09-16", "2025-09-17"},
			},
		),
		Listings: table.FromRecords(
			[]string{"title", "date_time", "venue", "address", "link"},
			[][]string{
				{"Open Mic", "Saturday, October 4 · 10:15 - 11:15am EDT", "Gates", "", "https://example.com/1"},
			},
		),
		Classes: table.FromRecords(
			[]string{"class_name", "weekday", "start_time_local", "end_time_local", "term_start_date", "term_end_date", "studio"},
			[][]string{
				{"Morning Yoga", "Monday", "7:00 am", "8:00 am", "2025-08-25", "2025-10-11", "Cohon"},
			},
		),
	}
}

func TestRun(t *testing.T) {
	res := Run(testInputs(), Options{
		Location:    timeparse.Eastern,
		Now:         testNow,
		Preferences: recommend.DefaultPreferences(),
		TopN:        2,
	})

	assert.Equal(t, testNow, res.GeneratedAt)
	require.Len(t, res.Timeline, 5)
	require.Len(t, res.Fixed, 1)
	require.Len(t, res.Candidates, 4)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "2025-09-15", res.Conflicts[0].OccurrenceDate)

	for i := 1; i < len(res.Timeline); i++ {
		assert.False(t, res.Timeline[i].Start.Before(res.Timeline[i-1].Start))
	}
	for _, ev := range res.Timeline {
		assert.NotEmpty(t, ev.TimeRange)
	}

	reasons := map[string]int{}
	for _, d := range res.Drops {
		reasons[d.Reason]++
	}
	assert.Equal(t, 1, reasons[model.ReasonNoTime])
	assert.Equal(t, 3, reasons[model.ReasonPast])
	assert.Equal(t, 1, reasons[model.ReasonScheduleOverlap])

	assert.Len(t, res.Recommendations, 2)
	assert.NotEmpty(t, res.Schedule)
	assert.Equal(t, 5, res.Insights.TotalEvents)
	assert.Equal(t, 5, res.Stats.TotalEvents)
	assert.Equal(t, 1, res.Stats.CalendarEvents)
	assert.NotEmpty(t, res.Categories)
}

func TestRunEmpty(t *testing.T) {
	res := Run(Inputs{}, Options{Now: testNow})
	assert.NotNil(t, res.Timeline)
	assert.Empty(t, res.Timeline)
	assert.Empty(t, res.Recommendations)
	assert.Empty(t, res.Schedule)
	assert.Equal(t, recommend.Balanced, res.Insights.Balance)
}

func TestLoadInputs(t *testing.T) {
	dir := t.TempDir()
	listings := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(listings, []byte("title,date_time\nOpen Mic,2025-10-04T14:15:00Z\n"), 0o644))
	calendar := filepath.Join(dir, "work.ICS")
	require.NoError(t, os.WriteFile(calendar, []byte("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//t//EN\r\n"+
		"BEGIN:VEVENT\r\nUID:a\r\nDTSTAMP:20250901T000000Z\r\nDTSTART:20250915T130000Z\r\nDTEND:20250915T140000Z\r\nSUMMARY:Standup\r\nEND:VEVENT\r\n"+
		"END:VCALENDAR\r\n"), 0o644))

	in := LoadInputs(Paths{
		Calendar: calendar,
		Listings: listings,
		Classes:  filepath.Join(dir, "missing.csv"),
	}, testNow, 14*24*time.Hour)

	assert.Equal(t, 1, in.Listings.Len())
	require.Equal(t, 1, in.Calendar.Len())
	assert.Equal(t, "Standup", in.Calendar.Rows[0].Get("Summary"))
	assert.True(t, in.Classes.Empty())
}

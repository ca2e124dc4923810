package source

import (
	"regexp"

	"fitcal/internal/model"
	"fitcal/internal/table"
	"fitcal/internal/timeparse"
)

// Calendar export columns.
const (
	ColSummary     = "Summary"
	ColStart       = "Start"
	ColEnd         = "End"
	ColLocation    = "Location"
	ColDescription = "Description"
	ColCalendar    = "Calendar"
)

var (
	hasClock  = regexp.MustCompile(`T.*:`)
	hasOffset = regexp.MustCompile(`[-+]\d{2}:\d{2}|Z`)
)

// CalendarCleaner turns calendar export rows into fixed commitments.
// Only timed rows with an explicit offset are kept; all-day rows are
// excluded.
type CalendarCleaner struct {
	opts Options
}

func NewCalendarCleaner(opts Options) *CalendarCleaner {
	return &CalendarCleaner{opts: opts}
}

func (c *CalendarCleaner) Name() string { return model.SourceCalendar }

func (c *CalendarCleaner) Clean(t table.Table) Result {
	res := newResult()
	for i, row := range t.Rows {
		raw := row.Get(ColStart)
		if !hasClock.MatchString(raw) || !hasOffset.MatchString(raw) {
			res.drop(c.Name(), i, model.ReasonNoTime, raw)
			continue
		}
		start, ok := timeparse.ParseISO(raw)
		if !ok {
			res.drop(c.Name(), i, model.ReasonBadStart, raw)
			continue
		}
		end, _ := timeparse.ParseISO(row.Get(ColEnd))

		res.Events = append(res.Events, model.CanonicalEvent{
			Start:         start,
			End:           end,
			CalendarTitle: row.GetOr(ColSummary, UntitledEvent),
			Description:   row.Get(ColDescription),
			Location:      row.Get(ColLocation),
			Source:        c.Name(),
		})
	}
	return res
}

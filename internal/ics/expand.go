package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "fitcal/internal/log"
	"fitcal/internal/table"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// RangeStart / RangeEnd define the inclusive window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single series. Zero means
	// defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int
}

// Occurrence is one concrete instance of a parsed event.
type Occurrence struct {
	Calendar    string
	UID         string
	Summary     string
	Description string
	Location    string
	AllDay      bool
	Start       time.Time
	End         time.Time
}

// ExpandResult carries the occurrences and the UIDs that hit the cap.
type ExpandResult struct {
	Occurrences     []Occurrence
	TruncatedEvents []string
}

// ExpandOccurrences expands single events, RRULE series, EXDATEs and
// RECURRENCE-ID overrides into occurrences inside the configured window.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand range end is before range start")
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	var uids []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	for _, uid := range uids {
		ov := overridesByUID[uid]
		truncated := false
		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, ov, cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Warn("ics expand truncated series", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		if !inRange(ev.Start, ev.End, cfg) {
			return nil, false
		}
		return []Occurrence{occurrenceAt(ev, overrides, ev.Start, ev.End)}, false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	loc := ev.Start.Location()
	times := set.Between(cfg.RangeStart.In(loc), cfg.RangeEnd.In(loc), true)
	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]Occurrence, 0, len(times))
	for _, start := range times {
		end := start.Add(dur)
		if ev.AllDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.AddDate(0, 0, 1)
		}
		out = append(out, occurrenceAt(ev, overrides, start, end))
	}
	return out, hitCap
}

// occurrenceAt applies a matching RECURRENCE-ID override, if any.
func occurrenceAt(ev ParsedEvent, overrides []ParsedEvent, start, end time.Time) Occurrence {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			ev, start, end = ov, ov.Start, ov.End
			break
		}
	}
	return Occurrence{
		Calendar:    ev.Calendar,
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		AllDay:      ev.AllDay,
		Start:       start,
		End:         end,
	}
}

// inRange treats the window as closed on both ends, like rrule.Between with
// inc=true.
func inRange(start, end time.Time, cfg ExpandConfig) bool {
	if end.IsZero() {
		end = start
	}
	return !end.Before(cfg.RangeStart) && !start.After(cfg.RangeEnd)
}

// Calendar export columns, matching what the calendar cleaner reads.
var tableColumns = []string{"Calendar", "Summary", "Start", "End", "Location", "Description"}

// ToTable renders occurrences as calendar export rows. Timed values are
// written as RFC 3339 with their offset; all-day values as bare dates, which
// the calendar cleaner excludes.
func ToTable(occs []Occurrence) table.Table {
	t := table.Table{Columns: tableColumns, Rows: make([]table.Row, 0, len(occs))}
	for _, o := range occs {
		t.Rows = append(t.Rows, table.Row{
			"Calendar":    o.Calendar,
			"Summary":     o.Summary,
			"Start":       formatValue(o.Start, o.AllDay),
			"End":         formatValue(o.End, o.AllDay),
			"Location":    o.Location,
			"Description": o.Description,
		})
	}
	return t
}

func formatValue(t time.Time, allDay bool) string {
	if t.IsZero() {
		return ""
	}
	if allDay {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

// LoadTable parses the .ics file at path and expands it over
// [from, from+horizon].
func LoadTable(path string, from time.Time, horizon time.Duration) (table.Table, error) {
	events, err := ParseFile(path)
	if err != nil {
		return table.Table{}, err
	}
	res, err := ExpandOccurrences(events, ExpandConfig{
		RangeStart: from,
		RangeEnd:   from.Add(horizon),
	})
	if err != nil {
		return table.Table{}, err
	}
	return ToTable(res.Occurrences), nil
}

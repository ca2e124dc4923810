package recur

import (
	"iter"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"fitcal/internal/model"
	"fitcal/internal/timeparse"
)

var weekdays = map[string]time.Weekday{
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
	"sun": time.Sunday, "sunday": time.Sunday,
}

// ParseWeekday accepts short ("Mon") and long ("Monday") names, any case.
func ParseWeekday(name string) (time.Weekday, bool) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// ReportFunc receives the reason and offending value for every definition
// or step that produces no occurrence.
type ReportFunc func(reason, value string)

// Expand yields one occurrence per week in which def's weekday falls
// inside its term, with wall-clock times read in loc and converted to UTC.
func Expand(def model.RecurringClassDefinition, loc *time.Location) iter.Seq[model.CanonicalEvent] {
	return ExpandReporting(def, loc, nil)
}

// ExpandReporting is Expand with a callback for skipped definitions and
// steps. report may be nil.
func ExpandReporting(def model.RecurringClassDefinition, loc *time.Location, report ReportFunc) iter.Seq[model.CanonicalEvent] {
	if loc == nil {
		loc = timeparse.Eastern
	}
	if report == nil {
		report = func(string, string) {}
	}

	return func(yield func(model.CanonicalEvent) bool) {
		termStart, ok1 := timeparse.ParseDate(def.TermStartDate)
		termEnd, ok2 := timeparse.ParseDate(def.TermEndDate)
		if !ok1 || !ok2 {
			report(model.ReasonBadTerm, def.TermStartDate+" / "+def.TermEndDate)
			return
		}
		target, ok := ParseWeekday(def.Weekday)
		if !ok {
			report(model.ReasonBadWeekday, def.Weekday)
			return
		}

		first := FirstOccurrence(termStart, target)
		dtstart := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
		until := time.Date(termEnd.Year(), termEnd.Month(), termEnd.Day(), 23, 59, 59, 0, loc)
		if until.Before(dtstart) {
			return
		}

		rule, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.WEEKLY,
			Dtstart: dtstart,
			Until:   until,
		})
		if err != nil {
			report(model.ReasonBadTerm, err.Error())
			return
		}

		next := rule.Iterator()
		for day, ok := next(); ok; day, ok = next() {
			day = day.In(loc)
			start, okStart := timeparse.ParseClock(day, def.StartTimeLocal, loc)
			end, okEnd := timeparse.ParseClock(day, def.EndTimeLocal, loc)
			if !okStart || !okEnd {
				report(model.ReasonBadClock, def.StartTimeLocal+" - "+def.EndTimeLocal)
				continue
			}
			occ := model.CanonicalEvent{
				Start:          start,
				End:            end,
				CandidateTitle: def.Name,
				Description:    def.Description,
				URL:            def.URL,
				Source:         model.SourceClasses,
				OccurrenceDate: day.Format(time.DateOnly),
			}
			if !yield(occ) {
				return
			}
		}
	}
}

// FirstOccurrence returns the first date on or after termStart that falls
// on target.
func FirstOccurrence(termStart time.Time, target time.Weekday) time.Time {
	offset := (int(target) - int(termStart.Weekday()) + 7) % 7
	return termStart.AddDate(0, 0, offset)
}

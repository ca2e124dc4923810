package source

import (
	"fitcal/internal/model"
	"fitcal/internal/recur"
	"fitcal/internal/table"
	"fitcal/internal/timeparse"
)

// Recurring class scrape columns.
const (
	ColTermName         = "term_name"
	ColTermStartDate    = "term_start_date"
	ColTermEndDate      = "term_end_date"
	ColRegistrationURL  = "registration_url"
	ColCampusArea       = "campus_area"
	ColWeekday          = "weekday"
	ColClassName        = "class_name"
	ColTimeRangeText    = "time_range_text"
	ColStartTimeLocal   = "start_time_local"
	ColEndTimeLocal     = "end_time_local"
	ColStudio           = "studio"
	ColClassDescription = "class_description"
)

// ClassCleaner expands each weekly class row over its term and keeps the
// occurrences that have not started yet.
type ClassCleaner struct {
	opts Options
}

func NewClassCleaner(opts Options) *ClassCleaner {
	return &ClassCleaner{opts: opts}
}

func (c *ClassCleaner) Name() string { return model.SourceClasses }

func (c *ClassCleaner) Clean(t table.Table) Result {
	res := newResult()
	loc := c.opts.location()
	now := c.opts.now()

	for i, row := range t.Rows {
		def := Definition(row)
		report := func(reason, value string) { res.drop(c.Name(), i, reason, value) }

		for occ := range recur.ExpandReporting(def, loc, report) {
			if occ.Start.Before(now) {
				report(model.ReasonPast, occ.OccurrenceDate)
				continue
			}
			if occ.CandidateTitle == "" {
				occ.CandidateTitle = UntitledClass
			}
			if occ.Description == "" {
				occ.Description = def.URL
			}
			occ.Location = ClassLocation(def.Studio, def.CampusArea)
			res.Events = append(res.Events, occ)
		}
	}
	return res
}

// Definition reads one class row. When the clock columns are blank the
// combined time_range_text column is split instead.
func Definition(row table.Row) model.RecurringClassDefinition {
	def := model.RecurringClassDefinition{
		Name:           row.Get(ColClassName),
		Description:    row.Get(ColClassDescription),
		Studio:         row.Get(ColStudio),
		CampusArea:     row.Get(ColCampusArea),
		URL:            row.Get(ColRegistrationURL),
		TermName:       row.Get(ColTermName),
		Weekday:        row.Get(ColWeekday),
		StartTimeLocal: row.Get(ColStartTimeLocal),
		EndTimeLocal:   row.Get(ColEndTimeLocal),
		TermStartDate:  row.Get(ColTermStartDate),
		TermEndDate:    row.Get(ColTermEndDate),
	}
	if def.StartTimeLocal == "" && def.EndTimeLocal == "" {
		def.StartTimeLocal, def.EndTimeLocal = timeparse.SplitTimeRange(row.Get(ColTimeRangeText))
	}
	return def
}

// ClassLocation formats "<studio> (<campus>)", dropping blank parts, and
// falls back to DefaultClassLocation when both are blank.
func ClassLocation(studio, campus string) string {
	if campus != "" {
		campus = "(" + campus + ")"
	}
	if loc := joinNonEmpty(" ", studio, campus); loc != "" {
		return loc
	}
	return DefaultClassLocation
}

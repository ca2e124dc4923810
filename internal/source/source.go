// Package source adapts each raw input table to model.CanonicalEvent.
//
// Cleaners never fail: rows that cannot be read are dropped and recorded in
// Result.Drops, and an empty or malformed table yields an empty Result.
package source

import (
	"time"

	"fitcal/internal/model"
	"fitcal/internal/table"
	"fitcal/internal/timeparse"
)

// Default titles for rows without one.
const (
	UntitledEvent = "Untitled Event"
	UntitledClass = "Untitled Class"
)

// DefaultClassLocation is used when a class row has neither studio nor
// campus area.
const DefaultClassLocation = "CMU Campus"

// Result is the output of one cleaner run.
type Result struct {
	Events []model.CanonicalEvent
	Drops  []model.Drop
}

func newResult() Result {
	return Result{Events: []model.CanonicalEvent{}}
}

func (r *Result) drop(source string, row int, reason, value string) {
	r.Drops = append(r.Drops, model.Drop{Source: source, Row: row, Reason: reason, Value: value})
}

// Cleaner maps one raw table to canonical events.
type Cleaner interface {
	Name() string
	Clean(t table.Table) Result
}

// Options are shared by all cleaners.
type Options struct {
	// Location is the zone wall-clock text is read in. Defaults to Eastern.
	Location *time.Location
	// Now is the processing instant: it supplies missing years and is the
	// cutoff for future-only class occurrences. Defaults to time.Now().
	Now time.Time
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return timeparse.Eastern
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

func (o Options) parser() timeparse.Parser {
	return timeparse.Parser{Location: o.location(), Now: o.now()}
}

// All returns the three cleaners in merge order: calendar, listing, classes.
func All(opts Options) []Cleaner {
	return []Cleaner{
		NewCalendarCleaner(opts),
		NewListingCleaner(opts),
		NewClassCleaner(opts),
	}
}

// Package merge combines cleaned event lists into one timeline and removes
// candidates that collide with fixed commitments.
package merge

import (
	"slices"
	"time"

	"fitcal/internal/model"
	"fitcal/internal/timeparse"
)

// Result is the merged timeline plus what was removed on the way.
type Result struct {
	Timeline  []model.CanonicalEvent
	Conflicts []model.CanonicalEvent // candidates dropped for overlapping a fixed event
	Drops     []model.Drop
}

// Merge concatenates groups, renders each record's display time range in
// loc, sorts by start and drops every candidate whose effective interval
// overlaps any fixed commitment. Fixed commitments are never removed.
func Merge(loc *time.Location, groups ...[]model.CanonicalEvent) []model.CanonicalEvent {
	return MergeDetailed(loc, groups...).Timeline
}

// MergeDetailed is Merge that also reports the removed records.
func MergeDetailed(loc *time.Location, groups ...[]model.CanonicalEvent) Result {
	var res Result

	combined := make([]model.CanonicalEvent, 0, totalLen(groups))
	for _, g := range groups {
		for i, ev := range g {
			display, ok := timeparse.FormatRange(ev.Start, ev.End, loc)
			if !ok {
				res.Drops = append(res.Drops, model.Drop{Source: ev.Source, Row: i, Reason: model.ReasonNoDisplay})
				continue
			}
			ev.TimeRange = display
			combined = append(combined, ev)
		}
	}
	sortByStart(combined)

	fixed, candidates := Split(combined)

	if len(fixed) == 0 || len(candidates) == 0 {
		res.Timeline = combined
		return res
	}

	kept := make([]model.CanonicalEvent, 0, len(combined))
	kept = append(kept, fixed...)
	for _, c := range candidates {
		if ConflictsWithAny(c, fixed) {
			res.Conflicts = append(res.Conflicts, c)
			continue
		}
		kept = append(kept, c)
	}
	sortByStart(kept)

	res.Timeline = kept
	return res
}

// ConflictsWithAny reports whether ev overlaps at least one of fixed.
func ConflictsWithAny(ev model.CanonicalEvent, fixed []model.CanonicalEvent) bool {
	for _, f := range fixed {
		if f.Overlaps(ev) {
			return true
		}
	}
	return false
}

// Split partitions a timeline into fixed commitments and candidates,
// preserving order.
func Split(timeline []model.CanonicalEvent) (fixed, candidates []model.CanonicalEvent) {
	for _, ev := range timeline {
		if ev.Kind() == model.KindFixed {
			fixed = append(fixed, ev)
		} else {
			candidates = append(candidates, ev)
		}
	}
	return fixed, candidates
}

func sortByStart(events []model.CanonicalEvent) {
	slices.SortStableFunc(events, func(a, b model.CanonicalEvent) int {
		return a.Start.Compare(b.Start)
	})
}

func totalLen(groups [][]model.CanonicalEvent) int {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	return n
}

package recommend

import (
	"cmp"
	"slices"
	"time"

	"fitcal/internal/model"
)

type isoWeek struct {
	year, week int
}

func (w isoWeek) compare(o isoWeek) int {
	if c := cmp.Compare(w.year, o.year); c != 0 {
		return c
	}
	return cmp.Compare(w.week, o.week)
}

type classKey struct {
	title string
	start time.Time
}

// Schedule greedily picks up to MaxClassesPerWeek ranked candidates per ISO
// week. Weeks are visited in calendar order and, within a week, days run
// Monday to Sunday with each day's candidates by descending score. A
// candidate is skipped when it was already picked or starts within MinGap
// of the effective end of a class already picked that week.
func Schedule(candidates, fixed []model.CanonicalEvent, prefs Preferences) []Scored {
	ranked := Rank(candidates, fixed, prefs, scheduleCap)
	if len(ranked) == 0 {
		return []Scored{}
	}
	loc := prefs.location()

	byWeek := make(map[isoWeek][]Scored)
	var weeks []isoWeek
	for _, s := range ranked {
		y, w := s.Event.Start.In(loc).ISOWeek()
		key := isoWeek{y, w}
		if _, ok := byWeek[key]; !ok {
			weeks = append(weeks, key)
		}
		byWeek[key] = append(byWeek[key], s)
	}
	slices.SortFunc(weeks, isoWeek.compare)

	selected := make(map[classKey]bool)
	out := make([]Scored, 0, len(ranked))

	for _, wk := range weeks {
		var picked []Scored
		for _, day := range AllWeekdays {
			if len(picked) >= prefs.MaxClassesPerWeek {
				break
			}
			// ranked is already score-ordered, so filtering keeps that order.
			for _, s := range byWeek[wk] {
				if s.Event.Start.In(loc).Weekday() != day {
					continue
				}
				key := classKey{s.Event.Title(), s.Event.Start}
				if selected[key] || !meetsGap(s.Event, picked, prefs.MinGap) {
					continue
				}
				picked = append(picked, s)
				selected[key] = true
				if len(picked) >= prefs.MaxClassesPerWeek {
					break
				}
			}
		}
		out = append(out, picked...)
	}
	return out
}

// meetsGap reports whether ev starts at least gap away from the effective
// end of every already picked class.
func meetsGap(ev model.CanonicalEvent, picked []Scored, gap time.Duration) bool {
	for _, p := range picked {
		d := ev.Start.Sub(p.Event.EffectiveEnd())
		if d < 0 {
			d = -d
		}
		if d < gap {
			return false
		}
	}
	return true
}

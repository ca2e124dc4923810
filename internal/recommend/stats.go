package recommend

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"fitcal/internal/model"
	"fitcal/internal/timeparse"
)

// activeHoursPerDay is the waking window (8am–10pm) free time is measured
// against.
const activeHoursPerDay = 14

// Stats are the headline numbers shown above the timeline.
type Stats struct {
	TotalEvents    int     `json:"total_events"`
	CalendarEvents int     `json:"calendar_events"`
	Candidates     int     `json:"fitness_classes"`
	FreeHours      int     `json:"free_slots"`
	AvgPerDay      float64 `json:"avg_per_day"`
}

// BuildStats counts events by kind and estimates free hours over the span
// of days the timeline covers.
func BuildStats(timeline []model.CanonicalEvent, loc *time.Location) Stats {
	var st Stats
	if len(timeline) == 0 {
		return st
	}
	if loc == nil {
		loc = timeparse.Eastern
	}

	st.TotalEvents = len(timeline)
	first, last := timeline[0].Start, timeline[0].Start
	var booked time.Duration
	for _, ev := range timeline {
		if ev.Kind() == model.KindFixed {
			st.CalendarEvents++
		} else {
			st.Candidates++
		}
		if ev.Start.Before(first) {
			first = ev.Start
		}
		if ev.Start.After(last) {
			last = ev.Start
		}
		booked += ev.EffectiveEnd().Sub(ev.Start)
	}

	days := daysBetween(first.In(loc), last.In(loc)) + 1
	free := float64(days*activeHoursPerDay) - booked.Hours()
	st.FreeHours = max(0, int(free))
	st.AvgPerDay = math.Round(float64(st.TotalEvents)/float64(days)*10) / 10
	return st
}

func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Heatmap counts events per weekday (indexed by time.Weekday) and start
// hour.
type Heatmap [7][24]int

// BuildHeatmap tallies event starts by local weekday and hour.
func BuildHeatmap(timeline []model.CanonicalEvent, loc *time.Location) Heatmap {
	var hm Heatmap
	if loc == nil {
		loc = timeparse.Eastern
	}
	for _, ev := range timeline {
		local := ev.Start.In(loc)
		hm[local.Weekday()][local.Hour()]++
	}
	return hm
}

// Category is a family of fitness classes recognized by title keywords.
type Category struct {
	Name     string
	Keywords []string
}

// OtherCategory is assigned when no keyword matches.
const OtherCategory = "Other"

// Categories are checked in order; the first match wins.
var Categories = []Category{
	{"Yoga", []string{"yoga", "vinyasa", "yin", "ashtanga"}},
	{"Pilates", []string{"pilates", "reformer"}},
	{"Cardio", []string{"hiit", "cardio", "kickboxing", "boxing", "cycling", "spin"}},
	{"Strength", []string{"strength", "weights", "kettlebell", "abs", "glutes"}},
	{"Dance", []string{"dance", "hip hop", "jazz", "zumba"}},
	{"Mindfulness", []string{"meditation", "sound bath", "mindfulness"}},
	{"Barre", []string{"barre"}},
}

// Categorize maps an event title to a category name.
func Categorize(title string) string {
	lower := strings.ToLower(title)
	for _, c := range Categories {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, kw) {
				return c.Name
			}
		}
	}
	return OtherCategory
}

// CategoryCount is one row of the class-type distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// CategoryCounts tallies categories over every event title, most frequent
// first, ties in first-seen order.
func CategoryCounts(timeline []model.CanonicalEvent) []CategoryCount {
	c := newCounter[string]()
	for _, ev := range timeline {
		c.add(Categorize(ev.Title()))
	}
	out := make([]CategoryCount, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, CategoryCount{Category: k, Count: c.counts[k]})
	}
	slices.SortStableFunc(out, func(a, b CategoryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return out
}

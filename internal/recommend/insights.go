package recommend

import (
	"fmt"
	"time"

	"fitcal/internal/model"
	"fitcal/internal/timeparse"
)

// Balance labels.
const (
	Balanced   = "balanced"
	Unbalanced = "unbalanced"
)

// maxDaySpread is the largest allowed gap between the busiest and the
// quietest weekday before the schedule counts as unbalanced.
const maxDaySpread = 3

// Insights summarizes a merged timeline. Optional fields stay nil or empty
// on an empty timeline.
type Insights struct {
	TotalEvents     int      `json:"total_events"`
	BusiestDay      string   `json:"busiest_day,omitempty"`
	BusiestHour     *int     `json:"busiest_hour,omitempty"`
	MostCommonClass string   `json:"most_common_class,omitempty"`
	Balance         string   `json:"schedule_balance"`
	Recommendations []string `json:"recommendations"`
}

// counter tallies keys and remembers first-seen order so that ties resolve
// to the earliest key.
type counter[K comparable] struct {
	counts map[K]int
	order  []K
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(k K) {
	if _, ok := c.counts[k]; !ok {
		c.order = append(c.order, k)
	}
	c.counts[k]++
}

func (c *counter[K]) mode() (K, bool) {
	var best K
	bestN := 0
	for _, k := range c.order {
		if n := c.counts[k]; n > bestN {
			best, bestN = k, n
		}
	}
	return best, bestN > 0
}

func (c *counter[K]) least() int {
	least := -1
	for _, k := range c.order {
		if n := c.counts[k]; least < 0 || n < least {
			least = n
		}
	}
	return least
}

// BuildInsights derives the busiest weekday and hour, the most frequent
// candidate title, a balance flag and textual nudges. Hours and weekdays
// are read in loc.
func BuildInsights(timeline []model.CanonicalEvent, loc *time.Location) Insights {
	ins := Insights{
		TotalEvents:     len(timeline),
		Balance:         Balanced,
		Recommendations: []string{},
	}
	if len(timeline) == 0 {
		return ins
	}
	if loc == nil {
		loc = timeparse.Eastern
	}

	days := newCounter[time.Weekday]()
	hours := newCounter[int]()
	titles := newCounter[string]()
	var morning, afternoon, evening int

	for _, ev := range timeline {
		local := ev.Start.In(loc)
		days.add(local.Weekday())
		hours.add(local.Hour())
		if ev.Kind() == model.KindCandidate {
			titles.add(ev.CandidateTitle)
		}
		switch h := local.Hour(); {
		case h >= 6 && h <= 11:
			morning++
		case h >= 12 && h <= 16:
			afternoon++
		case h >= 17 && h <= 21:
			evening++
		}
	}

	busiestDay, _ := days.mode()
	ins.BusiestDay = busiestDay.String()
	if h, ok := hours.mode(); ok {
		ins.BusiestHour = &h
	}
	if t, ok := titles.mode(); ok {
		ins.MostCommonClass = t
	}

	if days.counts[busiestDay]-days.least() > maxDaySpread {
		ins.Balance = Unbalanced
		ins.Recommendations = append(ins.Recommendations, fmt.Sprintf(
			"Your schedule is heavier on %ss. Consider spreading activities more evenly.", busiestDay))
	}
	if morning == 0 {
		ins.Recommendations = append(ins.Recommendations,
			"You have no morning activities. Morning workouts can boost energy for the day!")
	}
	if evening > morning+afternoon {
		ins.Recommendations = append(ins.Recommendations,
			"Most of your activities are in the evening. Consider adding some morning sessions.")
	}
	return ins
}

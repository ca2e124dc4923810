package recommend

import (
	"slices"
	"time"

	"fitcal/internal/timeparse"
)

// DayPart is a coarse bucket of the hour an event starts in.
type DayPart string

const (
	Morning   DayPart = "morning"
	Afternoon DayPart = "afternoon"
	Evening   DayPart = "evening"
	Night     DayPart = "night"
)

// AllDayParts lists every day-part in day order.
var AllDayParts = []DayPart{Morning, Afternoon, Evening, Night}

// AllWeekdays lists Monday through Sunday.
var AllWeekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// DayPartOf buckets an hour: morning 5–11, afternoon 12–16, evening 17–21,
// night otherwise.
func DayPartOf(hour int) DayPart {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// Preferences drive scoring and schedule building. It is passed by value to
// every call; callers build a new one to change behavior.
type Preferences struct {
	DayParts          []DayPart
	Weekdays          []time.Weekday
	ClassTypes        []string // empty: no filter
	MaxClassesPerWeek int
	MinGap            time.Duration
	// Location is the zone hours and weekdays are read in.
	Location *time.Location
}

// DefaultPreferences accepts every day-part and weekday, has no class type
// filter, allows 5 classes a week and wants an hour between them.
func DefaultPreferences() Preferences {
	return Preferences{
		DayParts:          slices.Clone(AllDayParts),
		Weekdays:          slices.Clone(AllWeekdays),
		ClassTypes:        nil,
		MaxClassesPerWeek: 5,
		MinGap:            time.Hour,
		Location:          timeparse.Eastern,
	}
}

// Normalize fills zero fields from DefaultPreferences. Empty day-part and
// weekday sets mean "no preference given", not "nothing preferred".
func (p Preferences) Normalize() Preferences {
	def := DefaultPreferences()
	if len(p.DayParts) == 0 {
		p.DayParts = def.DayParts
	}
	if len(p.Weekdays) == 0 {
		p.Weekdays = def.Weekdays
	}
	if p.MaxClassesPerWeek <= 0 {
		p.MaxClassesPerWeek = def.MaxClassesPerWeek
	}
	if p.MinGap < 0 {
		p.MinGap = def.MinGap
	}
	if p.Location == nil {
		p.Location = def.Location
	}
	return p
}

func (p Preferences) location() *time.Location {
	if p.Location == nil {
		return timeparse.Eastern
	}
	return p.Location
}

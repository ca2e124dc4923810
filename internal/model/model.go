package model

import "time"

// DefaultDuration is the length assumed for events without an end time when
// computing overlaps and gaps.
const DefaultDuration = time.Hour

// Kind tags an event as a fixed commitment or a recommendable candidate.
type Kind int

const (
	KindFixed Kind = iota
	KindCandidate
)

func (k Kind) String() string {
	if k == KindFixed {
		return "fixed"
	}
	return "candidate"
}

// Source names for the three cleaners.
const (
	SourceCalendar = "calendar"
	SourceListing  = "listing"
	SourceClasses  = "classes"
)

// CanonicalEvent is the record every source cleaner produces.
//
// Exactly one of CalendarTitle / CandidateTitle is non-empty. Start and End
// are UTC; a zero End means the source did not provide one.
type CanonicalEvent struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitzero"`

	CalendarTitle  string `json:"calendar_title,omitempty"`
	CandidateTitle string `json:"candidate_title,omitempty"`

	Description string `json:"description"`
	Location    string `json:"location"`
	URL         string `json:"url"`

	// TimeRange is the display-zone rendering of Start/End, filled in by
	// the merger.
	TimeRange string `json:"time_range_display"`

	Source string `json:"source"`

	// OccurrenceDate is set on recurring-class occurrences (YYYY-MM-DD).
	OccurrenceDate string `json:"occurrence_date,omitempty"`
}

// Kind reports whether the event is a fixed commitment or a candidate.
func (e CanonicalEvent) Kind() Kind {
	if e.CalendarTitle != "" {
		return KindFixed
	}
	return KindCandidate
}

// Title returns whichever title slot is populated.
func (e CanonicalEvent) Title() string {
	if e.CalendarTitle != "" {
		return e.CalendarTitle
	}
	return e.CandidateTitle
}

func (e CanonicalEvent) HasEnd() bool {
	return !e.End.IsZero()
}

// EffectiveEnd is End when present, otherwise Start + DefaultDuration.
func (e CanonicalEvent) EffectiveEnd() time.Time {
	if e.HasEnd() {
		return e.End
	}
	return e.Start.Add(DefaultDuration)
}

// Overlaps reports whether the half-open effective intervals of e and other
// intersect. Touching intervals do not overlap.
func (e CanonicalEvent) Overlaps(other CanonicalEvent) bool {
	return other.Start.Before(e.EffectiveEnd()) && e.Start.Before(other.EffectiveEnd())
}

// RecurringClassDefinition describes a weekly class over a term, as read
// from one row of the class schedule scrape.
type RecurringClassDefinition struct {
	Name        string
	Description string
	Studio      string
	CampusArea  string
	URL         string
	TermName    string

	Weekday        string // "Mon" or "Monday"
	StartTimeLocal string // e.g. "7:00 am"
	EndTimeLocal   string
	TermStartDate  string // YYYY-MM-DD
	TermEndDate    string
}

// Drop records why a row or occurrence was discarded.
type Drop struct {
	Source string `json:"source"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Value  string `json:"value,omitempty"`
}

// Drop reasons.
const (
	ReasonNoTime          = "no_time_component"
	ReasonBadStart        = "unparseable_start"
	ReasonBadTerm         = "unparseable_term"
	ReasonBadWeekday      = "unknown_weekday"
	ReasonBadClock        = "unparseable_clock"
	ReasonPast            = "in_past"
	ReasonNoDisplay       = "no_time_range"
	ReasonScheduleOverlap = "conflicts_with_calendar"
)

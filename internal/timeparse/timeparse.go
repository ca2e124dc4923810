// Package timeparse turns the date/time text found in calendar exports and
// scraped listings into absolute UTC instants, and renders instants back
// into the display string used by the timeline.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Eastern is the source and display timezone for scraped data.
var Eastern = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("ET", -5*60*60)
	}
	return loc
}

// zoneAbbrevs are stripped from natural-language times without applying
// their offset; the wall clock is read in Parser.Location instead.
var zoneAbbrevs = []string{"EDT", "EST", "CDT", "CST", "MDT", "MST", "PDT", "PST", "UTC"}

// arrowDelims separate the two sides of an explicit ISO range.
var arrowDelims = []string{"→", "->"}

var (
	leadingWeekday = regexp.MustCompile(`^[A-Za-z]+,\s*`)
	hasYear        = regexp.MustCompile(`\b\d{4}\b`)
	dashVariants   = regexp.MustCompile(`[–—~-]`)
	clockRange     = regexp.MustCompile(`(\d{1,2}:\d{2}\s*[ap]m)\s*-\s*(\d{1,2}:\d{2}\s*[ap]m)`)
)

// offsetLayouts carry an explicit zone; naiveLayouts are read as UTC.
var (
	offsetLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02T15:04:05-0700",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
	dateLayouts = []string{
		"January 2, 2006",
		"Jan 2, 2006",
		"January 2 2006",
		"Jan 2 2006",
		"1/2/2006",
		"2006-01-02",
	}
	clockLayouts = []string{
		"3:04pm",
		"3pm",
		"3:04:05pm",
		"15:04",
		"15:04:05",
	}
)

// Parser normalizes raw date/time strings. The zero value reads wall-clock
// text in Eastern and infers missing years from the current time.
type Parser struct {
	// Location is the zone natural-language wall-clock times are read in.
	Location *time.Location
	// Now supplies the processing year for dates without one.
	Now time.Time
}

func (p Parser) location() *time.Location {
	if p.Location == nil {
		return Eastern
	}
	return p.Location
}

func (p Parser) now() time.Time {
	if p.Now.IsZero() {
		return time.Now()
	}
	return p.Now
}

// Parse tries, in order: a single ISO timestamp, an arrow-separated ISO
// range, and the "<Weekday>, <Month> <Day> · <Start> - <End> <TZ>" form.
// A zero end means the input carried no end. ok is false when no start
// could be read.
func (p Parser) Parse(raw string) (start, end time.Time, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, time.Time{}, false
	}

	if t, ok := ParseISO(raw); ok {
		return t, time.Time{}, true
	}

	for _, delim := range arrowDelims {
		left, right, found := strings.Cut(raw, delim)
		if !found {
			continue
		}
		s, ok := ParseISO(left)
		if !ok {
			return time.Time{}, time.Time{}, false
		}
		e, _ := ParseISO(right)
		return s, e, true
	}

	if strings.Contains(raw, "·") && strings.Contains(raw, "-") {
		return p.parseNatural(raw)
	}

	return time.Time{}, time.Time{}, false
}

// ParseISO parses a single ISO-8601-like timestamp. Values without an
// offset are taken as UTC. The result is always in UTC.
func ParseISO(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (p Parser) parseNatural(raw string) (time.Time, time.Time, bool) {
	datePart, timePart, found := strings.Cut(raw, "·")
	if !found {
		return time.Time{}, time.Time{}, false
	}
	datePart = strings.TrimSpace(datePart)
	timePart = strings.TrimSpace(timePart)

	for _, tz := range zoneAbbrevs {
		timePart = strings.TrimSpace(strings.ReplaceAll(timePart, tz, ""))
	}

	startClock, endClock, found := strings.Cut(timePart, "-")
	if !found {
		return time.Time{}, time.Time{}, false
	}
	startClock = normalizeClock(startClock)
	endClock = normalizeClock(endClock)

	// "10:15 - 11:15am": the marker on the end describes the start too.
	if m := meridiem(endClock); m != "" && meridiem(startClock) == "" {
		startClock += m
	}

	loc := p.location()
	dateClean := leadingWeekday.ReplaceAllString(datePart, "")
	if !hasYear.MatchString(dateClean) {
		dateClean += ", " + strconv.Itoa(p.now().In(loc).Year())
	}

	day, ok := parseDate(dateClean)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start, ok := ParseClock(day, startClock, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, _ := ParseClock(day, endClock, loc)
	return start, end, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDate parses a YYYY-MM-DD (or similar) calendar date.
func ParseDate(s string) (time.Time, bool) {
	return parseDate(s)
}

// ParseClock combines the calendar date of day with a time-of-day string
// such as "7:00 am", "7pm" or "19:00", read as wall-clock time in loc, and
// returns the instant in UTC.
func ParseClock(day time.Time, clock string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = Eastern
	}
	clock = normalizeClock(clock)
	if clock == "" {
		return time.Time{}, false
	}
	for _, layout := range clockLayouts {
		c, err := time.Parse(layout, clock)
		if err != nil {
			continue
		}
		local := time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), 0, loc)
		return local.UTC(), true
	}
	return time.Time{}, false
}

// normalizeClock lowercases and strips whitespace and periods so that
// "10:15 A.M." and "10:15am" read the same.
func normalizeClock(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(s), "")
}

func meridiem(clock string) string {
	switch {
	case strings.Contains(clock, "am"):
		return "am"
	case strings.Contains(clock, "pm"):
		return "pm"
	}
	return ""
}

// SplitTimeRange splits schedule text like "7:00 am – 8:00 am" into its two
// clock strings. When the text does not match, it is returned whole as the
// start with an empty end.
func SplitTimeRange(text string) (start, end string) {
	normalized := strings.ToLower(dashVariants.ReplaceAllString(text, "-"))
	m := clockRange.FindStringSubmatch(normalized)
	if m == nil {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// FormatRange renders start/end in loc as "YYYY-MM-DD HH:MM ET",
// "YYYY-MM-DD HH:MM - HH:MM ET" when both fall on the same local date, or
// with the full date on both ends otherwise. ok is false for a zero start.
func FormatRange(start, end time.Time, loc *time.Location) (string, bool) {
	if start.IsZero() {
		return "", false
	}
	if loc == nil {
		loc = Eastern
	}
	const layout = "2006-01-02 15:04"

	s := start.In(loc)
	if end.IsZero() {
		return s.Format(layout) + " ET", true
	}
	e := end.In(loc)
	if sameDate(s, e) {
		return s.Format(layout) + " - " + e.Format("15:04") + " ET", true
	}
	return s.Format(layout) + " - " + e.Format(layout) + " ET", true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

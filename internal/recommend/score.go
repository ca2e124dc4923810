// Package recommend scores candidate events against user preferences and
// fixed commitments, ranks them and assembles a weekly schedule.
package recommend

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"fitcal/internal/model"
)

// Score weights.
const (
	pointsDayPart    = 40
	pointsWeekday    = 30
	penaltyConflict  = 50
	pointsNoConflict = 20
	pointsClassType  = 20
	pointsNoFilter   = 10
	pointsMorning    = 10
	pointsWorkday    = 5
)

// DefaultTopN is used by Rank when the caller passes a non-positive limit.
const DefaultTopN = 10

// scheduleCap is how many ranked candidates Schedule considers.
const scheduleCap = 50

// Scored pairs a candidate with its recommendation score.
type Scored struct {
	Event model.CanonicalEvent `json:"event"`
	Score float64              `json:"recommendation_score"`
}

// Score rates one candidate. Points are additive and the total is floored
// at zero; each fixed commitment overlapping the candidate costs 50.
func Score(ev model.CanonicalEvent, fixed []model.CanonicalEvent, prefs Preferences) float64 {
	if ev.Start.IsZero() {
		return 0
	}
	local := ev.Start.In(prefs.location())
	part := DayPartOf(local.Hour())
	day := local.Weekday()

	score := 0.0
	if slices.Contains(prefs.DayParts, part) {
		score += pointsDayPart
	}
	if slices.Contains(prefs.Weekdays, day) {
		score += pointsWeekday
	}

	conflicts := 0
	for _, f := range fixed {
		if f.Overlaps(ev) {
			conflicts++
		}
	}
	score -= float64(penaltyConflict * conflicts)
	if conflicts == 0 {
		score += pointsNoConflict
	}

	if len(prefs.ClassTypes) > 0 {
		if matchesClassType(ev.Title(), prefs.ClassTypes) {
			score += pointsClassType
		}
	} else {
		score += pointsNoFilter
	}

	if part == Morning {
		score += pointsMorning
	}
	if isWorkday(day) {
		score += pointsWorkday
	}

	return max(0, score)
}

func matchesClassType(title string, types []string) bool {
	title = strings.ToLower(title)
	for _, t := range types {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" && strings.Contains(title, t) {
			return true
		}
	}
	return false
}

func isWorkday(d time.Weekday) bool {
	return d >= time.Monday && d <= time.Friday
}

// Rank scores every candidate, drops non-positive scores and returns the
// best topN by descending score. Equal scores keep their input order.
func Rank(candidates, fixed []model.CanonicalEvent, prefs Preferences, topN int) []Scored {
	if topN <= 0 {
		topN = DefaultTopN
	}
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if s := Score(c, fixed, prefs); s > 0 {
			scored = append(scored, Scored{Event: c, Score: s})
		}
	}
	slices.SortStableFunc(scored, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

package merge

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcal/internal/model"
	"fitcal/internal/timeparse"
)

var base = time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC) // 10:00 ET

func fixed(title string, start, end time.Duration) model.CanonicalEvent {
	ev := model.CanonicalEvent{CalendarTitle: title, Start: base.Add(start), Source: model.SourceCalendar}
	if end > 0 {
		ev.End = base.Add(end)
	}
	return ev
}

func candidate(title string, start, end time.Duration) model.CanonicalEvent {
	ev := model.CanonicalEvent{CandidateTitle: title, Start: base.Add(start), Source: model.SourceListing}
	if end > 0 {
		ev.End = base.Add(end)
	}
	return ev
}

func titles(events []model.CanonicalEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Title())
	}
	return out
}

func TestMergeDropsOverlappingCandidates(t *testing.T) {
	meeting := fixed("Meeting", 0, time.Hour)                   // 10:00-11:00
	clash := candidate("Clash", 30*time.Minute, 90*time.Minute) // 10:30-11:30
	before := candidate("Before", -time.Hour, 0)                // 9:00, no end
	touching := candidate("Touching", time.Hour, 2*time.Hour)   // 11:00-12:00
	noEnd := candidate("NoEnd", -30*time.Minute, 0)             // 9:30-10:30 effective

	res := MergeDetailed(timeparse.Eastern,
		[]model.CanonicalEvent{meeting},
		[]model.CanonicalEvent{clash, before, touching, noEnd},
	)

	assert.Equal(t, []string{"Before", "Meeting", "Touching"}, titles(res.Timeline))
	assert.ElementsMatch(t, []string{"Clash", "NoEnd"}, titles(res.Conflicts))
	assert.Empty(t, res.Drops)
}

func TestMergeFixedWithoutEndUsesDefaultDuration(t *testing.T) {
	lunch := fixed("Lunch", 2*time.Hour, 0)                         // 12:00, effective 13:00
	inside := candidate("Inside", 150*time.Minute, 180*time.Minute) // 12:30-13:00
	after := candidate("After", 3*time.Hour, 4*time.Hour)           // 13:00-14:00

	got := Merge(timeparse.Eastern, []model.CanonicalEvent{lunch}, []model.CanonicalEvent{inside, after})
	assert.Equal(t, []string{"Lunch", "After"}, titles(got))
}

func TestMergeKeepsEverythingWithoutFixed(t *testing.T) {
	a := candidate("A", 2*time.Hour, 0)
	b := candidate("B", 0, time.Hour)
	c := candidate("C", 0, 2*time.Hour)

	got := Merge(timeparse.Eastern, []model.CanonicalEvent{a, b}, []model.CanonicalEvent{c})
	// Equal starts keep input order.
	assert.Equal(t, []string{"B", "C", "A"}, titles(got))
}

func TestMergeRendersTimeRange(t *testing.T) {
	got := Merge(timeparse.Eastern, []model.CanonicalEvent{fixed("Meeting", 0, time.Hour)})
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-15 10:00 - 11:00 ET", got[0].TimeRange)
}

func TestMergeDropsEventsWithoutStart(t *testing.T) {
	res := MergeDetailed(timeparse.Eastern, []model.CanonicalEvent{{CandidateTitle: "Ghost", Source: model.SourceListing}})
	assert.Empty(t, res.Timeline)
	require.Len(t, res.Drops, 1)
	assert.Equal(t, model.ReasonNoDisplay, res.Drops[0].Reason)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(timeparse.Eastern))
	assert.Empty(t, Merge(timeparse.Eastern, nil, []model.CanonicalEvent{}))
}

func TestMergeIdempotent(t *testing.T) {
	groups := [][]model.CanonicalEvent{
		{fixed("Meeting", 0, time.Hour), fixed("Call", 5*time.Hour, 0)},
		{candidate("Clash", 30*time.Minute, 0), candidate("Free", 2*time.Hour, 3*time.Hour)},
	}
	once := Merge(timeparse.Eastern, groups...)
	twice := Merge(timeparse.Eastern, once)
	assert.Equal(t, once, twice)
}

func TestMergeRandomizedInvariants(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		var fixedIn, candIn []model.CanonicalEvent
		for range r.IntN(6) {
			start := time.Duration(r.IntN(48)) * 15 * time.Minute
			end := time.Duration(0)
			if r.IntN(2) == 0 {
				end = start + time.Duration(1+r.IntN(8))*15*time.Minute
			}
			fixedIn = append(fixedIn, fixed("F", start, end))
		}
		for range r.IntN(10) {
			start := time.Duration(r.IntN(48)) * 15 * time.Minute
			end := time.Duration(0)
			if r.IntN(2) == 0 {
				end = start + time.Duration(1+r.IntN(8))*15*time.Minute
			}
			candIn = append(candIn, candidate("C", start, end))
		}

		got := Merge(timeparse.Eastern, fixedIn, candIn)
		gotFixed, gotCand := Split(got)

		require.Len(t, gotFixed, len(fixedIn))
		for _, c := range gotCand {
			assert.False(t, ConflictsWithAny(c, fixedIn))
		}
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Start.Before(got[i-1].Start))
		}
	}
}

func TestSplit(t *testing.T) {
	f, c := Split([]model.CanonicalEvent{
		fixed("F1", 0, 0), candidate("C1", 0, 0), fixed("F2", 0, 0),
	})
	assert.Equal(t, []string{"F1", "F2"}, titles(f))
	assert.Equal(t, []string{"C1"}, titles(c))
}

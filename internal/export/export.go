// Package export serializes a merged timeline as CSV rows or as an
// iCalendar file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"fitcal/internal/model"
	"fitcal/internal/recommend"
)

const (
	ProductID = "-//fitcal//Fitness Scheduler//EN"
	uidDomain = "fitcal"
)

// CSVHeader is the column order written by WriteCSV.
var CSVHeader = []string{
	"time_range", "candidate_title", "calendar_title",
	"description", "location", "url", "start", "end",
}

func csvRecord(ev model.CanonicalEvent) []string {
	end := ""
	if ev.HasEnd() {
		end = ev.End.UTC().Format(time.RFC3339)
	}
	return []string{
		ev.TimeRange, ev.CandidateTitle, ev.CalendarTitle,
		ev.Description, ev.Location, ev.URL,
		ev.Start.UTC().Format(time.RFC3339), end,
	}
}

// WriteCSV writes one row per event after a header row.
func WriteCSV(w io.Writer, events []model.CanonicalEvent) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, ev := range events {
		if err := cw.Write(csvRecord(ev)); err != nil {
			return fmt.Errorf("export: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScoredCSV is WriteCSV with a trailing recommendation_score column.
func WriteScoredCSV(w io.Writer, scored []recommend.Scored) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(CSVHeader[:len(CSVHeader):len(CSVHeader)], "recommendation_score")); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, s := range scored {
		rec := append(csvRecord(s.Event), strconv.FormatFloat(s.Score, 'f', -1, 64))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EventUID derives a stable UID from the event's title and start so that
// re-exports update rather than duplicate imported events.
func EventUID(ev model.CanonicalEvent) string {
	key := ev.Title() + "|" + ev.Start.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@" + uidDomain
}

// BuildCalendar builds a VCALENDAR with one VEVENT per event. Events without
// an end get the default one-hour duration. stamp, when non-zero, is
// written as every event's DTSTAMP.
func BuildCalendar(events []model.CanonicalEvent, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		if ev.Start.IsZero() {
			continue
		}
		title := ev.Title()
		if title == "" {
			title = "Untitled Event"
		}
		vev := cal.AddEvent(EventUID(ev))
		if !stamp.IsZero() {
			vev.SetDtStampTime(stamp)
		}
		vev.SetStartAt(ev.Start)
		vev.SetEndAt(ev.EffectiveEnd())
		vev.SetSummary(title)
		vev.SetDescription(ev.Description)
		vev.SetLocation(ev.Location)
	}
	return cal
}

// WriteICS serializes events as an iCalendar file.
func WriteICS(w io.Writer, events []model.CanonicalEvent, stamp time.Time) error {
	if err := BuildCalendar(events, stamp).SerializeTo(w); err != nil {
		return fmt.Errorf("export: write ics: %w", err)
	}
	return nil
}

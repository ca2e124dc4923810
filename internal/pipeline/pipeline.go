// Package pipeline runs one full pass: clean each input table, merge the
// cleaned events into a conflict-free timeline, then score and summarize
// the candidates.
package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	appLog "fitcal/internal/log"
	"fitcal/internal/ics"
	"fitcal/internal/merge"
	"fitcal/internal/metric"
	"fitcal/internal/model"
	"fitcal/internal/recommend"
	"fitcal/internal/source"
	"fitcal/internal/table"
)

// Inputs are the three raw tables. Any of them may be empty.
type Inputs struct {
	Calendar table.Table
	Listings table.Table
	Classes  table.Table
}

// Paths names the files LoadInputs reads.
type Paths struct {
	Calendar string
	Listings string
	Classes  string
}

// Options configure one run.
type Options struct {
	Location    *time.Location
	Now         time.Time
	Preferences recommend.Preferences
	TopN        int
}

// Result is everything a run produces.
type Result struct {
	GeneratedAt time.Time `json:"generated_at"`

	Timeline   []model.CanonicalEvent `json:"timeline"`
	Fixed      []model.CanonicalEvent `json:"-"`
	Candidates []model.CanonicalEvent `json:"-"`
	Conflicts  []model.CanonicalEvent `json:"conflicts"`
	Drops      []model.Drop           `json:"drops"`

	Recommendations []recommend.Scored        `json:"recommendations"`
	Schedule        []recommend.Scored        `json:"schedule"`
	Insights        recommend.Insights        `json:"insights"`
	Stats           recommend.Stats           `json:"stats"`
	Heatmap         recommend.Heatmap         `json:"heatmap"`
	Categories      []recommend.CategoryCount `json:"categories"`
}

// LoadInputs reads the configured files. A calendar path ending in .ics is
// parsed as iCalendar and expanded over [now, now+horizon]; everything else
// is read as CSV. A missing or unreadable file is logged and its table
// left empty.
func LoadInputs(p Paths, now time.Time, horizon time.Duration) Inputs {
	var in Inputs
	in.Calendar = loadCalendar(p.Calendar, now, horizon)
	in.Listings = loadCSV(model.SourceListing, p.Listings)
	in.Classes = loadCSV(model.SourceClasses, p.Classes)
	return in
}

func loadCalendar(path string, now time.Time, horizon time.Duration) table.Table {
	if path == "" {
		return table.Table{}
	}
	if !strings.EqualFold(filepath.Ext(path), ".ics") {
		return loadCSV(model.SourceCalendar, path)
	}
	t, err := ics.LoadTable(path, now, horizon)
	if err != nil {
		appLog.Error("failed to load calendar ics; treating as empty", err, "path", path)
		return table.Table{}
	}
	return t
}

func loadCSV(name, path string) table.Table {
	if path == "" {
		return table.Table{}
	}
	t, err := table.ReadCSVFile(path)
	if err != nil {
		appLog.Error("failed to load input; treating as empty", err, "source", name, "path", path)
		return table.Table{}
	}
	appLog.Debug("input loaded", "source", name, "path", path, "rows", t.Len())
	return t
}

// Run cleans, merges and scores. It never fails; unusable rows show up in
// Result.Drops.
func Run(in Inputs, opts Options) Result {
	started := time.Now()
	if opts.Now.IsZero() {
		opts.Now = started
	}
	if opts.Preferences.Location == nil && opts.Location != nil {
		opts.Preferences.Location = opts.Location
	}
	prefs := opts.Preferences.Normalize()
	loc := opts.Location
	if loc == nil {
		loc = prefs.Location
	}

	res := Result{GeneratedAt: opts.Now}

	tables := map[string]table.Table{
		model.SourceCalendar: in.Calendar,
		model.SourceListing:  in.Listings,
		model.SourceClasses:  in.Classes,
	}
	cleaners := source.All(source.Options{Location: loc, Now: opts.Now})
	groups := make([][]model.CanonicalEvent, 0, len(cleaners))
	for _, c := range cleaners {
		out := c.Clean(tables[c.Name()])
		groups = append(groups, out.Events)
		res.Drops = append(res.Drops, out.Drops...)
		metric.RowsCleaned.WithLabelValues(c.Name()).Add(float64(len(out.Events)))
		appLog.Info("source cleaned", "source", c.Name(), "rows", tables[c.Name()].Len(), "events", len(out.Events), "dropped", len(out.Drops))
	}

	merged := merge.MergeDetailed(loc, groups...)
	res.Timeline = merged.Timeline
	res.Conflicts = merged.Conflicts
	res.Drops = append(res.Drops, merged.Drops...)
	for _, c := range merged.Conflicts {
		res.Drops = append(res.Drops, model.Drop{
			Source: c.Source,
			Reason: model.ReasonScheduleOverlap,
			Value:  c.Title(),
		})
	}
	metric.ConflictsRemoved.Add(float64(len(merged.Conflicts)))

	res.Fixed, res.Candidates = merge.Split(res.Timeline)
	res.Recommendations = recommend.Rank(res.Candidates, res.Fixed, prefs, opts.TopN)
	res.Schedule = recommend.Schedule(res.Candidates, res.Fixed, prefs)
	res.Insights = recommend.BuildInsights(res.Timeline, loc)
	res.Stats = recommend.BuildStats(res.Timeline, loc)
	res.Heatmap = recommend.BuildHeatmap(res.Timeline, loc)
	res.Categories = recommend.CategoryCounts(res.Timeline)

	for _, d := range res.Drops {
		metric.RowsDropped.WithLabelValues(d.Source, d.Reason).Inc()
	}
	metric.TimelineSize.WithLabelValues(model.KindFixed.String()).Set(float64(len(res.Fixed)))
	metric.TimelineSize.WithLabelValues(model.KindCandidate.String()).Set(float64(len(res.Candidates)))
	metric.LastRun.Set(float64(time.Now().Unix()))
	metric.RunDuration.Observe(time.Since(started).Seconds())

	appLog.Info("pipeline run completed",
		"timeline", len(res.Timeline),
		"fixed", len(res.Fixed),
		"candidates", len(res.Candidates),
		"conflicts", len(res.Conflicts),
		"drops", len(res.Drops),
		"recommendations", len(res.Recommendations),
		"scheduled", len(res.Schedule),
		"elapsed", time.Since(started),
	)
	return res
}

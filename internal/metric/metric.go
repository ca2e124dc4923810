// Package metric holds the Prometheus collectors updated by each pipeline
// run.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registry the collectors live in and /metrics serves.
var Registry = prometheus.NewRegistry()

var (
	RowsCleaned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcal_rows_cleaned_total",
		Help: "Canonical events produced by each source cleaner",
	}, []string{"source"})

	RowsDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fitcal_rows_dropped_total",
		Help: "Rows or occurrences discarded, by source and reason",
	}, []string{"source", "reason"})

	ConflictsRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fitcal_conflicts_removed_total",
		Help: "Candidates removed for overlapping a calendar commitment",
	})

	TimelineSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fitcal_timeline_events",
		Help: "Events in the latest merged timeline, by kind",
	}, []string{"kind"})

	LastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fitcal_last_run_timestamp_seconds",
		Help: "Unix time of the latest completed pipeline run",
	})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fitcal_run_duration_seconds",
		Help:    "Wall time of a pipeline run",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	Registry.MustRegister(RowsCleaned, RowsDropped, ConflictsRemoved, TimelineSize, LastRun, RunDuration)
}

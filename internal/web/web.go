package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fitcal/internal/config"
	"fitcal/internal/export"
	appLog "fitcal/internal/log"
	"fitcal/internal/metric"
	"fitcal/internal/model"
	"fitcal/internal/pipeline"
	"fitcal/internal/recommend"
)

// RunFunc produces a fresh pipeline result. main wires it to file loading
// plus pipeline.Run; tests pass a stub.
type RunFunc func(ctx context.Context) pipeline.Result

// Server serves the latest pipeline result over HTTP.
type Server struct {
	cfg   *config.Config
	debug bool
	mux   *http.ServeMux
	run   RunFunc
	prefs recommend.Preferences

	// Latest pipeline result. Replaced wholesale by Refresh; handlers only
	// read it.
	snapMu   sync.RWMutex
	snapshot *pipeline.Result
}

// NewServer constructs a new Server. The snapshot is empty until the first
// Refresh.
func NewServer(cfg *config.Config, run RunFunc, debug bool) *Server {
	s := &Server{
		cfg:   cfg,
		debug: debug,
		mux:   http.NewServeMux(),
		run:   run,
		prefs: cfg.RecommendPreferences(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Refresh runs the pipeline and swaps in the new snapshot.
func (s *Server) Refresh(ctx context.Context) {
	if s.run == nil {
		return
	}
	res := s.run(ctx)
	s.snapMu.Lock()
	s.snapshot = &res
	s.snapMu.Unlock()
}

// Snapshot returns the current result, or an empty one before the first
// refresh.
func (s *Server) Snapshot() pipeline.Result {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if s.snapshot == nil {
		return pipeline.Result{Timeline: []model.CanonicalEvent{}}
	}
	return *s.snapshot
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Blank credentials disable auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="fitcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(metric.Registry, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("GET /api/timeline", s.handleTimeline)
	s.mux.HandleFunc("GET /api/recommendations", s.handleRecommendations)
	s.mux.HandleFunc("GET /api/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /api/insights", s.handleInsights)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	s.mux.HandleFunc("GET /export.ics", s.handleExportICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// timelineResponse is the JSON response shape for /api/timeline.
type timelineResponse struct {
	GeneratedAt     time.Time              `json:"generated_at"`
	DisplayTimeZone string                 `json:"display_timezone"`
	Events          []model.CanonicalEvent `json:"events"`
	Conflicts       int                    `json:"conflicts_removed"`
	Drops           []model.Drop           `json:"drops"`
}

// handleTimeline returns the merged, conflict-free timeline.
//
// GET /api/timeline?kind=fixed|candidate
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()

	events := snap.Timeline
	switch r.URL.Query().Get("kind") {
	case model.KindFixed.String():
		events = snap.Fixed
	case model.KindCandidate.String():
		events = snap.Candidates
	}
	if events == nil {
		events = []model.CanonicalEvent{}
	}
	drops := snap.Drops
	if drops == nil {
		drops = []model.Drop{}
	}

	writeJSON(w, http.StatusOK, timelineResponse{
		GeneratedAt:     snap.GeneratedAt,
		DisplayTimeZone: s.cfg.Location().String(),
		Events:          events,
		Conflicts:       len(snap.Conflicts),
		Drops:           drops,
	})
}

// handleRecommendations ranks the snapshot's candidates.
//
// GET /api/recommendations?top=10
//   - top: how many to return (default config top_n)
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	top := parseIntDefault(r.URL.Query().Get("top"), s.cfg.TopN)
	if top <= 0 {
		writeError(w, http.StatusBadRequest, "top must be positive")
		return
	}
	snap := s.Snapshot()
	ranked := recommend.Rank(snap.Candidates, snap.Fixed, s.prefs, top)
	writeJSON(w, http.StatusOK, ranked)
}

func (s *Server) handleSchedule(w http.ResponseWriter, _ *http.Request) {
	snap := s.Snapshot()
	sched := snap.Schedule
	if sched == nil {
		sched = []recommend.Scored{}
	}
	writeJSON(w, http.StatusOK, sched)
}

func (s *Server) handleInsights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Snapshot().Insights)
}

// statsResponse is the JSON response shape for /api/stats.
type statsResponse struct {
	recommend.Stats
	Heatmap    recommend.Heatmap         `json:"heatmap"`
	Categories []recommend.CategoryCount `json:"categories"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.Snapshot()
	cats := snap.Categories
	if cats == nil {
		cats = []recommend.CategoryCount{}
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:      snap.Stats,
		Heatmap:    snap.Heatmap,
		Categories: cats,
	})
}

// handleRefresh re-runs the pipeline synchronously.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	appLog.Info("manual refresh requested", "remote", r.RemoteAddr)
	s.Refresh(r.Context())
	snap := s.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"generated_at": snap.GeneratedAt,
		"events":       len(snap.Timeline),
	})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, s.Snapshot().Timeline); err != nil {
		appLog.Error("csv export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export csv")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.csv"`)
	_, _ = w.Write(buf.Bytes())
}

// handleExportICS serves the timeline as an iCalendar feed.
//
// GET /export.ics?scope=schedule exports only the weekly schedule.
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	snap := s.Snapshot()
	events := snap.Timeline
	if r.URL.Query().Get("scope") == "schedule" {
		events = make([]model.CanonicalEvent, 0, len(snap.Schedule))
		for _, sc := range snap.Schedule {
			events = append(events, sc.Event)
		}
	}

	var buf bytes.Buffer
	if err := export.WriteICS(&buf, events, snap.GeneratedAt); err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export ics")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	_, _ = w.Write(buf.Bytes())
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

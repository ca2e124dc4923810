package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcal/internal/config"
	"fitcal/internal/model"
	"fitcal/internal/pipeline"
	"fitcal/internal/recommend"
)

var generated = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

func stubRun(calls *int) RunFunc {
	return func(context.Context) pipeline.Result {
		*calls++
		standup := model.CanonicalEvent{
			CalendarTitle: "Standup",
			Start:         time.Date(2025, 9, 15, 13, 0, 0, 0, time.UTC),
			TimeRange:     "2025-09-15 09:00 ET",
			Source:        model.SourceCalendar,
		}
		yoga := model.CanonicalEvent{
			CandidateTitle: "Morning Yoga",
			Start:          time.Date(2025, 9, 15, 11, 0, 0, 0, time.UTC),
			End:            time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC),
			TimeRange:      "2025-09-15 07:00 - 08:00 ET",
			Source:         model.SourceClasses,
		}
		return pipeline.Result{
			GeneratedAt: generated,
			Timeline:    []model.CanonicalEvent{yoga, standup},
			Fixed:       []model.CanonicalEvent{standup},
			Candidates:  []model.CanonicalEvent{yoga},
			Schedule:    []recommend.Scored{{Event: yoga, Score: 115}},
			Insights:    recommend.Insights{TotalEvents: 2, Balance: recommend.Balanced, Recommendations: []string{}},
		}
	}
}

func newTestServer(t *testing.T, auth *config.BasicAuthConfig) (*Server, *int) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasicAuth = auth
	calls := 0
	return NewServer(cfg, stubRun(&calls), false), &calls
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestTimelineBeforeAndAfterRefresh(t *testing.T) {
	s, calls := newTestServer(t, nil)
	h := s.Handler()

	var resp timelineResponse
	rec := get(t, h, "/api/timeline")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Events)
	assert.Equal(t, "America/New_York", resp.DisplayTimeZone)

	s.Refresh(context.Background())
	assert.Equal(t, 1, *calls)

	rec = get(t, h, "/api/timeline")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "Morning Yoga", resp.Events[0].CandidateTitle)
	assert.True(t, generated.Equal(resp.GeneratedAt))

	rec = get(t, h, "/api/timeline?kind=fixed")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "Standup", resp.Events[0].CalendarTitle)
}

func TestRecommendations(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.Refresh(context.Background())
	h := s.Handler()

	rec := get(t, h, "/api/recommendations?top=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var ranked []recommend.Scored
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, "Morning Yoga", ranked[0].Event.CandidateTitle)
	assert.Positive(t, ranked[0].Score)

	rec = get(t, h, "/api/recommendations?top=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleInsightsStats(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.Refresh(context.Background())
	h := s.Handler()

	rec := get(t, h, "/api/schedule")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"recommendation_score":115`)

	rec = get(t, h, "/api/insights")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"schedule_balance":"balanced"`)

	rec = get(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"heatmap"`)
}

func TestExports(t *testing.T) {
	s, _ := newTestServer(t, nil)
	s.Refresh(context.Background())
	h := s.Handler()

	rec := get(t, h, "/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))

	rec = get(t, h, "/export.ics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))

	rec = get(t, h, "/export.ics?scope=schedule")
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "BEGIN:VEVENT"))
	assert.Contains(t, rec.Body.String(), "SUMMARY:Morning Yoga")
}

func TestRefreshEndpoint(t *testing.T) {
	s, calls := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, *calls)
	assert.Len(t, s.Snapshot().Timeline, 2)

	rec = get(t, s.Handler(), "/api/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, &config.BasicAuthConfig{Username: "me", Password: "secret"})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)

	rec := get(t, h, "/api/timeline")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	req.SetBasicAuth("me", "wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/timeline", nil)
	req.SetBasicAuth("me", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBasicAuthDisabledWithBlankPassword(t *testing.T) {
	s, _ := newTestServer(t, &config.BasicAuthConfig{Username: "me"})
	assert.Equal(t, http.StatusOK, get(t, s.Handler(), "/api/timeline").Code)
}

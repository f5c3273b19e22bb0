package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timedash/internal/config"
	"timedash/internal/kv"
	"timedash/internal/model"
	"timedash/internal/store"
	"timedash/internal/tasks"
	"timedash/internal/timer"
)

func newTestServer(t *testing.T) (*Server, *store.EventStore) {
	t.Helper()

	cfg := config.DefaultConfig()
	mem := kv.NewMemStore()
	events := store.New(mem, cfg.GridMetrics(), time.UTC)
	taskStore := tasks.New(mem)
	focus := timer.New(mem)

	return NewServer(cfg, mem, events, taskStore, focus, time.UTC), events
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

// todayAt returns today's date at the given hour in UTC, RFC 3339 encoded.
func todayAt(h int) string {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), h, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestEventLifecycle(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	body := fmt.Sprintf(`{"title":"Standup","category":"work","start":%q,"end":%q}`, todayAt(10), todayAt(11))
	rec := do(t, s, http.MethodPost, "/api/events", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created eventDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	// The new event shows up in the current week's listing.
	rec = do(t, s, http.MethodGet, "/api/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed eventsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Events, 1)
	assert.Len(t, listed.WeekDays, 7)

	// Rename it.
	rec = do(t, s, http.MethodPut, "/api/events/"+created.ID, `{"title":"Retro"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated eventDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Retro", updated.Title)

	// Deleting without confirmation is refused.
	rec = do(t, s, http.MethodDelete, "/api/events/"+created.ID, "")
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/events/"+created.ID+"?confirm=1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/events/"+created.ID+"?confirm=1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateEventValidation(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	// End before start.
	body := fmt.Sprintf(`{"start":%q,"end":%q}`, todayAt(11), todayAt(10))
	rec := do(t, s, http.MethodPost, "/api/events", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "end time must be after start time")

	// Outside the visible window.
	body = fmt.Sprintf(`{"start":%q,"end":%q}`, todayAt(6), todayAt(7))
	rec = do(t, s, http.MethodPost, "/api/events", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Missing times.
	rec = do(t, s, http.MethodPost, "/api/events", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDragCommitsThroughGesture(t *testing.T) {
	t.Parallel()

	s, events := newTestServer(t)

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, time.UTC)
	ev, err := events.Create("Focus", model.CategoryWork, start, start.Add(time.Hour))
	require.NoError(t, err)

	// +25 px at 50 px/hour is +30 minutes.
	rec := do(t, s, http.MethodPost, "/api/events/"+ev.ID+"/drag", `{"kind":"move","delta_pixels":25}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var moved eventDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &moved))
	assert.True(t, moved.Start.Equal(start.Add(30*time.Minute)))
	assert.Equal(t, time.Hour, moved.End.Sub(moved.Start))
}

func TestDragRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/events/some-id/drag", `{"kind":"rotate","delta_pixels":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLayout(t *testing.T) {
	t.Parallel()

	s, events := newTestServer(t)

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 10, 0, 0, 0, time.UTC)
	ev, err := events.Create("Focus", model.CategoryWork, start, start.Add(time.Hour))
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/api/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp layoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp.Rects, ev.ID)
	assert.Equal(t, store.HoverZ, resp.HoverZ)
	assert.InDelta(t, 100, resp.Rects[ev.ID].Top, 0.001)
}

func TestTaskEndpoints(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/tasks", `{"title":"Plan sprint","urgency":"high","importance":"high"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, s, http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed quadrantsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Quadrants[1], 1)

	rec = do(t, s, http.MethodPost, "/api/tasks/"+created.ID+"/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.Equal(t, model.TaskCompleted, toggled.Status)

	rec = do(t, s, http.MethodDelete, "/api/tasks/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/tasks/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimerEndpoints(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/timer", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var state timerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "idle", state.Phase)
	assert.Equal(t, 25*60, state.Remaining)

	rec = do(t, s, http.MethodPost, "/api/timer/toggle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Running)
	assert.Equal(t, "work", state.Phase)

	rec = do(t, s, http.MethodPost, "/api/timer/settings", `{"workDuration":50,"breakDuration":10,"cycles":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, 50, state.Settings.WorkMinutes)

	rec = do(t, s, http.MethodPost, "/api/timer/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "idle", state.Phase)
	assert.False(t, state.Running)
}

func TestAnalyticsEndpoint(t *testing.T) {
	t.Parallel()

	s, events := newTestServer(t)

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC)
	_, err := events.Create("Focus", model.CategoryStudy, start, start.Add(2*time.Hour))
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/api/analytics?view=daily", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary struct {
		View       string  `json:"view"`
		TotalHours float64 `json:"total_hours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "daily", summary.View)
	assert.InDelta(t, 2.0, summary.TotalHours, 0.001)
}

func TestExportEndpoints(t *testing.T) {
	t.Parallel()

	s, events := newTestServer(t)

	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, time.UTC)
	_, err := events.Create("Focus", model.CategoryWork, start, start.Add(time.Hour))
	require.NoError(t, err)

	rec := do(t, s, http.MethodGet, "/api/export/week.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), "Focus")

	rec = do(t, s, http.MethodGet, "/api/export/week.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "SUMMARY:Focus")
}

func TestThemePersistence(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "light")

	rec = do(t, s, http.MethodPut, "/api/theme", `{"theme":"dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dark")

	rec = do(t, s, http.MethodPut, "/api/theme", `{"theme":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}

	mem := kv.NewMemStore()
	s := NewServer(cfg, mem, store.New(mem, cfg.GridMetrics(), time.UTC), tasks.New(mem), timer.New(mem), time.UTC)

	// Unauthenticated API access is refused.
	rec := do(t, s, http.MethodGet, "/api/events", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// /health stays open.
	rec = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Valid credentials pass.
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.SetBasicAuth("u", "p")
	okRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(okRec, req)
	assert.Equal(t, http.StatusOK, okRec.Code)
}

func TestUnknownAPIPathIs404NotHTML(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

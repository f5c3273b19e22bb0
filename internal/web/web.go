package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"timedash/internal/analytics"
	"timedash/internal/config"
	"timedash/internal/dateutil"
	"timedash/internal/export"
	"timedash/internal/gesture"
	"timedash/internal/grid"
	"timedash/internal/kv"
	appLog "timedash/internal/log"
	"timedash/internal/model"
	"timedash/internal/store"
	"timedash/internal/tasks"
	"timedash/internal/timer"
)

// ThemeKey is the key under which the dark/light preference is persisted.
const ThemeKey = "themePreference"

// Server exposes the dashboard widgets over HTTP: the week calendar (events,
// layout, drag commits), the task matrix, the focus timer, the analytics
// summary, and the week export downloads.
//
// All widget state is owned by the stores; the single mutex serializes
// handler access so every mutation runs to completion before the next one,
// mirroring the one-thread-of-control model the widgets assume.
type Server struct {
	cfg     *config.Config
	mux     *http.ServeMux
	loc     *time.Location
	metrics grid.Metrics

	mu     sync.Mutex
	events *store.EventStore
	tasks  *tasks.Store
	timer  *timer.Timer
	kvs    kv.Store
}

// embeddedStatic contains the static dashboard shell served at /.
//
//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs a new Server around the given stores.
func NewServer(cfg *config.Config, kvs kv.Store, events *store.EventStore, taskStore *tasks.Store, focus *timer.Timer, loc *time.Location) *Server {
	s := &Server{
		cfg: cfg,
		mux:     http.NewServeMux(),
		loc:     loc,
		metrics: cfg.GridMetrics(),
		events:  events,
		tasks:  taskStore,
		timer:  focus,
		kvs:    kvs,
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

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password counts as disabled.
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
		// /health is always exposed unauthenticated.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="timedash", charset="UTF-8"`)
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

// StartServer starts an HTTP server bound to cfg.Listen. Shutdown wiring is
// left to the caller.
func StartServer(_ context.Context, s *Server) error {
	appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
	return http.ListenAndServe(s.cfg.Listen, s.Handler())
}

// RunTicker drives the focus timer with a 1-second interval until ctx is
// cancelled. The calendar itself has no timers; this interval exists only for
// the Pomodoro widget.
func (s *Server) RunTicker(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.timer.Tick()
			s.mu.Unlock()
		}
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/events", s.handleListEvents)
	s.mux.HandleFunc("POST /api/events", s.handleCreateEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/drag", s.handleDragEvent)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)

	s.mux.HandleFunc("GET /api/tasks", s.handleListTasks)
	s.mux.HandleFunc("POST /api/tasks", s.handleCreateTask)
	s.mux.HandleFunc("PUT /api/tasks/{id}", s.handleUpdateTask)
	s.mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggleTask)
	s.mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)

	s.mux.HandleFunc("GET /api/timer", s.handleTimerState)
	s.mux.HandleFunc("POST /api/timer/toggle", s.handleTimerToggle)
	s.mux.HandleFunc("POST /api/timer/reset", s.handleTimerReset)
	s.mux.HandleFunc("POST /api/timer/settings", s.handleTimerSettings)

	s.mux.HandleFunc("GET /api/analytics", s.handleAnalytics)

	s.mux.HandleFunc("GET /api/export/week.json", s.handleExportJSON)
	s.mux.HandleFunc("GET /api/export/week.ics", s.handleExportICS)

	s.mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	s.mux.HandleFunc("PUT /api/theme", s.handlePutTheme)

	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	// Static dashboard shell; all non-API paths fall back to it.
	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// weekFor resolves the week cursor from the request's ?week= query (RFC 3339
// or civil date), defaulting to now, and returns the 7 visible dates.
func (s *Server) weekFor(r *http.Request) []time.Time {
	cursor := time.Now().In(s.loc)
	if raw := r.URL.Query().Get("week"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			cursor = t.In(s.loc)
		} else if t, err := time.ParseInLocation("2006-01-02", raw, s.loc); err == nil {
			cursor = t
		}
	}
	return dateutil.WeekDays(cursor, s.cfg.WeekStartWeekday())
}

// eventDTO is the JSON shape of one event.
type eventDTO struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Category string    `json:"category"`
}

func toEventDTO(ev model.Event) eventDTO {
	return eventDTO{
		ID:       ev.ID,
		Title:    ev.Title,
		Start:    ev.Start,
		End:      ev.End,
		Category: string(ev.Category),
	}
}

// eventsResponse is the JSON response shape for GET /api/events.
type eventsResponse struct {
	Events    []eventDTO  `json:"events"`
	WeekDays  []time.Time `json:"week_days"`
	WeekStart string      `json:"week_start"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekDays := s.weekFor(r)
	dtos := make([]eventDTO, 0)
	for _, ev := range s.events.List() {
		if grid.ColumnFor(weekDays, ev.Start) == -1 {
			continue
		}
		dtos = append(dtos, toEventDTO(ev))
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Events:    dtos,
		WeekDays:  weekDays,
		WeekStart: s.cfg.WeekStart,
	})
}

// eventRequest is the JSON body for create/update.
type eventRequest struct {
	Title    *string    `json:"title"`
	Category *string    `json:"category"`
	Start    *time.Time `json:"start"`
	End      *time.Time `json:"end"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Start == nil || req.End == nil {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}

	title := ""
	if req.Title != nil {
		title = *req.Title
	}
	category := model.CategoryWork
	if req.Category != nil {
		category = model.Category(*req.Category)
	}

	s.mu.Lock()
	ev, err := s.events.Create(title, category, *req.Start, *req.End)
	s.mu.Unlock()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventDTO(ev))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	upd := store.Update{Title: req.Title, Start: req.Start, End: req.End}
	if req.Category != nil {
		c := model.Category(*req.Category)
		upd.Category = &c
	}

	s.mu.Lock()
	ev, err := s.events.ApplyUpdate(id, upd)
	s.mu.Unlock()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(ev))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	// Deletion is gated behind an explicit confirmation the client must have
	// collected from the user; the store itself never prompts.
	if r.URL.Query().Get("confirm") != "1" {
		writeError(w, http.StatusPreconditionRequired, "deletion requires confirmation")
		return
	}

	id := r.PathValue("id")
	s.mu.Lock()
	err := s.events.Delete(id)
	s.mu.Unlock()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// dragRequest describes one completed drag gesture: the kind and the total
// vertical pixel delta between pointer-down and pointer-up.
type dragRequest struct {
	Kind        string  `json:"kind"`
	DeltaPixels float64 `json:"delta_pixels"`
}

// handleDragEvent commits a finished drag: the delta runs through the gesture
// session (snap, clamp, floor) and the resulting times go through the normal
// update path. A rejected tick commits the unchanged original times, which is
// a no-op update.
func (s *Server) handleDragEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req dragRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	kind := gesture.Kind(req.Kind)
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "unknown gesture kind")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, err := s.events.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	session := gesture.Begin(kind, ev, gesture.Config{
		Metrics:     s.metrics,
		SnapMinutes: s.cfg.SnapMinutes,
		MinBlockPx:  s.cfg.MinBlockPx,
	})
	session.MoveBy(req.DeltaPixels)
	start, end := session.End()

	updated, err := s.events.ApplyUpdate(id, store.Update{Start: &start, End: &end})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventDTO(updated))
}

// layoutResponse is the JSON response shape for GET /api/layout.
type layoutResponse struct {
	Rects    map[string]store.Rect `json:"rects"`
	WeekDays []time.Time           `json:"week_days"`
	HoverZ   int                   `json:"hover_z"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	weekDays := s.weekFor(r)
	writeJSON(w, http.StatusOK, layoutResponse{
		Rects:    s.events.Layout(weekDays),
		WeekDays: weekDays,
		HoverZ:   store.HoverZ,
	})
}

// quadrantsResponse is the JSON response shape for GET /api/tasks.
type quadrantsResponse struct {
	Quadrants map[int][]model.Task `json:"quadrants"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, quadrantsResponse{Quadrants: s.tasks.Quadrants()})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t model.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	created, err := s.tasks.Create(t)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var t model.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	updated, err := s.tasks.Update(id, t)
	s.mu.Unlock()
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	updated, err := s.tasks.ToggleStatus(id)
	s.mu.Unlock()
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	err := s.tasks.Delete(id)
	s.mu.Unlock()
	if err != nil {
		writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// timerResponse is the JSON response shape for GET /api/timer.
type timerResponse struct {
	Phase     string              `json:"phase"`
	Running   bool                `json:"running"`
	Remaining int                 `json:"remaining_seconds"`
	Cycle     int                 `json:"cycle"`
	Progress  float64             `json:"progress"`
	Settings  model.TimerSettings `json:"settings"`
}

func (s *Server) timerState() timerResponse {
	return timerResponse{
		Phase:     string(s.timer.Phase()),
		Running:   s.timer.Running(),
		Remaining: s.timer.Remaining(),
		Cycle:     s.timer.Cycle(),
		Progress:  s.timer.Progress(),
		Settings:  s.timer.Settings(),
	}
}

func (s *Server) handleTimerState(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := s.timerState()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimerToggle(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.timer.Toggle()
	resp := s.timerState()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimerReset(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.timer.Reset()
	resp := s.timerState()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTimerSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.TimerSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	s.timer.ApplySettings(settings)
	resp := s.timerState()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	view := analytics.ViewWeekly
	if r.URL.Query().Get("view") == string(analytics.ViewDaily) {
		view = analytics.ViewDaily
	}
	category := model.Category(r.URL.Query().Get("category"))

	s.mu.Lock()
	events := s.events.List()
	s.mu.Unlock()

	summary := analytics.HoursByCategory(events, view, time.Now().In(s.loc), s.cfg.WeekStartWeekday(), category)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	weekDays := s.weekFor(r)
	events := s.events.List()
	s.mu.Unlock()

	data, err := export.WeekJSON(events, weekDays)
	if err != nil {
		appLog.Error("week JSON export failed", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="week.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	weekDays := s.weekFor(r)
	events := s.events.List()
	s.mu.Unlock()

	body := export.WeekICS(events, weekDays)

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="week.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// themeResponse is the JSON shape for the persisted dark/light preference.
type themeResponse struct {
	Theme string `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, _ *http.Request) {
	theme := "light"
	if raw, ok, err := s.kvs.Get(ThemeKey); err == nil && ok && raw != "" {
		theme = raw
	}
	writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
}

func (s *Server) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var req themeResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Theme != "light" && req.Theme != "dark" {
		writeError(w, http.StatusBadRequest, "theme must be light or dark")
		return
	}
	if err := s.kvs.Set(ThemeKey, req.Theme); err != nil {
		appLog.Error("theme persist failed", err, "key", ThemeKey)
	}
	writeJSON(w, http.StatusOK, req)
}

// handlePreview serves the last rendered PNG preview from the data directory.
// The path matches the capture pipeline in cmd/timedash.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.DataDir, "preview.png"))
}

// staticFileServer returns an http.Handler that serves the embedded
// dashboard shell from internal/web/static.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}

	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /api/* requests never fall back to the static UI; a missing API
		// route is a 404, not an HTML page.
		if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
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

// writeStoreError maps event-store errors onto HTTP statuses: validation
// failures are 422 with the user-facing message, unknown ids are 404.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case store.IsValidation(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeTaskError(w http.ResponseWriter, err error) {
	if errors.Is(err, tasks.ErrNotFound) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

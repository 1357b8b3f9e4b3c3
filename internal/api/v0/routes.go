// Package v0 provides the REST API handlers for the synchronization service.
package v0

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/candleworks/catalogsync/internal/history"
	"github.com/candleworks/catalogsync/internal/logger"
	"github.com/candleworks/catalogsync/internal/scheduler"
	"github.com/candleworks/catalogsync/internal/sync"
	"github.com/candleworks/catalogsync/internal/versions"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	recentRunsInStatus  = 5
)

// Syncer is the run surface the handlers drive.
type Syncer interface {
	RunAsync(ctx context.Context, trigger sync.Trigger) error
	Status() sync.Status
	History() *history.Store
}

// Schedule is the schedule surface the handlers drive.
type Schedule interface {
	Reschedule(expression, timezone string) error
	Pause()
	Resume()
	NextFire() (time.Time, bool)
	Expression() string
	Paused() bool
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
	State string `json:"state,omitempty"`
}

// TriggerResponse is returned when a manual sync is accepted
type TriggerResponse struct {
	Status  string `json:"status"`
	Trigger string `json:"trigger"`
}

// ScheduleInfo describes the armed schedule
type ScheduleInfo struct {
	Expression string     `json:"expression,omitempty"`
	Paused     bool       `json:"paused"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
}

// StatusResponse aggregates run state, schedule state, and recent history
type StatusResponse struct {
	sync.Status
	Schedule   ScheduleInfo        `json:"schedule"`
	RecentRuns []history.RunRecord `json:"recent_runs"`
}

// HistoryResponse is a page of run records, newest first
type HistoryResponse struct {
	Runs   []history.RunRecord `json:"runs"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// ScheduleRequest is the body of a schedule change
type ScheduleRequest struct {
	Expression string `json:"expression"`
	Timezone   string `json:"timezone,omitempty"`
}

// Routes defines the routes for the sync API with dependency injection
type Routes struct {
	syncer Syncer
	sched  Schedule
}

// NewRoutes creates a new Routes instance
func NewRoutes(syncer Syncer, sched Schedule) *Routes {
	return &Routes{
		syncer: syncer,
		sched:  sched,
	}
}

// Router creates a new router for the sync API
func Router(syncer Syncer, sched Schedule) http.Handler {
	routes := NewRoutes(syncer, sched)

	r := chi.NewRouter()

	r.Post("/sync", routes.triggerSync)
	r.Get("/status", routes.getStatus)
	r.Get("/history", routes.getHistory)
	r.Put("/schedule", routes.putSchedule)
	r.Post("/schedule/stop", routes.stopSchedule)
	r.Post("/schedule/start", routes.startSchedule)

	return r
}

// triggerSync handles POST /api/v0/sync
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	err := rr.syncer.RunAsync(r.Context(), sync.TriggerManual)
	if err != nil {
		var already *sync.AlreadyRunningError
		if errors.As(err, &already) {
			rr.writeJSONResponse(w, http.StatusConflict, ErrorResponse{
				Error: already.Error(),
				State: string(already.State),
			})
			return
		}
		logger.Errorf("Failed to trigger sync: %v", err)
		rr.writeErrorResponse(w, "Failed to trigger sync", http.StatusInternalServerError)
		return
	}

	rr.writeJSONResponse(w, http.StatusAccepted, TriggerResponse{
		Status:  "accepted",
		Trigger: string(sync.TriggerManual),
	})
}

// getStatus handles GET /api/v0/status
func (rr *Routes) getStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:     rr.syncer.Status(),
		RecentRuns: rr.syncer.History().Recent(recentRunsInStatus),
		Schedule: ScheduleInfo{
			Expression: rr.sched.Expression(),
			Paused:     rr.sched.Paused(),
		},
	}
	if next, ok := rr.sched.NextFire(); ok {
		resp.Schedule.NextRunAt = &next
	}

	rr.writeJSONResponse(w, http.StatusOK, resp)
}

// getHistory handles GET /api/v0/history
func (rr *Routes) getHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultHistoryLimit)
	if err != nil || limit < 1 {
		rr.writeErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		rr.writeErrorResponse(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}

	store := rr.syncer.History()
	rr.writeJSONResponse(w, http.StatusOK, HistoryResponse{
		Runs:   store.Page(limit, offset),
		Total:  store.Len(),
		Limit:  limit,
		Offset: offset,
	})
}

// putSchedule handles PUT /api/v0/schedule
func (rr *Routes) putSchedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rr.writeErrorResponse(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Expression == "" {
		rr.writeErrorResponse(w, "expression is required", http.StatusBadRequest)
		return
	}

	if err := rr.sched.Reschedule(req.Expression, req.Timezone); err != nil {
		if errors.Is(err, scheduler.ErrInvalidSchedule) {
			rr.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Errorf("Failed to update schedule: %v", err)
		rr.writeErrorResponse(w, "Failed to update schedule", http.StatusInternalServerError)
		return
	}

	rr.scheduleInfo(w)
}

// stopSchedule handles POST /api/v0/schedule/stop
func (rr *Routes) stopSchedule(w http.ResponseWriter, _ *http.Request) {
	rr.sched.Pause()
	rr.scheduleInfo(w)
}

// startSchedule handles POST /api/v0/schedule/start
func (rr *Routes) startSchedule(w http.ResponseWriter, _ *http.Request) {
	rr.sched.Resume()
	rr.scheduleInfo(w)
}

func (rr *Routes) scheduleInfo(w http.ResponseWriter) {
	info := ScheduleInfo{
		Expression: rr.sched.Expression(),
		Paused:     rr.sched.Paused(),
	}
	if next, ok := rr.sched.NextFire(); ok {
		info.NextRunAt = &next
	}
	rr.writeJSONResponse(w, http.StatusOK, info)
}

// HealthRouter creates a router for health check endpoints
func HealthRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler)

	return r
}

// healthHandler handles health check requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// versionHandler handles version information requests
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(versions.GetVersionInfo()); err != nil {
		logger.Errorf("Failed to encode version info: %v", err)
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// writeJSONResponse writes a JSON response with the given data
func (*Routes) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func (rr *Routes) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	rr.writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

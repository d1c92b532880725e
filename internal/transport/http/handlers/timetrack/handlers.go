package timetrackhandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"opscore/internal/domain/audit"
	"opscore/internal/domain/auth"
	"opscore/internal/domain/timetrack"
	"opscore/internal/transport/http/api"
	"opscore/internal/transport/http/middleware"
	"opscore/internal/transport/http/shared"
)

type Handler struct {
	Service *timetrack.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service *timetrack.Service, perms middleware.PermissionStore, auditSvc audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks/{taskID}", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermTimeRead, h.Perms)).Get("/timer", h.handleTimer)
		r.With(middleware.RequirePermission(auth.PermTimeTrack, h.Perms)).Post("/timer/start", h.handleStart)
		r.With(middleware.RequirePermission(auth.PermTimeTrack, h.Perms)).Post("/timer/pause", h.handlePause)
		r.With(middleware.RequirePermission(auth.PermTimeTrack, h.Perms)).Post("/timer/stop", h.handleStop)
		r.With(middleware.RequirePermission(auth.PermTimeTrack, h.Perms)).Post("/time", h.handleLogTime)
		r.With(middleware.RequirePermission(auth.PermTimeRead, h.Perms)).Get("/effort", h.handleEffort)
	})
}

func (h *Handler) handleTimer(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	view, err := h.Service.Timer(r.Context(), chi.URLParam(r, "taskID"), user.UserID)
	if err != nil {
		h.fail(w, r, err, "timer_lookup_failed", "failed to load timer")
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	view, err := h.Service.Start(r.Context(), chi.URLParam(r, "taskID"), user.UserID)
	if err != nil {
		h.fail(w, r, err, "timer_start_failed", "failed to start timer")
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	view, err := h.Service.Pause(r.Context(), chi.URLParam(r, "taskID"), user.UserID)
	if err != nil {
		h.fail(w, r, err, "timer_pause_failed", "failed to pause timer")
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

type stopPayload struct {
	Commit *bool `json:"commit"`
}

// handleStop commits by default; {"commit": false} reports the elapsed time and discards it.
func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload stopPayload
	if err := shared.DecodeJSON(r, &payload); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	commit := payload.Commit == nil || *payload.Commit

	taskID := chi.URLParam(r, "taskID")
	result, err := h.Service.Stop(r.Context(), taskID, user.UserID, commit)
	if err != nil {
		h.fail(w, r, err, "timer_stop_failed", "failed to stop timer")
		return
	}
	if result.Committed {
		h.recordAudit(r, user, "task.time.timer", taskID, map[string]any{"seconds": result.Seconds, "hours": result.Hours})
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

// logTimePayload carries either fractional hours, or whole hours plus minutes.
type logTimePayload struct {
	Hours   *decimal.Decimal `json:"hours"`
	Minutes *int             `json:"minutes"`
}

func (h *Handler) handleLogTime(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload logTimePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	if payload.Hours == nil && payload.Minutes == nil {
		v.Add("hours", "is required")
	}
	if payload.Minutes != nil && payload.Hours != nil && !payload.Hours.Equal(payload.Hours.Truncate(0)) {
		v.Add("hours", "must be a whole number when minutes are given")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	taskID := chi.URLParam(r, "taskID")
	var (
		task timetrack.Task
		err  error
	)
	if payload.Minutes != nil {
		hours := 0
		if payload.Hours != nil {
			hours = int(payload.Hours.IntPart())
		}
		task, err = h.Service.LogManual(r.Context(), taskID, hours, *payload.Minutes)
	} else {
		task, err = h.Service.LogTime(r.Context(), taskID, *payload.Hours)
	}
	if err != nil {
		h.fail(w, r, err, "time_log_failed", "failed to log time")
		return
	}
	h.recordAudit(r, user, "task.time.manual", taskID, payload)
	api.Success(w, task, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEffort(w http.ResponseWriter, r *http.Request) {
	effort, err := h.Service.Effort(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.fail(w, r, err, "effort_failed", "failed to compute effort")
		return
	}
	api.Success(w, effort, middleware.GetRequestID(r.Context()))
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, taskID string, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, "task", taskID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), nil, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, timetrack.ErrTaskNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "task not found", reqID)
	case errors.Is(err, timetrack.ErrTimerRunning), errors.Is(err, timetrack.ErrTimerNotRunning), errors.Is(err, timetrack.ErrTimerIdle):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), reqID)
	case errors.Is(err, timetrack.ErrInvalidMinutes):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "minutes", Reason: err.Error()}})
	case errors.Is(err, timetrack.ErrNegativeDuration), errors.Is(err, timetrack.ErrEmptyDuration):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "hours", Reason: err.Error()}})
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

package compensationhandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/audit"
	"opscore/internal/domain/auth"
	"opscore/internal/domain/compensation"
	"opscore/internal/domain/core"
	"opscore/internal/transport/http/api"
	"opscore/internal/transport/http/middleware"
	"opscore/internal/transport/http/shared"
)

type Handler struct {
	Service *compensation.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
	// PeriodLimit guards the all-employee computation; nil means unlimited.
	PeriodLimit func(http.Handler) http.Handler
}

func NewHandler(service *compensation.Service, perms middleware.PermissionStore, auditSvc audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermCompensationRead, h.Perms)
	write := middleware.RequirePermission(auth.PermCompensationWrite, h.Perms)

	r.Route("/compensation", func(r chi.Router) {
		r.With(read).Get("/policies/{employeeID}", h.handleGetPolicy)
		r.With(write).Put("/policies/{employeeID}", h.handleUpsertPolicy)
		r.With(read).Get("/adjustments", h.handleListAdjustments)
		r.With(write).Post("/adjustments", h.handleCreateAdjustment)
		r.With(write).Delete("/adjustments/{adjustmentID}", h.handleDeleteAdjustment)
		r.With(read).Get("/payable/{employeeID}", h.handlePayable)
		r.With(read).Get("/payable/{employeeID}/statement", h.handleStatement)
		period := r.With(read)
		if h.PeriodLimit != nil {
			period = period.With(h.PeriodLimit)
		}
		period.Get("/payable", h.handlePeriod)
	})
}

func (h *Handler) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	if !allowEmployee(w, r, user, employeeID) {
		return
	}
	policy, err := h.Service.GetPolicy(r.Context(), employeeID)
	if err != nil {
		h.fail(w, r, err, "policy_lookup_failed", "failed to load salary policy")
		return
	}
	api.Success(w, policy, middleware.GetRequestID(r.Context()))
}

type ratesPayload struct {
	PerDayRate        decimal.Decimal `json:"perDayRate"`
	HourlyRate        decimal.Decimal `json:"hourlyRate"`
	MonthlySalary     decimal.Decimal `json:"monthlySalary"`
	PerMinuteLateRate decimal.Decimal `json:"perMinuteLateRate"`
}

type policyPayload struct {
	SalaryType         string       `json:"salaryType" validate:"required,oneof=per_day per_hour fixed_monthly"`
	Rates              ratesPayload `json:"rates"`
	LatePenaltyEnabled bool         `json:"latePenaltyEnabled"`
}

func (h *Handler) handleUpsertPolicy(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload policyPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	payload.SalaryType = strings.ToLower(strings.TrimSpace(payload.SalaryType))
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	before, saved, err := h.Service.UpsertPolicy(r.Context(), compensation.Policy{
		EmployeeID: employeeID,
		SalaryType: payload.SalaryType,
		Rates: compensation.Rates{
			PerDay:           payload.Rates.PerDayRate,
			Hourly:           payload.Rates.HourlyRate,
			Monthly:          payload.Rates.MonthlySalary,
			PerMinutePenalty: payload.Rates.PerMinuteLateRate,
		},
		LatePenaltyEnabled: payload.LatePenaltyEnabled,
		UpdatedBy:          user.UserID,
	})
	if err != nil {
		h.fail(w, r, err, "policy_save_failed", "failed to save salary policy")
		return
	}
	var beforeSnapshot any
	if before != nil {
		beforeSnapshot = before
	}
	h.recordAudit(r, user, "compensation.policy.upsert", "salary_policy", employeeID, beforeSnapshot, saved)
	api.Success(w, saved, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	v := shared.NewValidator()
	v.Required("employeeId", employeeID, "is required")
	v.Required("period", period, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if !allowEmployee(w, r, user, employeeID) {
		return
	}
	out, err := h.Service.ListAdjustments(r.Context(), employeeID, period)
	if err != nil {
		h.fail(w, r, err, "adjustment_list_failed", "failed to list adjustments")
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

type adjustmentPayload struct {
	EmployeeID string          `json:"employeeId" validate:"required"`
	Period     string          `json:"period" validate:"required"`
	Type       string          `json:"type" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason" validate:"max=500"`
}

func (h *Handler) handleCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload adjustmentPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Service.CreateAdjustment(r.Context(), compensation.AdjustmentInput{
		EmployeeID: strings.TrimSpace(payload.EmployeeID),
		Period:     strings.TrimSpace(payload.Period),
		Type:       payload.Type,
		Amount:     payload.Amount,
		Reason:     payload.Reason,
		AddedBy:    user.UserID,
	})
	if err != nil {
		h.fail(w, r, err, "adjustment_create_failed", "failed to create adjustment")
		return
	}
	h.recordAudit(r, user, "compensation.adjustment.create", "salary_adjustment", created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteAdjustment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	removed, err := h.Service.DeleteAdjustment(r.Context(), chi.URLParam(r, "adjustmentID"))
	if err != nil {
		h.fail(w, r, err, "adjustment_delete_failed", "failed to delete adjustment")
		return
	}
	h.recordAudit(r, user, "compensation.adjustment.delete", "salary_adjustment", removed.ID, nil, removed)
	api.Success(w, removed, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePayable(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	period, ok := requirePeriod(w, r)
	if !ok || !allowEmployee(w, r, user, employeeID) {
		return
	}
	payable, err := h.Service.ComputePayable(r.Context(), employeeID, period)
	if err != nil {
		h.fail(w, r, err, "payable_failed", "failed to compute payable")
		return
	}
	api.Success(w, payable, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleStatement(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := chi.URLParam(r, "employeeID")
	period, ok := requirePeriod(w, r)
	if !ok || !allowEmployee(w, r, user, employeeID) {
		return
	}
	_, body, err := h.Service.Statement(r.Context(), employeeID, period)
	if err != nil {
		h.fail(w, r, err, "statement_failed", "failed to render statement")
		return
	}
	api.Attachment(w, "payable-"+employeeID+"-"+period+".pdf", "application/pdf", body)
}

func (h *Handler) handlePeriod(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	period, ok := requirePeriod(w, r)
	if !ok {
		return
	}
	run, err := h.Service.ComputePeriod(r.Context(), user.UserID, period)
	if err != nil {
		h.fail(w, r, err, "payable_run_failed", "failed to compute period payables")
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func requirePeriod(w http.ResponseWriter, r *http.Request) (string, bool) {
	period := strings.TrimSpace(r.URL.Query().Get("period"))
	v := shared.NewValidator()
	v.Required("period", period, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return "", false
	}
	return period, true
}

func allowEmployee(w http.ResponseWriter, r *http.Request, user auth.UserContext, employeeID string) bool {
	if core.CanAccessEmployee(user, employeeID) {
		return true
	}
	api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to access this employee", middleware.GetRequestID(r.Context()))
	return false
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	issue := func(field string) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: field, Reason: err.Error()}})
	}
	switch {
	case errors.Is(err, compensation.ErrNoSalaryPolicy):
		api.Fail(w, http.StatusUnprocessableEntity, "salary_policy_missing", "employee has no salary policy", reqID)
	case errors.Is(err, compensation.ErrAdjustmentNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "salary adjustment not found", reqID)
	case errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.Is(err, attendance.ErrInvalidMonth):
		issue("period")
	case errors.Is(err, compensation.ErrInvalidAdjustment):
		issue("type")
	case errors.Is(err, compensation.ErrNonPositiveAmount):
		issue("amount")
	case errors.Is(err, compensation.ErrInvalidSalaryType):
		issue("salaryType")
	case errors.Is(err, compensation.ErrNegativeRate):
		issue("rates")
	case errors.Is(err, compensation.ErrEmployeeRequired):
		issue("employeeId")
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

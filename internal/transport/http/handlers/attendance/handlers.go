package attendancehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/audit"
	"opscore/internal/domain/auth"
	"opscore/internal/domain/core"
	"opscore/internal/domain/leave"
	"opscore/internal/transport/http/api"
	"opscore/internal/transport/http/middleware"
	"opscore/internal/transport/http/shared"
)

type EmployeeGetter interface {
	GetEmployee(ctx context.Context, employeeID string) (core.Employee, error)
}

type Handler struct {
	Service   *attendance.Service
	Holidays  *leave.Service
	Employees EmployeeGetter
	Perms     middleware.PermissionStore
	Audit     audit.Recorder
}

func NewHandler(service *attendance.Service, holidays *leave.Service, employees EmployeeGetter, perms middleware.PermissionStore, auditSvc audit.Recorder) *Handler {
	return &Handler{Service: service, Holidays: holidays, Employees: employees, Perms: perms, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/attendance/resolve", h.handleResolve)
	r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/attendance/records", h.handleListRecords)
	r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Post("/attendance/records", h.handleUpsertRecord)
	r.With(middleware.RequirePermission(auth.PermAttendanceWrite, h.Perms)).Put("/attendance/records/{recordID}", h.handleUpdateRecord)
	r.With(middleware.RequirePermission(auth.PermAttendanceDelete, h.Perms)).Delete("/attendance/records/{recordID}", h.handleDeleteRecord)
	r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/attendance/grace", h.handleGetGrace)
	r.With(middleware.RequirePermission(auth.PermAttendanceGrace, h.Perms)).Put("/attendance/grace", h.handleSetGrace)
	r.With(middleware.RequirePermission(auth.PermAttendanceGrace, h.Perms)).Delete("/attendance/grace", h.handleClearGrace)
	r.With(middleware.RequirePermission(auth.PermAttendanceRead, h.Perms)).Get("/attendance/holidays", h.handleListHolidays)
	r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Post("/attendance/holidays", h.handleCreateHoliday)
	r.With(middleware.RequirePermission(auth.PermHolidaysWrite, h.Perms)).Delete("/attendance/holidays/{holidayID}", h.handleDeleteHoliday)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	query := r.URL.Query()
	employeeID := strings.TrimSpace(query.Get("employeeId"))
	v := shared.NewValidator()
	v.Required("employeeId", employeeID, "is required")

	var from, to time.Time
	if raw := query.Get("date"); raw != "" {
		if day, ok := v.Date("date", raw); ok {
			from, to = day, day
		}
	} else {
		from, _ = v.Date("from", query.Get("from"))
		to, _ = v.Date("to", query.Get("to"))
		v.DateOrder("from", from, "to", to)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if !h.allowEmployee(w, r, user, employeeID) {
		return
	}

	days, err := h.Service.ResolveRange(r.Context(), employeeID, from, to)
	if err != nil {
		h.fail(w, r, err, "attendance_resolve_failed", "failed to resolve attendance")
		return
	}
	if query.Get("date") != "" {
		api.Success(w, days[0], middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, days, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	v := shared.NewValidator()
	v.Required("employeeId", employeeID, "is required")
	v.Required("month", month, "is required")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if !h.allowEmployee(w, r, user, employeeID) {
		return
	}

	records, err := h.Service.ListRecords(r.Context(), employeeID, month)
	if err != nil {
		h.fail(w, r, err, "attendance_list_failed", "failed to list attendance records")
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

type recordPayload struct {
	EmployeeID      string           `json:"employeeId" validate:"required"`
	Date            string           `json:"date" validate:"required"`
	Status          string           `json:"status" validate:"required"`
	CheckInTime     string           `json:"checkInTime"`
	CheckOutTime    string           `json:"checkOutTime"`
	TotalHours      *decimal.Decimal `json:"totalHours"`
	IsLate          bool             `json:"isLate"`
	IsEarlyCheckout bool             `json:"isEarlyCheckout"`
	Notes           string           `json:"notes" validate:"max=2000"`
}

func (h *Handler) handleUpsertRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload recordPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	status := strings.ToLower(strings.TrimSpace(payload.Status))
	if status != "" && !attendance.ValidStatus(status) {
		v.Add("status", "is not a known attendance status")
	}
	var day time.Time
	if payload.Date != "" {
		day, _ = v.Date("date", payload.Date)
	}
	checkIn := parseTimestamp(v, "checkInTime", payload.CheckInTime)
	checkOut := parseTimestamp(v, "checkOutTime", payload.CheckOutTime)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	if !h.employeeExists(w, r, payload.EmployeeID) {
		return
	}

	saved, err := h.Service.Upsert(r.Context(), attendance.RecordInput{
		EmployeeID:      strings.TrimSpace(payload.EmployeeID),
		Date:            day,
		Status:          status,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		TotalHours:      payload.TotalHours,
		IsLate:          payload.IsLate,
		IsEarlyCheckout: payload.IsEarlyCheckout,
		Notes:           payload.Notes,
		Source:          attendance.SourceManual,
	})
	if err != nil {
		h.fail(w, r, err, "attendance_upsert_failed", "failed to save attendance record")
		return
	}
	h.recordAudit(r, user, "attendance.record.upsert", "attendance_record", saved.ID, nil, saved)
	api.Success(w, saved, middleware.GetRequestID(r.Context()))
}

type recordPatchPayload struct {
	Status          string           `json:"status" validate:"required"`
	CheckInTime     *string          `json:"checkInTime"`
	CheckOutTime    *string          `json:"checkOutTime"`
	TotalHours      *decimal.Decimal `json:"totalHours"`
	IsLate          *bool            `json:"isLate"`
	IsEarlyCheckout *bool            `json:"isEarlyCheckout"`
	Notes           *string          `json:"notes"`
}

func (h *Handler) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload recordPatchPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	status := strings.ToLower(strings.TrimSpace(payload.Status))
	if status != "" && !attendance.ValidStatus(status) {
		v.Add("status", "is not a known attendance status")
	}
	patch := attendance.RecordPatch{
		Status:          status,
		TotalHours:      payload.TotalHours,
		IsLate:          payload.IsLate,
		IsEarlyCheckout: payload.IsEarlyCheckout,
		Notes:           payload.Notes,
	}
	if payload.CheckInTime != nil {
		patch.CheckIn = parseTimestamp(v, "checkInTime", *payload.CheckInTime)
	}
	if payload.CheckOutTime != nil {
		patch.CheckOut = parseTimestamp(v, "checkOutTime", *payload.CheckOutTime)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, after, err := h.Service.Update(r.Context(), chi.URLParam(r, "recordID"), patch)
	if err != nil {
		h.fail(w, r, err, "attendance_update_failed", "failed to update attendance record")
		return
	}
	h.recordAudit(r, user, "attendance.record.update", "attendance_record", after.ID, before, after)
	api.Success(w, after, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	removed, err := h.Service.DeleteRecord(r.Context(), chi.URLParam(r, "recordID"))
	if err != nil {
		h.fail(w, r, err, "attendance_delete_failed", "failed to delete attendance record")
		return
	}
	h.recordAudit(r, user, "attendance.record.delete", "attendance_record", removed.ID, removed, nil)
	api.Success(w, map[string]string{"id": removed.ID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetGrace(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	day, _ := v.Date("date", r.URL.Query().Get("date"))
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	status, err := h.Service.GetGrace(r.Context(), day)
	if err != nil {
		h.fail(w, r, err, "grace_lookup_failed", "failed to load grace period")
		return
	}
	api.Success(w, status, middleware.GetRequestID(r.Context()))
}

type gracePayload struct {
	Date    string `json:"date" validate:"required"`
	Minutes int    `json:"minutes" validate:"gte=1,lte=720"`
	Reason  string `json:"reason" validate:"max=500"`
}

func (h *Handler) handleSetGrace(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload gracePayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	var day time.Time
	if payload.Date != "" {
		day, _ = v.Date("date", payload.Date)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	before, err := h.Service.GetGrace(r.Context(), day)
	if err != nil {
		h.fail(w, r, err, "grace_lookup_failed", "failed to load grace period")
		return
	}
	saved, err := h.Service.SetGrace(r.Context(), day, payload.Minutes, payload.Reason, user.UserID)
	if err != nil {
		h.fail(w, r, err, "grace_set_failed", "failed to set grace period")
		return
	}
	h.recordAudit(r, user, "attendance.grace.set", "grace_period", saved.Date, before, saved)
	api.Success(w, saved, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClearGrace(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	day, _ := v.Date("date", r.URL.Query().Get("date"))
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	before, err := h.Service.GetGrace(r.Context(), day)
	if err != nil {
		h.fail(w, r, err, "grace_lookup_failed", "failed to load grace period")
		return
	}
	if err := h.Service.ClearGrace(r.Context(), day); err != nil {
		h.fail(w, r, err, "grace_clear_failed", "failed to clear grace period")
		return
	}
	h.recordAudit(r, user, "attendance.grace.clear", "grace_period", before.Date, before, nil)
	api.Success(w, attendance.GraceStatus{Date: before.Date}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListHolidays(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	v := shared.NewValidator()
	var from, to time.Time
	if query.Get("from") == "" && query.Get("to") == "" {
		raw := query.Get("year")
		if raw == "" {
			raw = time.Now().Format("2006")
		}
		year, err := time.Parse("2006", raw)
		if err != nil {
			v.Add("year", "must be YYYY")
		} else {
			from = year
			to = year.AddDate(1, 0, -1)
		}
	} else {
		from, _ = v.Date("from", query.Get("from"))
		to, _ = v.Date("to", query.Get("to"))
		v.DateOrder("from", from, "to", to)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	holidays, err := h.Holidays.ListHolidays(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err, "holiday_list_failed", "failed to list holidays")
		return
	}
	api.Success(w, holidays, middleware.GetRequestID(r.Context()))
}

type holidayPayload struct {
	Date string `json:"date" validate:"required"`
	Name string `json:"name" validate:"required,max=200"`
}

func (h *Handler) handleCreateHoliday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	var payload holidayPayload
	if err := shared.DecodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	var day time.Time
	if payload.Date != "" {
		day, _ = v.Date("date", payload.Date)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	created, err := h.Holidays.CreateHoliday(r.Context(), day, payload.Name)
	if err != nil {
		h.fail(w, r, err, "holiday_create_failed", "failed to create holiday")
		return
	}
	h.recordAudit(r, user, "attendance.holiday.create", "holiday", created.ID, nil, created)
	api.Created(w, created, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteHoliday(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	removed, err := h.Holidays.DeleteHoliday(r.Context(), chi.URLParam(r, "holidayID"))
	if err != nil {
		h.fail(w, r, err, "holiday_delete_failed", "failed to delete holiday")
		return
	}
	h.recordAudit(r, user, "attendance.holiday.delete", "holiday", removed.ID, removed, nil)
	api.Success(w, map[string]string{"id": removed.ID}, middleware.GetRequestID(r.Context()))
}

func parseTimestamp(v *shared.Validator, field, raw string) *time.Time {
	parsed, err := shared.ParseTimestamp(raw)
	if err != nil {
		v.Add(field, "must be an RFC3339 timestamp")
		return nil
	}
	return parsed
}

func (h *Handler) allowEmployee(w http.ResponseWriter, r *http.Request, user auth.UserContext, employeeID string) bool {
	if !core.CanAccessEmployee(user, employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to access this employee", middleware.GetRequestID(r.Context()))
		return false
	}
	return h.employeeExists(w, r, employeeID)
}

func (h *Handler) employeeExists(w http.ResponseWriter, r *http.Request, employeeID string) bool {
	if h.Employees == nil {
		return true
	}
	if _, err := h.Employees.GetEmployee(r.Context(), strings.TrimSpace(employeeID)); err != nil {
		h.fail(w, r, err, "employee_lookup_failed", "failed to load employee")
		return false
	}
	return true
}

func (h *Handler) recordAudit(r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), user.UserID, action, entityType, entityID, middleware.GetRequestID(r.Context()), shared.ClientIP(r), before, after); err != nil {
		slog.Warn("audit "+action+" failed", "err", err)
	}
}

var validationFields = map[error]string{
	attendance.ErrEmployeeRequired: "employeeId",
	attendance.ErrDateRequired:     "date",
	attendance.ErrStatusRequired:   "status",
	attendance.ErrInvalidStatus:    "status",
	attendance.ErrInvalidTimes:     "checkOutTime",
	attendance.ErrInvalidRange:     "to",
	attendance.ErrInvalidMonth:     "month",
	attendance.ErrInvalidGrace:     "minutes",
	leave.ErrInvalidHoliday:        "name",
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	for target, field := range validationFields {
		if errors.Is(err, target) {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: field, Reason: target.Error()}})
			return
		}
	}
	switch {
	case errors.Is(err, attendance.ErrRangeTooLarge):
		api.Fail(w, http.StatusBadRequest, "range_too_large", err.Error(), reqID)
	case errors.Is(err, attendance.ErrRecordNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "attendance record not found", reqID)
	case errors.Is(err, attendance.ErrGraceNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "no grace period for date", reqID)
	case errors.Is(err, leave.ErrHolidayNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "holiday not found", reqID)
	case errors.Is(err, core.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.Is(err, leave.ErrHolidayExists):
		api.Fail(w, http.StatusConflict, "holiday_exists", "holiday already exists for date", reqID)
	default:
		slog.Error(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

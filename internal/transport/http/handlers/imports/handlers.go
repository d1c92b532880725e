package importhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/audit"
	"opscore/internal/domain/auth"
	"opscore/internal/domain/bulkimport"
	"opscore/internal/transport/http/api"
	"opscore/internal/transport/http/middleware"
	"opscore/internal/transport/http/shared"
)

const (
	importEndpoint      = "/attendance/import"
	multipartMemory     = 4 << 20
	idempotencyHeader   = "Idempotency-Key"
	maxIdempotencyKeyLn = 200
)

type IdempotencyStore interface {
	Check(ctx context.Context, userID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, userID, endpoint, key, requestHash string, response any) error
}

type Handler struct {
	Service     *bulkimport.Service
	Perms       middleware.PermissionStore
	Audit       audit.Recorder
	Idempotency IdempotencyStore
}

func NewHandler(service *bulkimport.Service, perms middleware.PermissionStore, auditSvc audit.Recorder, idem IdempotencyStore) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermAttendanceImport, h.Perms)).Post(importEndpoint, h.handleImport)
	r.With(middleware.RequirePermission(auth.PermAttendanceImport, h.Perms)).Get(importEndpoint+"/template", h.handleTemplate)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	reqID := middleware.GetRequestID(r.Context())

	month := strings.TrimSpace(r.URL.Query().Get("month"))
	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	v := shared.NewValidator()
	v.Required("month", month, "is required")
	if len(key) > maxIdempotencyKeyLn {
		v.Add(idempotencyHeader, "is too long")
	}
	if v.Reject(w, reqID) {
		return
	}

	filename, body, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds size limit", reqID)
		case errors.Is(err, shared.ErrEmptyBody), errors.Is(err, http.ErrMissingFile):
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "file", Reason: "is required"}})
		default:
			api.Fail(w, http.StatusBadRequest, "invalid_payload", "could not read upload", reqID)
		}
		return
	}

	hash := middleware.RequestHash([]byte(month), []byte(filename), body)
	if key != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.UserID, importEndpoint, key, hash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), reqID)
			return
		}
		if err != nil {
			slog.Error("idempotency check failed", "err", err, "requestId", reqID)
			api.Fail(w, http.StatusInternalServerError, "idempotency_failed", "failed to check idempotency key", reqID)
			return
		}
		if found {
			var replay bulkimport.Result
			if err := json.Unmarshal(stored, &replay); err == nil {
				w.Header().Set("Idempotent-Replay", "true")
				api.Success(w, replay, reqID)
				return
			}
		}
	}

	result, err := h.Service.Import(r.Context(), user.UserID, month, filename, bytes.NewReader(body))
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidMonth):
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "month", Reason: err.Error()}})
		case errors.Is(err, bulkimport.ErrInvalidTable):
			api.Fail(w, http.StatusBadRequest, "invalid_table", err.Error(), reqID)
		default:
			slog.Error("attendance import failed", "err", err, "requestId", reqID)
			api.Fail(w, http.StatusInternalServerError, "import_failed", "failed to import attendance", reqID)
		}
		return
	}

	if key != "" && h.Idempotency != nil {
		if err := h.Idempotency.Save(r.Context(), user.UserID, importEndpoint, key, hash, result); err != nil {
			slog.Warn("idempotency save failed", "err", err, "requestId", reqID)
		}
	}
	if h.Audit != nil {
		summary := map[string]any{
			"month":        month,
			"file":         filename,
			"successCount": result.SuccessCount,
			"errorCount":   result.ErrorCount,
		}
		if err := h.Audit.Record(r.Context(), user.UserID, "attendance.import", "attendance_import", month, reqID, shared.ClientIP(r), nil, summary); err != nil {
			slog.Warn("audit attendance.import failed", "err", err)
		}
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	v := shared.NewValidator()
	v.Required("month", month, "is required")
	if v.Reject(w, reqID) {
		return
	}

	tpl, err := h.Service.Template(r.Context(), month, r.URL.Query().Get("format"))
	if err != nil {
		switch {
		case errors.Is(err, attendance.ErrInvalidMonth):
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "month", Reason: err.Error()}})
		case errors.Is(err, bulkimport.ErrUnsupportedFormat):
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "format", Reason: "must be csv or xlsx"}})
		default:
			slog.Error("template build failed", "err", err, "requestId", reqID)
			api.Fail(w, http.StatusInternalServerError, "template_failed", "failed to build template", reqID)
		}
		return
	}
	api.Attachment(w, tpl.Filename, tpl.ContentType, tpl.Body)
}

// readUpload accepts a multipart "file" part or the raw request body. For raw bodies
// the format comes from ?filename= or the Content-Type.
func readUpload(r *http.Request) (string, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return "", nil, err
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, err
		}
		defer file.Close()
		body, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		if len(body) == 0 {
			return "", nil, shared.ErrEmptyBody
		}
		return filepath.Base(header.Filename), body, nil
	}

	if r.Body == nil {
		return "", nil, shared.ErrEmptyBody
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	if len(body) == 0 {
		return "", nil, shared.ErrEmptyBody
	}
	filename := filepath.Base(strings.TrimSpace(r.URL.Query().Get("filename")))
	if filename == "" || filename == "." || filename == "/" {
		filename = "upload" + extensionFor(mediaType)
	}
	return filename, body, nil
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx"
	case "application/vnd.ms-excel":
		return ".xls"
	case "text/tab-separated-values":
		return ".tsv"
	default:
		return ".csv"
	}
}

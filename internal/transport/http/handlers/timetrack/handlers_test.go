package timetrackhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"opscore/internal/domain/auth"
	"opscore/internal/domain/timetrack"
	"opscore/internal/transport/http/middleware"
)

type memoryStore struct {
	tasks    map[string]timetrack.Task
	sessions map[string]timetrack.Session
}

func (m *memoryStore) GetTask(_ context.Context, taskID string) (timetrack.Task, error) {
	t, ok := m.tasks[taskID]
	if !ok {
		return timetrack.Task{}, timetrack.ErrTaskNotFound
	}
	return t, nil
}

func (m *memoryStore) ListSubtasks(_ context.Context, parentID string) ([]timetrack.Task, error) {
	var out []timetrack.Task
	for _, t := range m.tasks {
		if t.ParentID == parentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) GetSession(_ context.Context, taskID, holderID string) (timetrack.Session, error) {
	s, ok := m.sessions[taskID+"/"+holderID]
	if !ok {
		return timetrack.Session{TaskID: taskID, HolderID: holderID, State: timetrack.StateIdle}, nil
	}
	return s, nil
}

func (m *memoryStore) SaveSession(_ context.Context, session timetrack.Session) (timetrack.Session, error) {
	m.sessions[session.TaskID+"/"+session.HolderID] = session
	return session, nil
}

func (m *memoryStore) AddActualHours(_ context.Context, taskID string, hours decimal.Decimal) (timetrack.Task, error) {
	t, ok := m.tasks[taskID]
	if !ok {
		return timetrack.Task{}, timetrack.ErrTaskNotFound
	}
	t.ActualHours = t.ActualHours.Add(hours)
	m.tasks[taskID] = t
	return t, nil
}

func (m *memoryStore) WithTx(_ context.Context, fn func(timetrack.StoreAPI) error) error {
	return fn(m)
}

func (m *memoryStore) AddTrackedMinutes(_ context.Context, taskID string, minutes int) (timetrack.Task, error) {
	t, ok := m.tasks[taskID]
	if !ok {
		return timetrack.Task{}, timetrack.ErrTaskNotFound
	}
	t.TrackedMinutes += minutes
	m.tasks[taskID] = t
	return t, nil
}

type allowAll struct{}

func (allowAll) HasPermission(context.Context, string, string) (bool, error) { return true, nil }

type fixture struct {
	router http.Handler
	store  *memoryStore
	now    *time.Time
}

func newFixture() fixture {
	store := &memoryStore{
		tasks: map[string]timetrack.Task{
			"t1": {ID: "t1", Title: "Migrate ledger", EstimatedHours: decimal.NewFromInt(4)},
		},
		sessions: map[string]timetrack.Session{},
	}
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	svc := timetrack.NewService(store)
	svc.Now = func() time.Time { return now }
	h := NewHandler(svc, allowAll{}, nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return fixture{router: r, store: store, now: &now}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{UserID: "u1", RoleName: auth.RoleEmployee}))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestTimerStartStopCommitsHours(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodPost, "/tasks/t1/timer/start", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d: %s", rec.Code, rec.Body.String())
	}
	*f.now = f.now.Add(90 * time.Second)

	rec := f.do(t, http.MethodPost, "/tasks/t1/timer/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on stop, got %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data timetrack.StopResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Seconds != 90 || env.Data.Hours.StringFixed(2) != "0.03" || !env.Data.Committed {
		t.Fatalf("unexpected stop result %+v", env.Data)
	}
	if got := f.store.tasks["t1"].ActualHours.StringFixed(2); got != "0.03" {
		t.Fatalf("expected 0.03 actual hours, got %s", got)
	}
}

func TestTimerStopWithoutCommitDiscards(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/tasks/t1/timer/start", "")
	*f.now = f.now.Add(10 * time.Minute)
	rec := f.do(t, http.MethodPost, "/tasks/t1/timer/stop", `{"commit":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !f.store.tasks["t1"].ActualHours.IsZero() {
		t.Fatalf("expected no committed hours, got %s", f.store.tasks["t1"].ActualHours)
	}
}

func TestTimerInvalidTransitionConflicts(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodPost, "/tasks/t1/timer/pause", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 pausing an idle timer, got %d", rec.Code)
	}
	f.do(t, http.MethodPost, "/tasks/t1/timer/start", "")
	if rec := f.do(t, http.MethodPost, "/tasks/t1/timer/start", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 starting a running timer, got %d", rec.Code)
	}
}

func TestTimerUnknownTask(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodGet, "/tasks/nope/timer", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLogTimeManualAndFractional(t *testing.T) {
	f := newFixture()
	if rec := f.do(t, http.MethodPost, "/tasks/t1/time", `{"hours":1,"minutes":30}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec := f.do(t, http.MethodPost, "/tasks/t1/time", `{"hours":"0.25"}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := f.store.tasks["t1"].ActualHours.StringFixed(2); got != "1.75" {
		t.Fatalf("expected 1.75 hours, got %s", got)
	}

	if rec := f.do(t, http.MethodPost, "/tasks/t1/time", `{"hours":1,"minutes":75}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for 75 minutes, got %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/tasks/t1/time", `{"hours":-1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative hours, got %d", rec.Code)
	}
}

func TestEffortReportsProgress(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodPost, "/tasks/t1/time", `{"hours":2}`)
	rec := f.do(t, http.MethodGet, "/tasks/t1/effort", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env struct {
		Data timetrack.Effort `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Progress == nil || *env.Data.Progress != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", env.Data.Progress)
	}
}

package timetrack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	tasks     map[string]Task
	sessions  map[string]Session
	saves     int
	commitErr error
}

func newMemoryStore(tasks ...Task) *memoryStore {
	m := &memoryStore{tasks: map[string]Task{}, sessions: map[string]Session{}}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *memoryStore) GetTask(_ context.Context, taskID string) (Task, error) {
	t, ok := m.tasks[taskID]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return t, nil
}

func (m *memoryStore) ListSubtasks(_ context.Context, parentID string) ([]Task, error) {
	var out []Task
	for _, t := range m.tasks {
		if t.ParentID == parentID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryStore) GetSession(_ context.Context, taskID, holderID string) (Session, error) {
	s, ok := m.sessions[taskID+"/"+holderID]
	if !ok {
		return Session{TaskID: taskID, HolderID: holderID, State: StateIdle}, nil
	}
	return s, nil
}

func (m *memoryStore) SaveSession(_ context.Context, session Session) (Session, error) {
	m.saves++
	m.sessions[session.TaskID+"/"+session.HolderID] = session
	return session, nil
}

func (m *memoryStore) AddActualHours(_ context.Context, taskID string, hours decimal.Decimal) (Task, error) {
	if m.commitErr != nil {
		return Task{}, m.commitErr
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	t.ActualHours = t.ActualHours.Add(hours)
	m.tasks[taskID] = t
	return t, nil
}

func (m *memoryStore) AddTrackedMinutes(_ context.Context, taskID string, minutes int) (Task, error) {
	if m.commitErr != nil {
		return Task{}, m.commitErr
	}
	t, ok := m.tasks[taskID]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	t.TrackedMinutes += minutes
	m.tasks[taskID] = t
	return t, nil
}

// WithTx restores both maps when fn fails, like a rolled back transaction.
func (m *memoryStore) WithTx(_ context.Context, fn func(StoreAPI) error) error {
	tasks := make(map[string]Task, len(m.tasks))
	for k, v := range m.tasks {
		tasks[k] = v
	}
	sessions := make(map[string]Session, len(m.sessions))
	for k, v := range m.sessions {
		sessions[k] = v
	}
	if err := fn(m); err != nil {
		m.tasks, m.sessions = tasks, sessions
		return err
	}
	return nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newClockedService(store StoreAPI, clock *fakeClock) *Service {
	svc := NewService(store)
	svc.Now = clock.Now
	return svc
}

func TestTimerSurvivesRestart(t *testing.T) {
	store := newMemoryStore(Task{ID: "t1"})
	clock := &fakeClock{now: t0}
	ctx := context.Background()

	if _, err := newClockedService(store, clock).Start(ctx, "t1", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A fresh service over the same records stands in for a process restart.
	clock.now = t0.Add(40 * time.Second)
	view, err := newClockedService(store, clock).Timer(ctx, "t1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.State != StateRunning || view.ElapsedSeconds != 40 {
		t.Fatalf("expected 40 running seconds after restart, got %+v", view)
	}
	if view.ElapsedHours.String() != "0.01" {
		t.Fatalf("expected 0.01 hours, got %s", view.ElapsedHours)
	}
}

func TestStopCommitsHoursForTopLevelTask(t *testing.T) {
	store := newMemoryStore(Task{ID: "t1", ActualHours: decimal.NewFromInt(1)})
	clock := &fakeClock{now: t0}
	svc := newClockedService(store, clock)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "t1", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = t0.Add(90 * time.Second)
	result, err := svc.Stop(ctx, "t1", "u1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Hours.String() != "0.03" || !result.Committed {
		t.Fatalf("expected committed 0.03 hours, got %+v", result)
	}
	if store.tasks["t1"].ActualHours.String() != "1.03" {
		t.Fatalf("expected actual hours 1.03, got %s", store.tasks["t1"].ActualHours)
	}
	if result.Session.State != StateIdle {
		t.Fatalf("expected idle session, got %s", result.Session.State)
	}
}

func TestStopCommitsMinutesForSubtask(t *testing.T) {
	store := newMemoryStore(Task{ID: "parent"}, Task{ID: "sub", ParentID: "parent", TrackedMinutes: 10})
	clock := &fakeClock{now: t0}
	svc := newClockedService(store, clock)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "sub", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = t0.Add(5 * time.Minute)
	if _, err := svc.Pause(ctx, "sub", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = t0.Add(20 * time.Minute)
	if _, err := svc.Start(ctx, "sub", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = t0.Add(30 * time.Minute)
	result, err := svc.Stop(ctx, "sub", "u1", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Seconds != 900 {
		t.Fatalf("expected 900 seconds excluding the pause, got %d", result.Seconds)
	}
	if store.tasks["sub"].TrackedMinutes != 25 {
		t.Fatalf("expected 25 tracked minutes, got %d", store.tasks["sub"].TrackedMinutes)
	}

	effort, err := svc.Effort(ctx, "parent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if effort.SubtaskMinutes != 25 {
		t.Fatalf("expected parent to see 25 subtask minutes, got %d", effort.SubtaskMinutes)
	}
}

func TestStopWithoutCommitDiscards(t *testing.T) {
	store := newMemoryStore(Task{ID: "t1"})
	clock := &fakeClock{now: t0}
	svc := newClockedService(store, clock)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "t1", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = t0.Add(time.Hour)
	result, err := svc.Stop(ctx, "t1", "u1", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Committed || result.Hours.String() != "1" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !store.tasks["t1"].ActualHours.IsZero() {
		t.Fatalf("expected no hours logged, got %s", store.tasks["t1"].ActualHours)
	}
}

func TestServiceTransitionErrors(t *testing.T) {
	store := newMemoryStore(Task{ID: "t1"})
	svc := newClockedService(store, &fakeClock{now: t0})
	ctx := context.Background()

	if _, err := svc.Pause(ctx, "t1", "u1"); !errors.Is(err, ErrTimerNotRunning) {
		t.Fatalf("expected not running, got %v", err)
	}
	if _, err := svc.Stop(ctx, "t1", "u1", true); !errors.Is(err, ErrTimerIdle) {
		t.Fatalf("expected idle, got %v", err)
	}
	if _, err := svc.Start(ctx, "missing", "u1"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("expected task not found, got %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("expected no saves on failed transitions, got %d", store.saves)
	}
}

func TestLogManualLeavesTimerAlone(t *testing.T) {
	store := newMemoryStore(Task{ID: "t1"})
	clock := &fakeClock{now: t0}
	svc := newClockedService(store, clock)
	ctx := context.Background()

	if _, err := svc.Start(ctx, "t1", "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task, err := svc.LogManual(ctx, "t1", 2, 15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ActualHours.String() != "2.25" {
		t.Fatalf("expected 2.25 hours, got %s", task.ActualHours)
	}
	if store.sessions["t1/u1"].State != StateRunning {
		t.Fatal("expected timer to keep running")
	}
	if _, err := svc.LogTime(ctx, "t1", decimal.NewFromFloat(-0.5)); !errors.Is(err, ErrNegativeDuration) {
		t.Fatalf("expected negative duration, got %v", err)
	}
	task, err = svc.LogTime(ctx, "t1", decimal.NewFromFloat(0.755))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ActualHours.String() != "3.01" {
		t.Fatalf("expected 3.01 hours, got %s", task.ActualHours)
	}
}

func TestStopKeepsSessionWhenCommitFails(t *testing.T) {
	store := newMemoryStore(Task{ID: "t1"}, Task{ID: "sub", ParentID: "t1"})
	clock := &fakeClock{now: t0}
	svc := newClockedService(store, clock)
	ctx := context.Background()

	for _, taskID := range []string{"t1", "sub"} {
		if _, err := svc.Start(ctx, taskID, "u1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	clock.now = t0.Add(2 * time.Hour)

	store.commitErr = errors.New("db down")
	for _, taskID := range []string{"t1", "sub"} {
		if _, err := svc.Stop(ctx, taskID, "u1", true); err == nil {
			t.Fatalf("%s: expected commit error", taskID)
		}
		session := store.sessions[taskID+"/u1"]
		if session.State != StateRunning {
			t.Fatalf("%s: expected session still running, got %s", taskID, session.State)
		}
		if got := session.Elapsed(clock.now); got != 7200 {
			t.Fatalf("%s: expected 7200 elapsed seconds kept, got %d", taskID, got)
		}
	}

	store.commitErr = nil
	result, err := svc.Stop(ctx, "t1", "u1", true)
	if err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if !result.Committed || !store.tasks["t1"].ActualHours.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected 2 hours committed on retry, got %+v actual=%s", result, store.tasks["t1"].ActualHours)
	}
}

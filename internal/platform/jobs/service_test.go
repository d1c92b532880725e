package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type fakeRunStore struct {
	created   []string
	completed map[string]string
	details   map[string][]byte
	createErr error
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{completed: map[string]string{}, details: map[string][]byte{}}
}

func (f *fakeRunStore) CreateRun(ctx context.Context, jobType, actorID string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, jobType)
	return "run-1", nil
}

func (f *fakeRunStore) CompleteRun(ctx context.Context, runID, status string, detailsJSON []byte) error {
	f.completed[runID] = status
	f.details[runID] = detailsJSON
	return nil
}

func TestRunNowRecordsCompletion(t *testing.T) {
	store := newFakeRunStore()
	svc := New(store)

	out, err := svc.RunNow(context.Background(), JobAttendanceImport, "actor", func(ctx context.Context) (any, error) {
		return map[string]int{"successCount": 3}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.(map[string]int)["successCount"] != 3 {
		t.Fatalf("unexpected details: %v", out)
	}
	if store.completed["run-1"] != StatusCompleted {
		t.Fatalf("expected completed status, got %q", store.completed["run-1"])
	}
	var decoded map[string]int
	if err := json.Unmarshal(store.details["run-1"], &decoded); err != nil || decoded["successCount"] != 3 {
		t.Fatalf("unexpected stored details %s (%v)", store.details["run-1"], err)
	}
}

func TestRunNowRecordsFailure(t *testing.T) {
	store := newFakeRunStore()
	svc := New(store)
	boom := errors.New("boom")

	_, err := svc.RunNow(context.Background(), JobPayableRun, "actor", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if store.completed["run-1"] != StatusFailed {
		t.Fatalf("expected failed status, got %q", store.completed["run-1"])
	}
}

func TestRunNowSurvivesBookkeepingFailure(t *testing.T) {
	store := newFakeRunStore()
	store.createErr = errors.New("db down")
	svc := New(store)

	ran := false
	if _, err := svc.RunNow(context.Background(), JobAttendanceImport, "actor", func(ctx context.Context) (any, error) {
		ran = true
		return nil, nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected job to run without bookkeeping")
	}
}

package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"opscore/internal/platform/querier"
)

const (
	JobAttendanceImport = "attendance_import"
	JobPayableRun       = "payable_run"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunStore persists job run bookkeeping.
type RunStore interface {
	CreateRun(ctx context.Context, jobType, actorID string) (string, error)
	CompleteRun(ctx context.Context, runID, status string, detailsJSON []byte) error
}

// Service runs work synchronously on the caller's goroutine and records each run in job_runs.
// There is no queue or scheduler: callers own retries.
type Service struct {
	store RunStore
}

func New(store RunStore) *Service {
	return &Service{store: store}
}

func (s *Service) RunNow(ctx context.Context, jobType, actorID string, run func(context.Context) (any, error)) (any, error) {
	runID := ""
	if s != nil && s.store != nil {
		id, err := s.store.CreateRun(ctx, jobType, actorID)
		if err != nil {
			slog.Warn("job run insert failed", "jobType", jobType, "err", err)
		}
		runID = id
	}

	details, err := run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		details = map[string]any{"error": err.Error(), "details": details}
	}
	if runID == "" {
		return details, err
	}

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if updErr := s.store.CompleteRun(ctx, runID, status, detailsJSON); updErr != nil {
		slog.Warn("job run update failed", "runId", runID, "err", updErr)
	}
	return details, err
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateRun(ctx context.Context, jobType, actorID string) (string, error) {
	var runID string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status, actor_id)
    VALUES ($1,$2,$3)
    RETURNING id
  `, jobType, StatusRunning, actorID).Scan(&runID)
	return runID, err
}

func (s *Store) CompleteRun(ctx context.Context, runID, status string, detailsJSON []byte) error {
	if detailsJSON == nil {
		detailsJSON = []byte("{}")
	}
	_, err := s.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, detailsJSON, runID)
	return err
}

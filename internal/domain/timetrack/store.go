package timetrack

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"opscore/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WithTx opens a transaction on the pool, or a savepoint when DB is already a transaction.
func (s *Store) WithTx(ctx context.Context, fn func(StoreAPI) error) error {
	beginner, ok := s.DB.(txBeginner)
	if !ok {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, beginner, func(tx pgx.Tx) error {
		return fn(&Store{DB: tx})
	})
}

const taskColumns = "id, COALESCE(parent_id::text, ''), title, estimated_hours::text, actual_hours::text, tracked_minutes"

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	var estimated, actual string
	if err := row.Scan(&t.ID, &t.ParentID, &t.Title, &estimated, &actual, &t.TrackedMinutes); err != nil {
		return Task{}, err
	}
	var err error
	if t.EstimatedHours, err = decimal.NewFromString(estimated); err != nil {
		return Task{}, err
	}
	if t.ActualHours, err = decimal.NewFromString(actual); err != nil {
		return Task{}, err
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, taskID string) (Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", taskID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	return t, err
}

func (s *Store) ListSubtasks(ctx context.Context, parentID string) ([]Task, error) {
	rows, err := s.DB.Query(ctx, "SELECT "+taskColumns+" FROM tasks WHERE parent_id = $1 ORDER BY created_at", parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetSession returns an idle session when the holder has never used the timer.
func (s *Store) GetSession(ctx context.Context, taskID, holderID string) (Session, error) {
	session := Session{TaskID: taskID, HolderID: holderID}
	err := s.DB.QueryRow(ctx, `
    SELECT state, started_at, accumulated_seconds, updated_at
    FROM task_timers
    WHERE task_id = $1 AND holder_id = $2
  `, taskID, holderID).Scan(&session.State, &session.StartedAt, &session.AccumulatedSeconds, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		session.State = StateIdle
		return session, nil
	}
	return session, err
}

func (s *Store) SaveSession(ctx context.Context, session Session) (Session, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO task_timers (task_id, holder_id, state, started_at, accumulated_seconds, updated_at)
    VALUES ($1,$2,$3,$4,$5,now())
    ON CONFLICT (task_id, holder_id) DO UPDATE SET
      state = EXCLUDED.state,
      started_at = EXCLUDED.started_at,
      accumulated_seconds = EXCLUDED.accumulated_seconds,
      updated_at = now()
    RETURNING updated_at
  `, session.TaskID, session.HolderID, session.State, session.StartedAt, session.AccumulatedSeconds).Scan(&session.UpdatedAt)
	return session, err
}

func (s *Store) AddActualHours(ctx context.Context, taskID string, hours decimal.Decimal) (Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx, `
    UPDATE tasks SET actual_hours = actual_hours + $2::numeric
    WHERE id = $1
    RETURNING `+taskColumns, taskID, hours.StringFixed(2)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	return t, err
}

func (s *Store) AddTrackedMinutes(ctx context.Context, taskID string, minutes int) (Task, error) {
	t, err := scanTask(s.DB.QueryRow(ctx, `
    UPDATE tasks SET tracked_minutes = tracked_minutes + $2
    WHERE id = $1
    RETURNING `+taskColumns, taskID, minutes))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	return t, err
}

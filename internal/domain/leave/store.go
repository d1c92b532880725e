package leave

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"opscore/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, holiday_date, name, created_at
    FROM holidays
    WHERE holiday_date BETWEEN $1 AND $2
    ORDER BY holiday_date
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) CreateHoliday(ctx context.Context, date time.Time, name string) (Holiday, error) {
	var h Holiday
	err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (holiday_date, name)
    VALUES ($1,$2)
    RETURNING id, holiday_date, name, created_at
  `, date, name).Scan(&h.ID, &h.Date, &h.Name, &h.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Holiday{}, ErrHolidayExists
		}
		return Holiday{}, err
	}
	return h, nil
}

func (s *Store) DeleteHoliday(ctx context.Context, holidayID string) (Holiday, error) {
	var h Holiday
	err := s.DB.QueryRow(ctx, `
    DELETE FROM holidays WHERE id = $1
    RETURNING id, holiday_date, name, created_at
  `, holidayID).Scan(&h.ID, &h.Date, &h.Name, &h.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Holiday{}, ErrHolidayNotFound
	}
	return h, err
}

func (s *Store) ApprovedLeaves(ctx context.Context, employeeID string, from, to time.Time) ([]ApprovedLeave, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT lr.id, lr.employee_id, lt.code, lr.start_date, lr.end_date
    FROM leave_requests lr
    JOIN leave_types lt ON lt.id = lr.leave_type_id
    WHERE lr.employee_id = $1 AND lr.status = $2
      AND lr.start_date <= $4 AND lr.end_date >= $3
    ORDER BY lr.start_date, lr.id
  `, employeeID, RequestStatusApproved, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ApprovedLeave
	for rows.Next() {
		var l ApprovedLeave
		if err := rows.Scan(&l.ID, &l.Employee, &l.TypeCode, &l.StartDate, &l.EndDate); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

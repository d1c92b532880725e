package attendance

import (
	"context"
	"errors"
	"time"

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

const recordColumns = `id, employee_id, work_date, status, check_in_time, check_out_time,
           total_hours::text, is_late, is_early_checkout, notes, source, created_at, updated_at`

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var totalHours *string
	if err := row.Scan(&rec.ID, &rec.EmployeeID, &rec.WorkDate, &rec.Status, &rec.CheckIn, &rec.CheckOut,
		&totalHours, &rec.IsLate, &rec.IsEarlyCheckout, &rec.Notes, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	if totalHours != nil {
		hours, err := decimal.NewFromString(*totalHours)
		if err != nil {
			return Record{}, err
		}
		rec.TotalHours = &hours
	}
	return rec, nil
}

func hoursArg(hours *decimal.Decimal) any {
	if hours == nil {
		return nil
	}
	return hours.StringFixed(2)
}

func (s *Store) ListRecords(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records
    WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
    ORDER BY work_date
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    SELECT `+recordColumns+`
    FROM attendance_records
    WHERE id = $1
  `, recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

// UpsertRecord writes unconditionally on (employee_id, work_date). Timestamps and
// notes absent from the input keep their stored values.
func (s *Store) UpsertRecord(ctx context.Context, input RecordInput) (Record, error) {
	return scanRecord(s.DB.QueryRow(ctx, `
    INSERT INTO attendance_records (employee_id, work_date, status, check_in_time, check_out_time,
                                    total_hours, is_late, is_early_checkout, notes, source)
    VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10)
    ON CONFLICT (employee_id, work_date) DO UPDATE SET
      status = EXCLUDED.status,
      check_in_time = COALESCE(EXCLUDED.check_in_time, attendance_records.check_in_time),
      check_out_time = COALESCE(EXCLUDED.check_out_time, attendance_records.check_out_time),
      total_hours = COALESCE(EXCLUDED.total_hours, attendance_records.total_hours),
      is_late = EXCLUDED.is_late,
      is_early_checkout = EXCLUDED.is_early_checkout,
      notes = CASE WHEN EXCLUDED.notes = '' THEN attendance_records.notes ELSE EXCLUDED.notes END,
      source = EXCLUDED.source,
      updated_at = now()
    RETURNING `+recordColumns,
		input.EmployeeID, input.Date, input.Status, input.CheckIn, input.CheckOut,
		hoursArg(input.TotalHours), input.IsLate, input.IsEarlyCheckout, input.Notes, input.Source))
}

func (s *Store) DeleteRecord(ctx context.Context, recordID string) (Record, error) {
	rec, err := scanRecord(s.DB.QueryRow(ctx, `
    DELETE FROM attendance_records WHERE id = $1
    RETURNING `+recordColumns, recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	return rec, err
}

func (s *Store) ListGrace(ctx context.Context, from, to time.Time) ([]GracePeriod, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT grace_date, minutes, reason, created_by, created_at
    FROM grace_periods
    WHERE grace_date BETWEEN $1 AND $2
    ORDER BY grace_date
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GracePeriod
	for rows.Next() {
		var g GracePeriod
		if err := rows.Scan(&g.Date, &g.Minutes, &g.Reason, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SetGrace replaces any existing exception for the date.
func (s *Store) SetGrace(ctx context.Context, grace GracePeriod) (GracePeriod, error) {
	var g GracePeriod
	err := s.DB.QueryRow(ctx, `
    INSERT INTO grace_periods (grace_date, minutes, reason, created_by)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (grace_date) DO UPDATE SET
      minutes = EXCLUDED.minutes,
      reason = EXCLUDED.reason,
      created_by = EXCLUDED.created_by,
      created_at = now()
    RETURNING grace_date, minutes, reason, created_by, created_at
  `, grace.Date, grace.Minutes, grace.Reason, grace.CreatedBy).Scan(&g.Date, &g.Minutes, &g.Reason, &g.CreatedBy, &g.CreatedAt)
	return g, err
}

func (s *Store) ClearGrace(ctx context.Context, date time.Time) (bool, error) {
	tag, err := s.DB.Exec(ctx, "DELETE FROM grace_periods WHERE grace_date = $1", date)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

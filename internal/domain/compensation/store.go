package compensation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	cryptoutil "opscore/internal/platform/crypto"
	"opscore/internal/platform/querier"
)

type Store struct {
	DB     querier.Querier
	Crypto *cryptoutil.Service
}

func NewStore(db querier.Querier, crypto *cryptoutil.Service) *Store {
	return &Store{DB: db, Crypto: crypto}
}

func (s *Store) sealRates(employeeID string, rates Rates) ([]byte, error) {
	plain, err := json.Marshal(rates)
	if err != nil {
		return nil, err
	}
	return s.Crypto.Seal(plain, employeeID)
}

func (s *Store) openRates(employeeID string, stored []byte) (Rates, error) {
	plain, err := s.Crypto.Open(stored, employeeID)
	if err != nil {
		return Rates{}, fmt.Errorf("%w: %v", ErrPolicyRatesUnreadable, err)
	}
	var rates Rates
	if err := json.Unmarshal(plain, &rates); err != nil {
		return Rates{}, fmt.Errorf("%w: %v", ErrPolicyRatesUnreadable, err)
	}
	return rates, nil
}

func (s *Store) scanPolicy(row pgx.Row) (Policy, error) {
	var p Policy
	var sealed []byte
	if err := row.Scan(&p.EmployeeID, &p.SalaryType, &sealed, &p.LatePenaltyEnabled, &p.UpdatedBy, &p.UpdatedAt); err != nil {
		return Policy{}, err
	}
	rates, err := s.openRates(p.EmployeeID, sealed)
	if err != nil {
		return p, err
	}
	p.Rates = rates
	return p, nil
}

func (s *Store) GetPolicy(ctx context.Context, employeeID string) (Policy, error) {
	p, err := s.scanPolicy(s.DB.QueryRow(ctx, `
    SELECT employee_id, salary_type, rates_enc, late_penalty_enabled, updated_by, updated_at
    FROM salary_policies
    WHERE employee_id = $1
  `, employeeID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return Policy{}, ErrNoSalaryPolicy
	case err != nil:
		return Policy{}, err
	}
	return p, nil
}

func (s *Store) ListPolicies(ctx context.Context) (map[string]Policy, map[string]error, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT employee_id, salary_type, rates_enc, late_penalty_enabled, updated_by, updated_at
    FROM salary_policies
  `)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	out := map[string]Policy{}
	unreadable := map[string]error{}
	for rows.Next() {
		p, err := s.scanPolicy(rows)
		switch {
		case errors.Is(err, ErrPolicyRatesUnreadable):
			unreadable[p.EmployeeID] = err
			continue
		case err != nil:
			return nil, nil, err
		}
		out[p.EmployeeID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, unreadable, nil
}

func (s *Store) UpsertPolicy(ctx context.Context, policy Policy) (Policy, error) {
	sealed, err := s.sealRates(policy.EmployeeID, policy.Rates)
	if err != nil {
		return Policy{}, err
	}
	err = s.DB.QueryRow(ctx, `
    INSERT INTO salary_policies (employee_id, salary_type, rates_enc, late_penalty_enabled, updated_by)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (employee_id) DO UPDATE SET
      salary_type = EXCLUDED.salary_type,
      rates_enc = EXCLUDED.rates_enc,
      late_penalty_enabled = EXCLUDED.late_penalty_enabled,
      updated_by = EXCLUDED.updated_by,
      updated_at = now()
    RETURNING updated_at
  `, policy.EmployeeID, policy.SalaryType, sealed, policy.LatePenaltyEnabled, policy.UpdatedBy).Scan(&policy.UpdatedAt)
	if err != nil {
		return Policy{}, err
	}
	return policy, nil
}

const adjustmentColumns = "id, employee_id, period, adjustment_type, amount::text, reason, added_by, status, created_at, deleted_at"

func scanAdjustment(row pgx.Row) (Adjustment, error) {
	var a Adjustment
	var amount string
	if err := row.Scan(&a.ID, &a.EmployeeID, &a.Period, &a.Type, &amount, &a.Reason, &a.AddedBy, &a.Status, &a.CreatedAt, &a.DeletedAt); err != nil {
		return Adjustment{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Adjustment{}, err
	}
	a.Amount = parsed
	return a, nil
}

func collectAdjustments(rows pgx.Rows) ([]Adjustment, error) {
	defer rows.Close()
	var out []Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAdjustments returns active adjustments only.
func (s *Store) ListAdjustments(ctx context.Context, employeeID, period string) ([]Adjustment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+adjustmentColumns+`
    FROM salary_adjustments
    WHERE employee_id = $1 AND period = $2 AND status = $3
    ORDER BY created_at
  `, employeeID, period, AdjustmentStatusActive)
	if err != nil {
		return nil, err
	}
	return collectAdjustments(rows)
}

func (s *Store) ListPeriodAdjustments(ctx context.Context, period string) ([]Adjustment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+adjustmentColumns+`
    FROM salary_adjustments
    WHERE period = $1 AND status = $2
    ORDER BY employee_id, created_at
  `, period, AdjustmentStatusActive)
	if err != nil {
		return nil, err
	}
	return collectAdjustments(rows)
}

func (s *Store) CreateAdjustment(ctx context.Context, input AdjustmentInput) (Adjustment, error) {
	return scanAdjustment(s.DB.QueryRow(ctx, `
    INSERT INTO salary_adjustments (employee_id, period, adjustment_type, amount, reason, added_by, status)
    VALUES ($1,$2,$3,$4::numeric,$5,$6,$7)
    RETURNING `+adjustmentColumns,
		input.EmployeeID, input.Period, input.Type, input.Amount.StringFixed(2), input.Reason, input.AddedBy, AdjustmentStatusActive))
}

// SoftDeleteAdjustment marks the row deleted. Already deleted rows count as missing.
func (s *Store) SoftDeleteAdjustment(ctx context.Context, adjustmentID string) (Adjustment, error) {
	a, err := scanAdjustment(s.DB.QueryRow(ctx, `
    UPDATE salary_adjustments
    SET status = $2, deleted_at = now()
    WHERE id = $1 AND status = $3
    RETURNING `+adjustmentColumns, adjustmentID, AdjustmentStatusDeleted, AdjustmentStatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Adjustment{}, ErrAdjustmentNotFound
	}
	return a, err
}

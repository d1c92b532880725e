package compensation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/core"
	"opscore/internal/platform/jobs"
	"opscore/internal/platform/metrics"
)

type AttendanceResolver interface {
	ResolveRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.ResolvedDay, error)
}

type EmployeeSource interface {
	GetEmployee(ctx context.Context, employeeID string) (core.Employee, error)
	ListActiveEmployees(ctx context.Context) ([]core.Employee, error)
}

type JobRunner interface {
	RunNow(ctx context.Context, jobType, actorID string, run func(context.Context) (any, error)) (any, error)
}

type Service struct {
	Store      StoreAPI
	Attendance AttendanceResolver
	Employees  EmployeeSource
	Jobs       JobRunner
	Metrics    *metrics.Collector
	Now        func() time.Time
}

func NewService(store StoreAPI, resolver AttendanceResolver, employees EmployeeSource, runner JobRunner, collector *metrics.Collector) *Service {
	return &Service{Store: store, Attendance: resolver, Employees: employees, Jobs: runner, Metrics: collector, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// ComputePayable always recomputes from current records; nothing is cached.
func (s *Service) ComputePayable(ctx context.Context, employeeID, period string) (Payable, error) {
	from, to, err := attendance.ParseMonth(period, time.UTC)
	if err != nil {
		return Payable{}, err
	}
	emp, err := s.Employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return Payable{}, err
	}
	policy, err := s.Store.GetPolicy(ctx, employeeID)
	if err != nil {
		return Payable{}, err
	}
	adjustments, err := s.Store.ListAdjustments(ctx, employeeID, period)
	if err != nil {
		return Payable{}, fmt.Errorf("load adjustments: %w", err)
	}
	out, err := s.compute(ctx, emp, policy, period, from, to, adjustments)
	if err != nil {
		return Payable{}, err
	}
	s.Metrics.RecordPayable()
	return out, nil
}

func (s *Service) compute(ctx context.Context, emp core.Employee, policy Policy, period string, from, to time.Time, adjustments []Adjustment) (Payable, error) {
	days, err := s.Attendance.ResolveRange(ctx, emp.ID, from, to)
	if err != nil {
		return Payable{}, fmt.Errorf("resolve attendance: %w", err)
	}
	out := ComputePayable(policy, days, adjustments)
	out.EmployeeID = emp.ID
	out.EmployeeName = emp.DisplayName()
	out.Period = period
	out.ComputedAt = s.now()
	return out, nil
}

// ComputePeriod computes every active employee. Employees without a policy, and employees
// whose policy or attendance cannot be read, are listed rather than failing the run.
func (s *Service) ComputePeriod(ctx context.Context, actorID, period string) (PeriodRun, error) {
	from, to, err := attendance.ParseMonth(period, time.UTC)
	if err != nil {
		return PeriodRun{}, err
	}

	out := PeriodRun{Period: period, Payables: []Payable{}, WithoutPolicy: []string{}, Errors: []PeriodError{}, Total: decimal.Zero}
	run := func(ctx context.Context) (any, error) {
		employees, err := s.Employees.ListActiveEmployees(ctx)
		if err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		policies, unreadable, err := s.Store.ListPolicies(ctx)
		if err != nil {
			return nil, fmt.Errorf("load policies: %w", err)
		}
		adjustments, err := s.Store.ListPeriodAdjustments(ctx, period)
		if err != nil {
			return nil, fmt.Errorf("load adjustments: %w", err)
		}
		byEmployee := map[string][]Adjustment{}
		for _, adj := range adjustments {
			byEmployee[adj.EmployeeID] = append(byEmployee[adj.EmployeeID], adj)
		}

		for _, emp := range employees {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if policyErr, ok := unreadable[emp.ID]; ok {
				out.Errors = append(out.Errors, PeriodError{EmployeeID: emp.ID, Error: policyErr.Error()})
				continue
			}
			policy, ok := policies[emp.ID]
			if !ok {
				out.WithoutPolicy = append(out.WithoutPolicy, emp.ID)
				continue
			}
			payable, err := s.compute(ctx, emp, policy, period, from, to, byEmployee[emp.ID])
			if err != nil {
				slog.Warn("payable computation failed", "employee_id", emp.ID, "period", period, "err", err)
				out.Errors = append(out.Errors, PeriodError{EmployeeID: emp.ID, Error: err.Error()})
				continue
			}
			out.Payables = append(out.Payables, payable)
			out.Total = out.Total.Add(payable.Amount)
		}
		sort.Strings(out.WithoutPolicy)
		return map[string]any{
			"period":        period,
			"employees":     len(out.Payables),
			"withoutPolicy": len(out.WithoutPolicy),
			"errors":        len(out.Errors),
			"total":         out.Total.StringFixed(2),
		}, nil
	}

	if s.Jobs != nil {
		_, err = s.Jobs.RunNow(ctx, jobs.JobPayableRun, actorID, run)
	} else {
		_, err = run(ctx)
	}
	if err != nil {
		return PeriodRun{}, err
	}
	s.Metrics.RecordPayable()
	return out, nil
}

func (s *Service) GetPolicy(ctx context.Context, employeeID string) (Policy, error) {
	return s.Store.GetPolicy(ctx, employeeID)
}

// UpsertPolicy replaces the employee's policy and returns the previous one, if any.
func (s *Service) UpsertPolicy(ctx context.Context, policy Policy) (*Policy, Policy, error) {
	if strings.TrimSpace(policy.EmployeeID) == "" {
		return nil, Policy{}, ErrEmployeeRequired
	}
	if !ValidSalaryType(policy.SalaryType) {
		return nil, Policy{}, ErrInvalidSalaryType
	}
	r := policy.Rates
	for _, rate := range []decimal.Decimal{r.PerDay, r.Hourly, r.Monthly, r.PerMinutePenalty} {
		if rate.IsNegative() {
			return nil, Policy{}, ErrNegativeRate
		}
	}
	if _, err := s.Employees.GetEmployee(ctx, policy.EmployeeID); err != nil {
		return nil, Policy{}, err
	}

	var before *Policy
	existing, err := s.Store.GetPolicy(ctx, policy.EmployeeID)
	switch {
	case err == nil:
		before = &existing
	case !errors.Is(err, ErrNoSalaryPolicy):
		return nil, Policy{}, err
	}
	saved, err := s.Store.UpsertPolicy(ctx, policy)
	if err != nil {
		return nil, Policy{}, err
	}
	return before, saved, nil
}

func (s *Service) ListAdjustments(ctx context.Context, employeeID, period string) ([]Adjustment, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, ErrEmployeeRequired
	}
	if _, _, err := attendance.ParseMonth(period, time.UTC); err != nil {
		return nil, err
	}
	return s.Store.ListAdjustments(ctx, employeeID, period)
}

func (s *Service) CreateAdjustment(ctx context.Context, input AdjustmentInput) (Adjustment, error) {
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))
	if strings.TrimSpace(input.EmployeeID) == "" {
		return Adjustment{}, ErrEmployeeRequired
	}
	if _, ok := AdjustmentSign(input.Type); !ok {
		return Adjustment{}, ErrInvalidAdjustment
	}
	input.Amount = input.Amount.Round(2)
	if !input.Amount.IsPositive() {
		return Adjustment{}, ErrNonPositiveAmount
	}
	if _, _, err := attendance.ParseMonth(input.Period, time.UTC); err != nil {
		return Adjustment{}, err
	}
	if _, err := s.Employees.GetEmployee(ctx, input.EmployeeID); err != nil {
		return Adjustment{}, err
	}
	input.Reason = strings.TrimSpace(input.Reason)
	return s.Store.CreateAdjustment(ctx, input)
}

func (s *Service) DeleteAdjustment(ctx context.Context, adjustmentID string) (Adjustment, error) {
	return s.Store.SoftDeleteAdjustment(ctx, adjustmentID)
}

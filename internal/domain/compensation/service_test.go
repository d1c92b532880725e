package compensation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/core"
)

type memoryStore struct {
	policies    map[string]Policy
	unreadable  map[string]error
	adjustments []Adjustment
	seq         int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{policies: map[string]Policy{}}
}

func (m *memoryStore) GetPolicy(_ context.Context, employeeID string) (Policy, error) {
	p, ok := m.policies[employeeID]
	if !ok {
		return Policy{}, ErrNoSalaryPolicy
	}
	return p, nil
}

func (m *memoryStore) ListPolicies(context.Context) (map[string]Policy, map[string]error, error) {
	return m.policies, m.unreadable, nil
}

func (m *memoryStore) UpsertPolicy(_ context.Context, policy Policy) (Policy, error) {
	m.policies[policy.EmployeeID] = policy
	return policy, nil
}

func (m *memoryStore) ListAdjustments(_ context.Context, employeeID, period string) ([]Adjustment, error) {
	var out []Adjustment
	for _, a := range m.adjustments {
		if a.EmployeeID == employeeID && a.Period == period && a.Status == AdjustmentStatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) ListPeriodAdjustments(_ context.Context, period string) ([]Adjustment, error) {
	var out []Adjustment
	for _, a := range m.adjustments {
		if a.Period == period && a.Status == AdjustmentStatusActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateAdjustment(_ context.Context, input AdjustmentInput) (Adjustment, error) {
	m.seq++
	a := Adjustment{
		ID:         fmt.Sprintf("a%d", m.seq),
		EmployeeID: input.EmployeeID,
		Period:     input.Period,
		Type:       input.Type,
		Amount:     input.Amount,
		Reason:     input.Reason,
		AddedBy:    input.AddedBy,
		Status:     AdjustmentStatusActive,
	}
	m.adjustments = append(m.adjustments, a)
	return a, nil
}

func (m *memoryStore) SoftDeleteAdjustment(_ context.Context, adjustmentID string) (Adjustment, error) {
	for i, a := range m.adjustments {
		if a.ID == adjustmentID && a.Status == AdjustmentStatusActive {
			now := time.Now()
			m.adjustments[i].Status = AdjustmentStatusDeleted
			m.adjustments[i].DeletedAt = &now
			return m.adjustments[i], nil
		}
	}
	return Adjustment{}, ErrAdjustmentNotFound
}

type presentEveryWeekday struct{}

func (presentEveryWeekday) ResolveRange(_ context.Context, employeeID string, from, to time.Time) ([]attendance.ResolvedDay, error) {
	var out []attendance.ResolvedDay
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		status := attendance.StatusPresent
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			status = attendance.StatusWeekoff
		}
		out = append(out, attendance.ResolvedDay{EmployeeID: employeeID, Date: attendance.DateKey(day), Status: status})
	}
	return out, nil
}

type employeeList []core.Employee

func (e employeeList) GetEmployee(_ context.Context, employeeID string) (core.Employee, error) {
	for _, emp := range e {
		if emp.ID == employeeID {
			return emp, nil
		}
	}
	return core.Employee{}, core.ErrEmployeeNotFound
}

func (e employeeList) ListActiveEmployees(context.Context) ([]core.Employee, error) {
	return e, nil
}

func newTestService(store *memoryStore) *Service {
	employees := employeeList{
		{ID: "e1", FirstName: "Asha", LastName: "Rao"},
		{ID: "e2", FirstName: "Kiran", LastName: "Das"},
		{ID: "e3", FirstName: "Meera"},
	}
	return NewService(store, presentEveryWeekday{}, employees, nil, nil)
}

func TestServiceComputePayableUsesResolvedAttendance(t *testing.T) {
	store := newMemoryStore()
	store.policies["e1"] = Policy{EmployeeID: "e1", SalaryType: SalaryTypePerDay, Rates: Rates{PerDay: dec("1000")}}
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.CreateAdjustment(ctx, AdjustmentInput{EmployeeID: "e1", Period: "2025-03", Type: "Bonus", Amount: dec("500")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CreateAdjustment(ctx, AdjustmentInput{EmployeeID: "e1", Period: "2025-03", Type: AdjustmentPenalty, Amount: dec("200")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// March 2025 has 21 weekdays.
	got, err := svc.ComputePayable(ctx, "e1", "2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.PayableDays.Equal(decimal.NewFromInt(21)) {
		t.Fatalf("expected 21 payable days, got %s", got.PayableDays)
	}
	if !got.Amount.Equal(dec("21300")) {
		t.Fatalf("expected 21300, got %s", got.Amount)
	}
	if got.EmployeeName != "Asha Rao" || got.Period != "2025-03" {
		t.Fatalf("unexpected header fields %+v", got)
	}
}

func TestServiceDeletedAdjustmentExcludedAfterDeletion(t *testing.T) {
	store := newMemoryStore()
	store.policies["e1"] = Policy{EmployeeID: "e1", SalaryType: SalaryTypeFixedMonthly, Rates: Rates{Monthly: dec("5000")}}
	svc := newTestService(store)
	ctx := context.Background()

	adj, err := svc.CreateAdjustment(ctx, AdjustmentInput{EmployeeID: "e1", Period: "2025-03", Type: AdjustmentIncentive, Amount: dec("750")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, err := svc.ComputePayable(ctx, "e1", "2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !before.Amount.Equal(dec("5750")) {
		t.Fatalf("expected 5750, got %s", before.Amount)
	}

	if _, err := svc.DeleteAdjustment(ctx, adj.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, err := svc.ComputePayable(ctx, "e1", "2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !after.Amount.Equal(dec("5000")) {
		t.Fatalf("expected 5000 after deletion, got %s", after.Amount)
	}
	if _, err := svc.DeleteAdjustment(ctx, adj.ID); !errors.Is(err, ErrAdjustmentNotFound) {
		t.Fatalf("expected second delete to be not found, got %v", err)
	}
}

func TestServiceMissingPolicy(t *testing.T) {
	svc := newTestService(newMemoryStore())
	if _, err := svc.ComputePayable(context.Background(), "e2", "2025-03"); !errors.Is(err, ErrNoSalaryPolicy) {
		t.Fatalf("expected missing policy, got %v", err)
	}
	if _, err := svc.ComputePayable(context.Background(), "nobody", "2025-03"); !errors.Is(err, core.ErrEmployeeNotFound) {
		t.Fatalf("expected employee not found, got %v", err)
	}
}

func TestServiceComputePeriodCollectsWithoutPolicy(t *testing.T) {
	store := newMemoryStore()
	store.policies["e1"] = Policy{EmployeeID: "e1", SalaryType: SalaryTypeFixedMonthly, Rates: Rates{Monthly: dec("1000")}}
	store.policies["e3"] = Policy{EmployeeID: "e3", SalaryType: SalaryTypeFixedMonthly, Rates: Rates{Monthly: dec("2000")}}
	svc := newTestService(store)

	run, err := svc.ComputePeriod(context.Background(), "hr-1", "2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(run.Payables) != 2 {
		t.Fatalf("expected 2 payables, got %d", len(run.Payables))
	}
	if len(run.WithoutPolicy) != 1 || run.WithoutPolicy[0] != "e2" {
		t.Fatalf("expected e2 without policy, got %v", run.WithoutPolicy)
	}
	if !run.Total.Equal(dec("3000")) {
		t.Fatalf("expected total 3000, got %s", run.Total)
	}
}

func TestServiceAdjustmentValidation(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	cases := []struct {
		input AdjustmentInput
		want  error
	}{
		{AdjustmentInput{Period: "2025-03", Type: AdjustmentBonus, Amount: dec("1")}, ErrEmployeeRequired},
		{AdjustmentInput{EmployeeID: "e1", Period: "2025-03", Type: "gift", Amount: dec("1")}, ErrInvalidAdjustment},
		{AdjustmentInput{EmployeeID: "e1", Period: "2025-03", Type: AdjustmentBonus, Amount: dec("-5")}, ErrNonPositiveAmount},
		{AdjustmentInput{EmployeeID: "e1", Period: "2025-03", Type: AdjustmentBonus, Amount: dec("0.001")}, ErrNonPositiveAmount},
		{AdjustmentInput{EmployeeID: "e1", Period: "March", Type: AdjustmentBonus, Amount: dec("1")}, attendance.ErrInvalidMonth},
	}
	for _, tc := range cases {
		if _, err := svc.CreateAdjustment(ctx, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("expected %v, got %v", tc.want, err)
		}
	}
	if len(store.adjustments) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(store.adjustments))
	}
}

func TestServiceUpsertPolicy(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	before, saved, err := svc.UpsertPolicy(ctx, Policy{EmployeeID: "e1", SalaryType: SalaryTypePerHour, Rates: Rates{Hourly: dec("150")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before != nil {
		t.Fatal("expected no previous policy")
	}
	if saved.SalaryType != SalaryTypePerHour {
		t.Fatalf("unexpected saved policy %+v", saved)
	}
	before, _, err = svc.UpsertPolicy(ctx, Policy{EmployeeID: "e1", SalaryType: SalaryTypePerDay, Rates: Rates{PerDay: dec("900")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before == nil || before.SalaryType != SalaryTypePerHour {
		t.Fatalf("expected previous per_hour policy, got %+v", before)
	}

	if _, _, err := svc.UpsertPolicy(ctx, Policy{EmployeeID: "e1", SalaryType: "weekly"}); !errors.Is(err, ErrInvalidSalaryType) {
		t.Fatalf("expected invalid salary type, got %v", err)
	}
	if _, _, err := svc.UpsertPolicy(ctx, Policy{EmployeeID: "e1", SalaryType: SalaryTypePerDay, Rates: Rates{PerDay: dec("-1")}}); !errors.Is(err, ErrNegativeRate) {
		t.Fatalf("expected negative rate, got %v", err)
	}
}

func TestStatementRendersPDF(t *testing.T) {
	store := newMemoryStore()
	store.policies["e1"] = Policy{EmployeeID: "e1", SalaryType: SalaryTypePerDay, Rates: Rates{PerDay: dec("1000")}}
	store.adjustments = []Adjustment{{ID: "a1", EmployeeID: "e1", Period: "2025-03", Type: AdjustmentReimbursement, Amount: dec("120"), Reason: "travel", Status: AdjustmentStatusActive}}
	svc := newTestService(store)

	payable, body, err := svc.Statement(context.Background(), "e1", "2025-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
	if !payable.Amount.Equal(dec("21120")) {
		t.Fatalf("expected 21120, got %s", payable.Amount)
	}
}

type failingResolver struct {
	presentEveryWeekday
	failFor string
}

func (f failingResolver) ResolveRange(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.ResolvedDay, error) {
	if employeeID == f.failFor {
		return nil, errors.New("attendance unavailable")
	}
	return f.presentEveryWeekday.ResolveRange(ctx, employeeID, from, to)
}

func TestServiceComputePeriodKeepsGoingPastEmployeeFailures(t *testing.T) {
	store := newMemoryStore()
	store.policies["e1"] = Policy{EmployeeID: "e1", SalaryType: SalaryTypeFixedMonthly, Rates: Rates{Monthly: dec("1000")}}
	store.policies["e3"] = Policy{EmployeeID: "e3", SalaryType: SalaryTypeFixedMonthly, Rates: Rates{Monthly: dec("2000")}}
	store.unreadable = map[string]error{"e2": ErrPolicyRatesUnreadable}
	svc := newTestService(store)
	svc.Attendance = failingResolver{failFor: "e3"}

	run, err := svc.ComputePeriod(context.Background(), "hr-1", "2025-03")
	if err != nil {
		t.Fatalf("expected the run to complete, got %v", err)
	}
	if len(run.Payables) != 1 || run.Payables[0].EmployeeID != "e1" {
		t.Fatalf("expected only e1 computed, got %+v", run.Payables)
	}
	if len(run.WithoutPolicy) != 0 {
		t.Fatalf("expected unreadable policy not to count as missing, got %v", run.WithoutPolicy)
	}
	if len(run.Errors) != 2 {
		t.Fatalf("expected 2 employee errors, got %+v", run.Errors)
	}
	got := map[string]string{}
	for _, e := range run.Errors {
		got[e.EmployeeID] = e.Error
	}
	if got["e2"] != ErrPolicyRatesUnreadable.Error() {
		t.Fatalf("expected e2 policy error, got %q", got["e2"])
	}
	if got["e3"] == "" {
		t.Fatalf("expected e3 attendance error, got %+v", run.Errors)
	}
	if !run.Total.Equal(dec("1000")) {
		t.Fatalf("expected total 1000, got %s", run.Total)
	}
}

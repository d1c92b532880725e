package bulkimport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/core"
	"opscore/internal/platform/metrics"
)

type staticEmployees []core.Employee

func (s staticEmployees) ListActiveEmployees(context.Context) ([]core.Employee, error) {
	return s, nil
}

type recordingRunner struct {
	jobType string
	actorID string
	details any
}

func (r *recordingRunner) RunNow(ctx context.Context, jobType, actorID string, run func(context.Context) (any, error)) (any, error) {
	r.jobType = jobType
	r.actorID = actorID
	details, err := run(ctx)
	r.details = details
	return details, err
}

func TestServiceImportRecordsRun(t *testing.T) {
	writer := newMemoryWriter()
	runner := &recordingRunner{}
	collector := metrics.New()
	svc := NewService(writer, staticEmployees{{ID: "e1", FirstName: "Asha", LastName: "Rao"}}, runner, collector)

	input := "Employee Name,1,2\nAsha Rao,P,L\nGhost,P,\n"
	result, err := svc.Import(context.Background(), "hr-1", "2025-03", "march.csv", strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SuccessCount != 2 || result.ErrorCount != 1 {
		t.Fatalf("expected 2 applied and 1 error, got %d and %d", result.SuccessCount, result.ErrorCount)
	}
	if runner.jobType != "attendance_import" || runner.actorID != "hr-1" {
		t.Fatalf("unexpected job bookkeeping %s/%s", runner.jobType, runner.actorID)
	}
	details, ok := runner.details.(map[string]any)
	if !ok || details["successCount"] != 2 {
		t.Fatalf("unexpected job details %#v", runner.details)
	}
	snap := collector.Snapshot()
	if snap["importCellsTotal"] != uint64(2) || snap["importErrorsTotal"] != uint64(1) {
		t.Fatalf("unexpected metrics %v", snap)
	}
}

func TestServiceImportStructuralFailure(t *testing.T) {
	svc := NewService(newMemoryWriter(), staticEmployees{}, nil, nil)
	if _, err := svc.Import(context.Background(), "hr-1", "2025-03", "x.csv", strings.NewReader("")); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected invalid table, got %v", err)
	}
	if _, err := svc.Import(context.Background(), "hr-1", "03/2025", "x.csv", strings.NewReader("Employee Name,1\n")); !errors.Is(err, attendance.ErrInvalidMonth) {
		t.Fatalf("expected invalid month, got %v", err)
	}
}

package bulkimport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/core"
	"opscore/internal/platform/jobs"
	"opscore/internal/platform/metrics"
)

type EmployeeLister interface {
	ListActiveEmployees(ctx context.Context) ([]core.Employee, error)
}

type JobRunner interface {
	RunNow(ctx context.Context, jobType, actorID string, run func(context.Context) (any, error)) (any, error)
}

type Service struct {
	Writer    RecordWriter
	Employees EmployeeLister
	Jobs      JobRunner
	Metrics   *metrics.Collector
}

func NewService(writer RecordWriter, employees EmployeeLister, runner JobRunner, collector *metrics.Collector) *Service {
	return &Service{Writer: writer, Employees: employees, Jobs: runner, Metrics: collector}
}

// Import reads an upload and reconciles it into attendance records for month.
// A structurally broken table fails the call; bad cells are reported in the result.
func (s *Service) Import(ctx context.Context, actorID, month, filename string, r io.Reader) (Result, error) {
	if _, _, err := attendance.ParseMonth(month, time.UTC); err != nil {
		return Result{}, err
	}
	table, err := ReadTable(r, filename)
	if err != nil {
		return Result{}, err
	}

	var result Result
	run := func(ctx context.Context) (any, error) {
		employees, err := s.Employees.ListActiveEmployees(ctx)
		if err != nil {
			return nil, fmt.Errorf("list employees: %w", err)
		}
		result, err = Reconcile(ctx, table, month, core.NewDirectory(employees), s.Writer)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"month":        month,
			"file":         filename,
			"successCount": result.SuccessCount,
			"errorCount":   result.ErrorCount,
		}, nil
	}

	if s.Jobs != nil {
		_, err = s.Jobs.RunNow(ctx, jobs.JobAttendanceImport, actorID, run)
	} else {
		_, err = run(ctx)
	}
	if err != nil {
		return Result{}, err
	}
	s.Metrics.RecordImport(result.SuccessCount, result.ErrorCount)
	slog.Info("attendance import reconciled", "month", month, "successCount", result.SuccessCount, "errorCount", result.ErrorCount)
	return result, nil
}

func (s *Service) Template(ctx context.Context, month, format string) (Template, error) {
	employees, err := s.Employees.ListActiveEmployees(ctx)
	if err != nil {
		return Template{}, fmt.Errorf("list employees: %w", err)
	}
	return BuildTemplate(month, format, employees)
}

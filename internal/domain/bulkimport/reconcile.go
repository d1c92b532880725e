package bulkimport

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/core"
)

const (
	errEmployeeNotFound  = "employee not found"
	errEmployeeAmbiguous = "employee name matches more than one employee"
	errInvalidCode       = "invalid attendance code"
	errInvalidDate       = "invalid date"
)

type CellError struct {
	EmployeeName string `json:"employeeName"`
	Date         string `json:"date"`
	Error        string `json:"error"`
}

type Result struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	SuccessCount int         `json:"successCount"`
	ErrorCount   int         `json:"errorCount"`
	Errors       []CellError `json:"errors"`
}

// RecordWriter is the attendance write path.
type RecordWriter interface {
	Upsert(ctx context.Context, input attendance.RecordInput) (attendance.Record, error)
}

// EmployeeResolver maps the identifier in a row to an employee id.
type EmployeeResolver interface {
	Resolve(identifier string) (string, error)
}

type dayColumn struct {
	index int
	day   int
	date  time.Time
	label string
	valid bool
}

// Reconcile folds the table row by row, left to right. Every cell either becomes one
// upsert or one CellError; a failing cell never stops the batch.
func Reconcile(ctx context.Context, table Table, month string, employees EmployeeResolver, writer RecordWriter) (Result, error) {
	start, _, err := attendance.ParseMonth(month, time.UTC)
	if err != nil {
		return Result{}, err
	}
	if len(table.Header) < 2 {
		return Result{}, fmt.Errorf("%w: header has no day columns", ErrInvalidTable)
	}
	columns := dayColumns(table.Header, start)

	result := Result{Errors: []CellError{}}
	for _, row := range table.Rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := ""
		if len(row) > 0 {
			name = strings.TrimSpace(row[0])
		}
		// A blank employee cell still fails every filled day cell in the row.
		employeeID, lookupErr := "", core.ErrUnknownEmployee
		if name != "" {
			employeeID, lookupErr = employees.Resolve(name)
		}

		for _, col := range columns {
			if col.index >= len(row) {
				break
			}
			cell := strings.TrimSpace(row[col.index])
			if cell == "" {
				continue
			}
			fail := func(reason string) {
				result.ErrorCount++
				result.Errors = append(result.Errors, CellError{EmployeeName: name, Date: col.label, Error: reason})
			}

			if lookupErr != nil {
				if errors.Is(lookupErr, core.ErrAmbiguousEmployee) {
					fail(errEmployeeAmbiguous)
				} else {
					fail(errEmployeeNotFound)
				}
				continue
			}
			if !col.valid {
				fail(errInvalidDate)
				continue
			}
			intent, ok := decodeCell(cell)
			if !ok {
				fail(fmt.Sprintf("%s %q", errInvalidCode, cell))
				continue
			}
			if _, err := writer.Upsert(ctx, attendance.RecordInput{
				EmployeeID: employeeID,
				Date:       col.date,
				Status:     intent.status,
				IsLate:     intent.late,
				Source:     attendance.SourceImport,
			}); err != nil {
				fail(err.Error())
				continue
			}
			result.SuccessCount++
		}
	}

	result.Success = result.SuccessCount > 0 || result.ErrorCount == 0
	result.Message = fmt.Sprintf("processed %d records with %d errors", result.SuccessCount, result.ErrorCount)
	return result, nil
}

func dayColumns(header []string, monthStart time.Time) []dayColumn {
	daysInMonth := attendance.DaysIn(monthStart)
	columns := make([]dayColumn, 0, len(header)-1)
	for i := 1; i < len(header); i++ {
		label := strings.TrimSpace(header[i])
		col := dayColumn{index: i, label: label}
		day, err := strconv.Atoi(label)
		if err == nil && day >= 1 && day <= daysInMonth {
			col.day = day
			col.date = monthStart.AddDate(0, 0, day-1)
			col.label = attendance.DateKey(col.date)
			col.valid = true
		} else if label == "" {
			col.label = fmt.Sprintf("%s column %d", monthStart.Format("2006-01"), i+1)
		} else {
			col.label = fmt.Sprintf("%s-%s", monthStart.Format("2006-01"), label)
		}
		columns = append(columns, col)
	}
	return columns
}

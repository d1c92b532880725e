package bulkimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"opscore/internal/domain/attendance"
	"opscore/internal/domain/core"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	templateSheet = "Attendance"
)

var ErrUnsupportedFormat = errors.New("unsupported template format")

type Template struct {
	Filename    string
	ContentType string
	Body        []byte
}

// BuildTemplate lays out one row per employee and one empty column per day of month.
func BuildTemplate(month, format string, employees []core.Employee) (Template, error) {
	start, _, err := attendance.ParseMonth(month, time.UTC)
	if err != nil {
		return Template{}, err
	}
	rows := templateRows(start, employees)
	base := "attendance-" + start.Format("2006-01")

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		var buf bytes.Buffer
		writer := csv.NewWriter(&buf)
		if err := writer.WriteAll(rows); err != nil {
			return Template{}, err
		}
		return Template{Filename: base + ".csv", ContentType: "text/csv", Body: buf.Bytes()}, nil
	case FormatXLSX:
		body, err := writeXLSX(rows)
		if err != nil {
			return Template{}, err
		}
		return Template{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Body:        body,
		}, nil
	default:
		return Template{}, ErrUnsupportedFormat
	}
}

func templateRows(start time.Time, employees []core.Employee) [][]string {
	days := attendance.DaysIn(start)
	header := make([]string, 0, days+1)
	header = append(header, "Employee Name")
	for d := 1; d <= days; d++ {
		header = append(header, strconv.Itoa(d))
	}
	directory := core.NewDirectory(employees)
	rows := [][]string{header}
	for _, emp := range employees {
		row := make([]string, days+1)
		row[0] = sheetIdentifier(directory, emp)
		rows = append(rows, row)
	}
	return rows
}

// sheetIdentifier prefers the display name, falling back to the employee number or email
// when the name resolves to more than one employee.
func sheetIdentifier(directory *core.Directory, emp core.Employee) string {
	for _, candidate := range []string{emp.DisplayName(), emp.EmployeeNumber, emp.Email} {
		if candidate == "" {
			continue
		}
		if id, err := directory.Resolve(candidate); err == nil && id == emp.ID {
			return candidate
		}
	}
	return emp.DisplayName()
}

func writeXLSX(rows [][]string) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), templateSheet); err != nil {
		return nil, err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := file.SetSheetRow(templateSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

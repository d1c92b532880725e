package bulkimport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"opscore/internal/domain/core"
)

func TestReadTableCSV(t *testing.T) {
	input := "\xef\xbb\xbfEmployee Name,1,2,3\nAsha Rao,P,,A\n,,,\n\"Rao, Kiran\",L,P,\n"
	table, err := ReadTable(strings.NewReader(input), "march.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Header) != 4 || table.Header[0] != "Employee Name" {
		t.Fatalf("unexpected header %v", table.Header)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected blank rows to be dropped, got %d rows", len(table.Rows))
	}
	if table.Rows[1][0] != "Rao, Kiran" {
		t.Fatalf("expected quoted name, got %q", table.Rows[1][0])
	}
}

func TestReadTableDetectsTabs(t *testing.T) {
	input := "Employee Name\t1\t2\nAsha Rao\tP\tW\n"
	table, err := ReadTable(strings.NewReader(input), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Header) != 3 || table.Rows[0][2] != "W" {
		t.Fatalf("unexpected table %+v", table)
	}
}

func TestReadTableStructuralErrors(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"whitespace":    "  \n\n",
		"no day column": "Employee Name\nAsha Rao\n",
		"blank days":    "Employee Name,,\nAsha Rao,P,P\n",
	}
	for name, input := range cases {
		if _, err := ReadTable(strings.NewReader(input), "upload.csv"); !errors.Is(err, ErrInvalidTable) {
			t.Fatalf("%s: expected invalid table, got %v", name, err)
		}
	}
	if _, err := ReadTable(strings.NewReader("not a workbook"), "upload.xlsx"); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected unreadable xlsx to be invalid table, got %v", err)
	}
}

func TestTemplateRoundTripsThroughXLSX(t *testing.T) {
	employees := []core.Employee{
		{ID: "e1", FirstName: "Asha", LastName: "Rao"},
		{ID: "e2", FirstName: "Kiran", LastName: "Das"},
	}
	tmpl, err := BuildTemplate("2024-02", FormatXLSX, employees)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Filename != "attendance-2024-02.xlsx" {
		t.Fatalf("unexpected filename %s", tmpl.Filename)
	}

	table, err := ReadTable(bytes.NewReader(tmpl.Body), tmpl.Filename)
	if err != nil {
		t.Fatalf("unexpected error reading template: %v", err)
	}
	if len(table.Header) != 30 {
		t.Fatalf("expected name column plus 29 days, got %d", len(table.Header))
	}
	if table.Header[29] != "29" {
		t.Fatalf("expected last header 29, got %s", table.Header[29])
	}
	if len(table.Rows) != 2 || table.Rows[1][0] != "Kiran Das" {
		t.Fatalf("unexpected rows %v", table.Rows)
	}
}

func TestTemplateCSV(t *testing.T) {
	tmpl, err := BuildTemplate("2025-04", "", []core.Employee{{FirstName: "Asha", LastName: "Rao"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(tmpl.Body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Employee Name,1,2,") || !strings.HasSuffix(lines[0], ",30") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "Asha Rao"+strings.Repeat(",", 30) {
		t.Fatalf("unexpected row %q", lines[1])
	}
	if _, err := BuildTemplate("2025-04", "pdf", nil); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestTemplateDisambiguatesDuplicateNames(t *testing.T) {
	employees := []core.Employee{
		{ID: "e1", FirstName: "Asha", LastName: "Rao"},
		{ID: "e4", EmployeeNumber: "EMP-4", FirstName: "Sam", LastName: "Lee"},
		{ID: "e5", Email: "sam.lee@example.com", FirstName: "Sam", LastName: "Lee"},
	}
	tmpl, err := BuildTemplate("2025-04", FormatCSV, employees)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table, err := ReadTable(bytes.NewReader(tmpl.Body), tmpl.Filename)
	if err != nil {
		t.Fatalf("unexpected error reading template: %v", err)
	}
	want := []string{"Asha Rao", "EMP-4", "sam.lee@example.com"}
	if len(table.Rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(table.Rows))
	}
	for i, row := range table.Rows {
		if row[0] != want[i] {
			t.Fatalf("expected identifier %q, got %q", want[i], row[0])
		}
		row[1] = "P"
	}

	writer := newMemoryWriter()
	result, err := Reconcile(context.Background(), table, "2025-04", core.NewDirectory(employees), writer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ErrorCount != 0 || result.SuccessCount != 3 {
		t.Fatalf("expected every template row importable, got %+v", result)
	}
	for _, id := range []string{"e1", "e4", "e5"} {
		if _, ok := writer.records[id+"/2025-04-01"]; !ok {
			t.Fatalf("expected a record for %s", id)
		}
	}
}

package compensation

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// RenderStatement lays out a one-page payable statement.
func RenderStatement(p Payable) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payable Statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", p.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", p.Period))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Salary type: %s", p.SalaryType))
	pdf.Ln(10)

	switch p.SalaryType {
	case SalaryTypePerDay:
		pdf.Cell(0, 8, fmt.Sprintf("Payable days: %s", p.PayableDays.String()))
		pdf.Ln(7)
	case SalaryTypePerHour:
		pdf.Cell(0, 8, fmt.Sprintf("Worked hours: %s", p.WorkedHours.StringFixed(2)))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Base pay: %s", p.BasePay.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Late penalty (%d min): -%s", p.LateMinutes, p.LatePenalty.StringFixed(2)))
	pdf.Ln(10)

	if len(p.Adjustments) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, "Adjustments")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, adj := range p.Adjustments {
			sign := "+"
			if s, _ := AdjustmentSign(adj.Type); s < 0 {
				sign = "-"
			}
			line := fmt.Sprintf("%s %s%s", adj.Type, sign, adj.Amount.StringFixed(2))
			if adj.Reason != "" {
				line += " (" + adj.Reason + ")"
			}
			pdf.Cell(0, 7, line)
			pdf.Ln(6)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, fmt.Sprintf("Payable: %s", p.Amount.StringFixed(2)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) Statement(ctx context.Context, employeeID, period string) (Payable, []byte, error) {
	payable, err := s.ComputePayable(ctx, employeeID, period)
	if err != nil {
		return Payable{}, nil, err
	}
	body, err := RenderStatement(payable)
	if err != nil {
		return Payable{}, nil, err
	}
	return payable, body, nil
}

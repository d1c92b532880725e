package compensation

import (
	"github.com/shopspring/decimal"

	"opscore/internal/domain/attendance"
)

var (
	fullDay = decimal.NewFromInt(1)
	halfDay = decimal.NewFromFloat(0.5)
)

// dayWeight is how much of a per-day rate a resolved status earns.
func dayWeight(status string) decimal.Decimal {
	switch status {
	case attendance.StatusPresent, attendance.StatusWorkFromHome:
		return fullDay
	case attendance.StatusHalfDay:
		return halfDay
	default:
		return decimal.Zero
	}
}

// ComputePayable derives pay for one employee from resolved days and active adjustments:
// base - late penalty + additions - deductions. Deleted adjustments are ignored.
func ComputePayable(policy Policy, days []attendance.ResolvedDay, adjustments []Adjustment) Payable {
	out := Payable{
		EmployeeID:  policy.EmployeeID,
		SalaryType:  policy.SalaryType,
		PayableDays: decimal.Zero,
		WorkedHours: decimal.Zero,
		Additions:   decimal.Zero,
		Deductions:  decimal.Zero,
		LatePenalty: decimal.Zero,
		Adjustments: []Adjustment{},
	}

	for _, day := range days {
		out.PayableDays = out.PayableDays.Add(dayWeight(day.Status))
		if day.TotalHours != nil {
			out.WorkedHours = out.WorkedHours.Add(*day.TotalHours)
		}
		if day.IsLate {
			out.LateMinutes += day.LateMinutes
		}
	}

	switch policy.SalaryType {
	case SalaryTypePerDay:
		out.BasePay = out.PayableDays.Mul(policy.Rates.PerDay)
	case SalaryTypePerHour:
		out.BasePay = out.WorkedHours.Mul(policy.Rates.Hourly)
	case SalaryTypeFixedMonthly:
		out.BasePay = policy.Rates.Monthly
	default:
		out.BasePay = decimal.Zero
	}

	if policy.LatePenaltyEnabled && out.LateMinutes > 0 {
		out.LatePenalty = decimal.NewFromInt(int64(out.LateMinutes)).Mul(policy.Rates.PerMinutePenalty)
	}

	for _, adj := range adjustments {
		if adj.Status == AdjustmentStatusDeleted {
			continue
		}
		sign, ok := AdjustmentSign(adj.Type)
		if !ok {
			continue
		}
		if sign > 0 {
			out.Additions = out.Additions.Add(adj.Amount)
		} else {
			out.Deductions = out.Deductions.Add(adj.Amount)
		}
		out.Adjustments = append(out.Adjustments, adj)
	}

	out.BasePay = out.BasePay.Round(2)
	out.LatePenalty = out.LatePenalty.Round(2)
	out.Amount = out.BasePay.Sub(out.LatePenalty).Add(out.Additions).Sub(out.Deductions).Round(2)
	return out
}

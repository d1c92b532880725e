package compensation

const (
	SalaryTypePerDay       = "per_day"
	SalaryTypePerHour      = "per_hour"
	SalaryTypeFixedMonthly = "fixed_monthly"

	AdjustmentBonus            = "bonus"
	AdjustmentIncentive        = "incentive"
	AdjustmentReimbursement    = "reimbursement"
	AdjustmentAllowance        = "allowance"
	AdjustmentAdvanceDeduction = "advance_deduction"
	AdjustmentPenalty          = "penalty"

	AdjustmentStatusActive  = "active"
	AdjustmentStatusDeleted = "deleted"
)

// adjustmentSigns is the single place that decides whether a type adds to or
// subtracts from pay. Stored amounts are always positive.
var adjustmentSigns = map[string]int{
	AdjustmentBonus:            1,
	AdjustmentIncentive:        1,
	AdjustmentReimbursement:    1,
	AdjustmentAllowance:        1,
	AdjustmentAdvanceDeduction: -1,
	AdjustmentPenalty:          -1,
}

// AdjustmentSign returns +1 or -1, and false for unknown types.
func AdjustmentSign(adjustmentType string) (int, bool) {
	sign, ok := adjustmentSigns[adjustmentType]
	return sign, ok
}

func ValidSalaryType(salaryType string) bool {
	switch salaryType {
	case SalaryTypePerDay, SalaryTypePerHour, SalaryTypeFixedMonthly:
		return true
	}
	return false
}

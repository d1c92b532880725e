package compensation

import "errors"

var (
	ErrNoSalaryPolicy        = errors.New("salary policy missing")
	ErrAdjustmentNotFound    = errors.New("salary adjustment not found")
	ErrInvalidAdjustment     = errors.New("invalid adjustment type")
	ErrNonPositiveAmount     = errors.New("adjustment amount must be positive")
	ErrInvalidSalaryType     = errors.New("invalid salary type")
	ErrNegativeRate          = errors.New("rates must not be negative")
	ErrEmployeeRequired      = errors.New("employee is required")
	ErrPolicyRatesUnreadable = errors.New("salary policy rates could not be decoded")
)

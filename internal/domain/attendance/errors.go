package attendance

import "errors"

var (
	ErrRecordNotFound   = errors.New("attendance record not found")
	ErrStatusRequired   = errors.New("status is required")
	ErrInvalidStatus    = errors.New("invalid attendance status")
	ErrInvalidTimes     = errors.New("check-out time is before check-in time")
	ErrEmployeeRequired = errors.New("employee is required")
	ErrDateRequired     = errors.New("date is required")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrRangeTooLarge    = errors.New("date range too large")
	ErrGraceNotFound    = errors.New("no grace period for date")
	ErrInvalidGrace     = errors.New("grace minutes must be positive")
	ErrInvalidMonth     = errors.New("month must be YYYY-MM")
)

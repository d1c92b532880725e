package timetrack

import "errors"

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrTimerRunning     = errors.New("timer already running")
	ErrTimerNotRunning  = errors.New("timer is not running")
	ErrTimerIdle        = errors.New("timer is idle")
	ErrNegativeDuration = errors.New("logged time must not be negative")
	ErrEmptyDuration    = errors.New("logged time must be greater than zero")
	ErrInvalidMinutes   = errors.New("minutes must be between 0 and 59")
)

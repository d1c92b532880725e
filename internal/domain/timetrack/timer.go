package timetrack

import (
	"time"

	"github.com/shopspring/decimal"
)

// Elapsed is always derived from the record: accumulated seconds plus the open
// interval when running.
func (s Session) Elapsed(now time.Time) int64 {
	total := s.AccumulatedSeconds
	if s.State == StateRunning && s.StartedAt != nil {
		if open := int64(now.Sub(*s.StartedAt) / time.Second); open > 0 {
			total += open
		}
	}
	return total
}

func (s Session) normalized() Session {
	if s.State == "" {
		s.State = StateIdle
	}
	return s
}

// Start opens a running interval from idle or paused, carrying accumulated seconds forward.
func (s Session) Start(now time.Time) (Session, error) {
	s = s.normalized()
	if s.State == StateRunning {
		return s, ErrTimerRunning
	}
	if s.State == StateIdle {
		s.AccumulatedSeconds = 0
	}
	started := now
	s.State = StateRunning
	s.StartedAt = &started
	s.UpdatedAt = now
	return s, nil
}

// Pause folds the open interval into accumulated seconds.
func (s Session) Pause(now time.Time) (Session, error) {
	s = s.normalized()
	if s.State != StateRunning {
		return s, ErrTimerNotRunning
	}
	s.AccumulatedSeconds = s.Elapsed(now)
	s.State = StatePaused
	s.StartedAt = nil
	s.UpdatedAt = now
	return s, nil
}

// Stop folds like Pause, returns to idle and reports the total seconds of the session.
func (s Session) Stop(now time.Time) (Session, int64, error) {
	s = s.normalized()
	if s.State == StateIdle {
		return s, 0, ErrTimerIdle
	}
	seconds := s.Elapsed(now)
	s.State = StateIdle
	s.StartedAt = nil
	s.AccumulatedSeconds = 0
	s.UpdatedAt = now
	return s, seconds, nil
}

// SecondsToHours rounds to two decimals, half away from zero: 90s is 0.03h.
func SecondsToHours(seconds int64) decimal.Decimal {
	return decimal.NewFromInt(seconds).Div(decimal.NewFromInt(3600)).Round(2)
}

// ManualHours converts an hours and minutes entry into hours.
func ManualHours(hours, minutes int) (decimal.Decimal, error) {
	if hours < 0 || minutes < 0 {
		return decimal.Zero, ErrNegativeDuration
	}
	if minutes > 59 {
		return decimal.Zero, ErrInvalidMinutes
	}
	if hours == 0 && minutes == 0 {
		return decimal.Zero, ErrEmptyDuration
	}
	total := decimal.NewFromInt(int64(hours)).Add(decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)))
	return total.Round(2), nil
}

// ComputeEffort merges directly logged hours with subtask minutes and compares the
// result to the estimate.
func ComputeEffort(task Task, subtasks []Task) Effort {
	minutes := 0
	for _, sub := range subtasks {
		minutes += sub.TrackedMinutes
	}
	effective := task.ActualHours.Add(decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))).Round(2)
	out := Effort{
		TaskID:         task.ID,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		SubtaskMinutes: minutes,
		EffectiveHours: effective,
	}
	if task.EstimatedHours.IsPositive() {
		ratio := effective.Div(task.EstimatedHours)
		if ratio.GreaterThan(decimal.NewFromInt(1)) {
			ratio = decimal.NewFromInt(1)
		}
		progress := ratio.Round(4).InexactFloat64()
		out.Progress = &progress
		out.OverEstimate = effective.GreaterThan(task.EstimatedHours)
	}
	return out
}

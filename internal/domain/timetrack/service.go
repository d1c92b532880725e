package timetrack

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Service struct {
	Store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Service) session(ctx context.Context, taskID, holderID string) (Session, error) {
	if _, err := s.Store.GetTask(ctx, taskID); err != nil {
		return Session{}, err
	}
	return s.Store.GetSession(ctx, taskID, holderID)
}

func (s *Service) view(session Session) TimerView {
	elapsed := session.Elapsed(s.now())
	return TimerView{Session: session, ElapsedSeconds: elapsed, ElapsedHours: SecondsToHours(elapsed)}
}

// Timer reports the holder's session with elapsed time recomputed from the record.
func (s *Service) Timer(ctx context.Context, taskID, holderID string) (TimerView, error) {
	session, err := s.session(ctx, taskID, holderID)
	if err != nil {
		return TimerView{}, err
	}
	return s.view(session), nil
}

func (s *Service) Start(ctx context.Context, taskID, holderID string) (TimerView, error) {
	session, err := s.session(ctx, taskID, holderID)
	if err != nil {
		return TimerView{}, err
	}
	next, err := session.Start(s.now())
	if err != nil {
		return TimerView{}, err
	}
	saved, err := s.Store.SaveSession(ctx, next)
	if err != nil {
		return TimerView{}, err
	}
	return s.view(saved), nil
}

func (s *Service) Pause(ctx context.Context, taskID, holderID string) (TimerView, error) {
	session, err := s.session(ctx, taskID, holderID)
	if err != nil {
		return TimerView{}, err
	}
	next, err := session.Pause(s.now())
	if err != nil {
		return TimerView{}, err
	}
	saved, err := s.Store.SaveSession(ctx, next)
	if err != nil {
		return TimerView{}, err
	}
	return s.view(saved), nil
}

// Stop ends the session. With commit the hours are logged against the task; otherwise
// they are only reported and the caller may discard them. The commit and the reset of the
// session land in one transaction, so a failed commit leaves the session untouched.
func (s *Service) Stop(ctx context.Context, taskID, holderID string, commit bool) (StopResult, error) {
	task, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return StopResult{}, err
	}
	session, err := s.Store.GetSession(ctx, taskID, holderID)
	if err != nil {
		return StopResult{}, err
	}
	next, seconds, err := session.Stop(s.now())
	if err != nil {
		return StopResult{}, err
	}

	result := StopResult{Seconds: seconds, Hours: SecondsToHours(seconds)}
	err = s.Store.WithTx(ctx, func(store StoreAPI) error {
		if commit && seconds > 0 {
			var err error
			if task.IsSubtask() {
				_, err = store.AddTrackedMinutes(ctx, taskID, roundMinutes(seconds))
			} else {
				_, err = store.AddActualHours(ctx, taskID, result.Hours)
			}
			if err != nil {
				return err
			}
			result.Committed = true
		}
		saved, err := store.SaveSession(ctx, next)
		if err != nil {
			return err
		}
		result.Session = saved
		return nil
	})
	if err != nil {
		return StopResult{}, err
	}
	return result, nil
}

// LogManual adds hours + minutes/60 to the task without touching any timer.
func (s *Service) LogManual(ctx context.Context, taskID string, hours, minutes int) (Task, error) {
	total, err := ManualHours(hours, minutes)
	if err != nil {
		return Task{}, err
	}
	return s.Store.AddActualHours(ctx, taskID, total)
}

// LogTime commits a fractional hour count directly to actual hours.
func (s *Service) LogTime(ctx context.Context, taskID string, hours decimal.Decimal) (Task, error) {
	if hours.IsNegative() {
		return Task{}, ErrNegativeDuration
	}
	if hours.IsZero() {
		return Task{}, ErrEmptyDuration
	}
	return s.Store.AddActualHours(ctx, taskID, hours.Round(2))
}

func (s *Service) Effort(ctx context.Context, taskID string) (Effort, error) {
	task, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return Effort{}, err
	}
	subtasks, err := s.Store.ListSubtasks(ctx, taskID)
	if err != nil {
		return Effort{}, err
	}
	return ComputeEffort(task, subtasks), nil
}

func roundMinutes(seconds int64) int {
	return int((seconds + 30) / 60)
}

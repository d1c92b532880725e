package leave

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrInvalidHoliday = errors.New("holiday requires a date and a name")

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error) {
	return s.Store.ListHolidays(ctx, DateOnly(from), DateOnly(to))
}

func (s *Service) CreateHoliday(ctx context.Context, date time.Time, name string) (Holiday, error) {
	name = strings.TrimSpace(name)
	if date.IsZero() || name == "" {
		return Holiday{}, ErrInvalidHoliday
	}
	return s.Store.CreateHoliday(ctx, DateOnly(date), name)
}

func (s *Service) DeleteHoliday(ctx context.Context, holidayID string) (Holiday, error) {
	return s.Store.DeleteHoliday(ctx, holidayID)
}

func (s *Service) ApprovedLeaves(ctx context.Context, employeeID string, from, to time.Time) ([]ApprovedLeave, error) {
	return s.Store.ApprovedLeaves(ctx, employeeID, DateOnly(from), DateOnly(to))
}

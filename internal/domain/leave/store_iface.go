package leave

import (
	"context"
	"time"
)

type StoreAPI interface {
	ListHolidays(ctx context.Context, from, to time.Time) ([]Holiday, error)
	CreateHoliday(ctx context.Context, date time.Time, name string) (Holiday, error)
	DeleteHoliday(ctx context.Context, holidayID string) (Holiday, error)
	ApprovedLeaves(ctx context.Context, employeeID string, from, to time.Time) ([]ApprovedLeave, error)
}

package attendance

import (
	"context"
	"time"

	"opscore/internal/domain/leave"
)

type StoreAPI interface {
	ListRecords(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error)
	GetRecord(ctx context.Context, recordID string) (Record, error)
	UpsertRecord(ctx context.Context, input RecordInput) (Record, error)
	DeleteRecord(ctx context.Context, recordID string) (Record, error)
	ListGrace(ctx context.Context, from, to time.Time) ([]GracePeriod, error)
	SetGrace(ctx context.Context, grace GracePeriod) (GracePeriod, error)
	ClearGrace(ctx context.Context, date time.Time) (bool, error)
}

// CalendarSource supplies holidays and approved leaves.
type CalendarSource interface {
	ListHolidays(ctx context.Context, from, to time.Time) ([]leave.Holiday, error)
	ApprovedLeaves(ctx context.Context, employeeID string, from, to time.Time) ([]leave.ApprovedLeave, error)
}

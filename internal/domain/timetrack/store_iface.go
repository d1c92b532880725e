package timetrack

import (
	"context"

	"github.com/shopspring/decimal"
)

type StoreAPI interface {
	GetTask(ctx context.Context, taskID string) (Task, error)
	ListSubtasks(ctx context.Context, parentID string) ([]Task, error)
	GetSession(ctx context.Context, taskID, holderID string) (Session, error)
	SaveSession(ctx context.Context, session Session) (Session, error)
	AddActualHours(ctx context.Context, taskID string, hours decimal.Decimal) (Task, error)
	AddTrackedMinutes(ctx context.Context, taskID string, minutes int) (Task, error)
	// WithTx runs fn against a store bound to one transaction; any error rolls it back.
	WithTx(ctx context.Context, fn func(StoreAPI) error) error
}

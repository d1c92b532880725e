package compensation

import "context"

type StoreAPI interface {
	GetPolicy(ctx context.Context, employeeID string) (Policy, error)
	// ListPolicies returns readable policies and, separately, the employees whose stored rates could not be decoded.
	ListPolicies(ctx context.Context) (map[string]Policy, map[string]error, error)
	UpsertPolicy(ctx context.Context, policy Policy) (Policy, error)
	ListAdjustments(ctx context.Context, employeeID, period string) ([]Adjustment, error)
	ListPeriodAdjustments(ctx context.Context, period string) ([]Adjustment, error)
	CreateAdjustment(ctx context.Context, input AdjustmentInput) (Adjustment, error)
	SoftDeleteAdjustment(ctx context.Context, adjustmentID string) (Adjustment, error)
}

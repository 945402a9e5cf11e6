package plan

import (
	"context"

	"github.com/subdesk/subdesk/internal/types"
)

// Repository defines the interface for plan data access
type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	Get(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context, filter *types.PlanFilter) ([]*Plan, error)
	Count(ctx context.Context, filter *types.PlanFilter) (int, error)
	Update(ctx context.Context, plan *Plan) error
	// Delete fails with ErrInvalidOperation while a subscription references the plan
	Delete(ctx context.Context, id string) error
}

package plan

import (
	"context"

	"plans/internal/models"

	"github.com/google/uuid"
)

// Service manages plans and resolves the default plan new subscriptions
// fall back to.
type Service interface {
	// DefaultPlan returns the configured default plan, else the most
	// recent plan flagged default, else nil, nil.
	DefaultPlan(ctx context.Context) (*models.Plan, error)

	Create(ctx context.Context, plan *models.Plan) error
	// Update fails with ErrPlanInUse when subscriptions reference the plan
	// and anything but its active or default flag changes.
	Update(ctx context.Context, plan *models.Plan) error
	Get(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	GetByCode(ctx context.Context, code string) (*models.Plan, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Plan, error)
}

// Usage reports whether subscriptions reference a plan.
type Usage interface {
	ExistsForPlan(ctx context.Context, planID uuid.UUID) (bool, error)
}

// Cache is the subset of the redis cache the plan service reads through.
// A miss is nil, nil.
type Cache interface {
	GetDefaultPlan(ctx context.Context) (*models.Plan, error)
	CacheDefaultPlan(ctx context.Context, plan *models.Plan) error
	GetPlanByCode(ctx context.Context, code string) (*models.Plan, error)
	CachePlan(ctx context.Context, plan *models.Plan) error
	InvalidatePlan(ctx context.Context, plan *models.Plan) error
}

package plan

import (
	"context"
	"errors"
	"fmt"

	billingerrors "plans/internal/errors"
	"plans/internal/models"
	"plans/internal/repositories"

	"github.com/google/uuid"
)

type service struct {
	repo        repositories.PlanRepository
	usage       Usage
	cache       Cache
	defaultCode string
}

// NewService creates a plan service. cache may be nil, in which case every
// lookup goes to the database. defaultCode is the DEFAULT_PLAN setting.
func NewService(repo repositories.PlanRepository, usage Usage, cache Cache, defaultCode string) Service {
	if repo == nil {
		panic("plan repository is required")
	}
	if usage == nil {
		panic("plan usage lookup is required")
	}
	return &service{
		repo:        repo,
		usage:       usage,
		cache:       cache,
		defaultCode: defaultCode,
	}
}

func (s *service) DefaultPlan(ctx context.Context) (*models.Plan, error) {
	if s.cache != nil {
		if plan, err := s.cache.GetDefaultPlan(ctx); err == nil && plan != nil {
			return plan, nil
		}
	}

	plan, err := s.resolveDefault(ctx)
	if err != nil || plan == nil {
		return plan, err
	}

	if s.cache != nil {
		// A failed write only costs the next lookup a query.
		_ = s.cache.CacheDefaultPlan(ctx, plan)
	}
	return plan, nil
}

func (s *service) resolveDefault(ctx context.Context) (*models.Plan, error) {
	if s.defaultCode != "" {
		plan, err := s.repo.GetByCode(ctx, s.defaultCode)
		switch {
		case err == nil:
			return plan, nil
		case !errors.Is(err, billingerrors.ErrPlanNotFound):
			return nil, fmt.Errorf("failed to get configured default plan: %w", err)
		}
	}

	plan, err := s.repo.LatestDefault(ctx)
	if err != nil {
		if errors.Is(err, billingerrors.ErrPlanNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get default plan: %w", err)
	}
	return plan, nil
}

func (s *service) Create(ctx context.Context, plan *models.Plan) error {
	plan.Normalize()
	if err := plan.Validate(); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return err
	}
	s.invalidate(ctx, plan)
	return nil
}

func (s *service) Update(ctx context.Context, plan *models.Plan) error {
	plan.Normalize()
	if err := plan.Validate(); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, plan.ID)
	if err != nil {
		return err
	}
	if !current.SameTerms(plan) {
		inUse, err := s.usage.ExistsForPlan(ctx, plan.ID)
		if err != nil {
			return err
		}
		if inUse {
			return billingerrors.ErrPlanInUse.Withf("%s", current.Code)
		}
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return err
	}
	if current.Code != plan.Code {
		s.invalidate(ctx, current)
	}
	s.invalidate(ctx, plan)
	return nil
}

// invalidate drops the cached copies of plan and the default plan entry,
// since any write may change which plan is the default.
func (s *service) invalidate(ctx context.Context, plan *models.Plan) {
	if s.cache != nil {
		_ = s.cache.InvalidatePlan(ctx, plan)
	}
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByCode(ctx context.Context, code string) (*models.Plan, error) {
	if s.cache != nil {
		if plan, err := s.cache.GetPlanByCode(ctx, code); err == nil && plan != nil {
			return plan, nil
		}
	}

	plan, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.CachePlan(ctx, plan)
	}
	return plan, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	return s.repo.List(ctx, activeOnly)
}

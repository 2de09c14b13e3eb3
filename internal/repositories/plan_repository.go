package repositories

import (
	"context"
	"fmt"

	billingerrors "plans/internal/errors"
	"plans/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error
	Update(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	GetByCode(ctx context.Context, code string) (*models.Plan, error)
	// LatestDefault returns the most recently created default plan.
	LatestDefault(ctx context.Context) (*models.Plan, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Plan, error)
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *models.Plan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

func (r *planRepository) Update(ctx context.Context, plan *models.Plan) error {
	if err := r.db.WithContext(ctx).Save(plan).Error; err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, billingerrors.ErrPlanNotFound.Withf("%s", id)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) GetByCode(ctx context.Context, code string) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&plan).Error; err != nil {
		if isNotFound(err) {
			return nil, billingerrors.ErrPlanNotFound.Withf("%s", code)
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) LatestDefault(ctx context.Context) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.WithContext(ctx).
		Where("is_default = ?", true).
		Order("created_at DESC").
		First(&plan).Error
	if err != nil {
		if isNotFound(err) {
			return nil, billingerrors.ErrPlanNotFound.Withf("no default plan")
		}
		return nil, fmt.Errorf("failed to get default plan: %w", err)
	}
	return &plan, nil
}

func (r *planRepository) List(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	var plans []*models.Plan
	q := r.db.WithContext(ctx).Order("created_at ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Find(&plans).Error; err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"plans/internal/domain/subscription"
	billingerrors "plans/internal/errors"
	"plans/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionRepository interface {
	// Create fails with ErrMultipleRunningSubscriptions when the vault
	// already has a running subscription.
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindRunningByVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Subscription, error)
	// ExistsForPlan reports whether any subscription, in any status,
	// references the plan.
	ExistsForPlan(ctx context.Context, planID uuid.UUID) (bool, error)
	// ListRunningBilledBefore returns running subscriptions whose next
	// billing date is before t.
	ListRunningBilledBefore(ctx context.Context, t time.Time) ([]*models.Subscription, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Omit("Vault", "Plan").Create(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return billingerrors.ErrMultipleRunningSubscriptions.Wrap(err)
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	if err := r.db.WithContext(ctx).Omit("Vault", "Plan").Save(sub).Error; err != nil {
		if isUniqueViolation(err) {
			return billingerrors.ErrMultipleRunningSubscriptions.Wrap(err)
		}
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Preload("Plan").First(&sub, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, billingerrors.ErrSubscriptionNotFound.Withf("%s", id)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindRunningByVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := r.db.WithContext(ctx).
		Where("vault_id = ? AND status IN ?", vaultID, subscription.RunningStatuses).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find running subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) ExistsForPlan(ctx context.Context, planID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("plan_id = ?", planID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check plan usage: %w", err)
	}
	return count > 0, nil
}

func (r *subscriptionRepository) ListRunningBilledBefore(ctx context.Context, t time.Time) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	err := r.db.WithContext(ctx).
		Where("status IN ? AND next_billing_date IS NOT NULL AND next_billing_date < ?", subscription.RunningStatuses, t).
		Order("next_billing_date ASC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}
	return subs, nil
}

package repositories

import (
	"context"
	"fmt"

	billingerrors "plans/internal/errors"
	"plans/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VaultRepository interface {
	// Create stores the vault together with its masked card, if any.
	Create(ctx context.Context, vault *models.Vault) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vault, error)
	GetByToken(ctx context.Context, gatewayName, token string) (*models.Vault, error)
	// FindByFingerprint returns nil, nil when the customer has no vault
	// for that card on the gateway.
	FindByFingerprint(ctx context.Context, gatewayName, customerID, fingerprint string) (*models.Vault, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*models.Vault, error)
	SetDefault(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type vaultRepository struct {
	db *gorm.DB
}

func NewVaultRepository(db *gorm.DB) VaultRepository {
	return &vaultRepository{db: db}
}

func (r *vaultRepository) Create(ctx context.Context, vault *models.Vault) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if vault.StoredCard != nil {
			if err := tx.Create(vault.StoredCard).Error; err != nil {
				return err
			}
			vault.StoredCardID = &vault.StoredCard.ID
		}
		return tx.Omit("StoredCard").Create(vault).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateToken, vault.Token)
		}
		return fmt.Errorf("failed to create vault: %w", err)
	}
	return nil
}

func (r *vaultRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Vault, error) {
	var vault models.Vault
	if err := r.db.WithContext(ctx).Preload("StoredCard").First(&vault, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, billingerrors.ErrVaultNotFound.Withf("%s", id)
		}
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return &vault, nil
}

func (r *vaultRepository) GetByToken(ctx context.Context, gatewayName, token string) (*models.Vault, error) {
	var vault models.Vault
	err := r.db.WithContext(ctx).Preload("StoredCard").
		Where("gateway = ? AND token = ?", gatewayName, token).
		First(&vault).Error
	if err != nil {
		if isNotFound(err) {
			return nil, billingerrors.ErrVaultNotFound.Withf("token %s", token)
		}
		return nil, fmt.Errorf("failed to get vault: %w", err)
	}
	return &vault, nil
}

func (r *vaultRepository) FindByFingerprint(ctx context.Context, gatewayName, customerID, fingerprint string) (*models.Vault, error) {
	var vault models.Vault
	err := r.db.WithContext(ctx).Preload("StoredCard").
		Joins("JOIN stored_cards ON stored_cards.id = vaults.stored_card_id").
		Where("vaults.gateway = ? AND vaults.customer_id = ? AND stored_cards.fingerprint = ?", gatewayName, customerID, fingerprint).
		Order("vaults.created_at ASC").
		First(&vault).Error
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find vault: %w", err)
	}
	return &vault, nil
}

func (r *vaultRepository) ListByCustomer(ctx context.Context, customerID string) ([]*models.Vault, error) {
	var vaults []*models.Vault
	err := r.db.WithContext(ctx).Preload("StoredCard").
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&vaults).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list vaults: %w", err)
	}
	return vaults, nil
}

// SetDefault flags id as the customer's default and clears the others.
func (r *vaultRepository) SetDefault(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vault models.Vault
		if err := tx.First(&vault, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return billingerrors.ErrVaultNotFound.Withf("%s", id)
			}
			return fmt.Errorf("failed to get vault: %w", err)
		}
		if err := tx.Model(&models.Vault{}).
			Where("customer_id = ? AND id <> ?", vault.CustomerID, id).
			Update("is_default", false).Error; err != nil {
			return fmt.Errorf("failed to clear default vault: %w", err)
		}
		return tx.Model(&vault).Update("is_default", true).Error
	})
}

func (r *vaultRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Vault{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete vault: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return billingerrors.ErrVaultNotFound.Withf("%s", id)
	}
	return nil
}

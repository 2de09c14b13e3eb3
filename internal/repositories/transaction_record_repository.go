package repositories

import (
	"context"
	"fmt"

	"plans/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionRecordRepository is append-only.
type TransactionRecordRepository interface {
	Append(ctx context.Context, rec *models.TransactionRecord) error
	// ListByGatewayTransaction returns the transaction and every refund or
	// void recorded against it, oldest first.
	ListByGatewayTransaction(ctx context.Context, gatewayTransactionID string) ([]*models.TransactionRecord, error)
	ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*models.TransactionRecord, error)
}

type transactionRecordRepository struct {
	db *gorm.DB
}

func NewTransactionRecordRepository(db *gorm.DB) TransactionRecordRepository {
	return &transactionRecordRepository{db: db}
}

func (r *transactionRecordRepository) Append(ctx context.Context, rec *models.TransactionRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append transaction record: %w", err)
	}
	return nil
}

func (r *transactionRecordRepository) ListByGatewayTransaction(ctx context.Context, gatewayTransactionID string) ([]*models.TransactionRecord, error) {
	var recs []*models.TransactionRecord
	err := r.db.WithContext(ctx).
		Where("gateway_transaction_id = ? OR parent_transaction_id = ?", gatewayTransactionID, gatewayTransactionID).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction records: %w", err)
	}
	return recs, nil
}

func (r *transactionRecordRepository) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*models.TransactionRecord, error) {
	var recs []*models.TransactionRecord
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transaction records: %w", err)
	}
	return recs, nil
}

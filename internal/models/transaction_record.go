package models

import (
	"time"

	"plans/internal/gateway"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionKind string

const (
	KindCharge      TransactionKind = "charge"
	KindRefund      TransactionKind = "refund"
	KindVoid        TransactionKind = "void"
	KindSubscribe   TransactionKind = "subscribe"
	KindUnsubscribe TransactionKind = "unsubscribe"
	KindRecurring   TransactionKind = "recurring"
)

// TransactionRecord is one attempted processor operation. Records are only
// ever appended, failures included, so callers can decide whether a retry
// is safe.
type TransactionRecord struct {
	ID                   uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Kind                 TransactionKind `gorm:"size:16;not null;index" json:"kind"`
	Gateway              string          `gorm:"size:32;not null" json:"gateway"`
	GatewayTransactionID string          `gorm:"size:128;index" json:"gateway_transaction_id"`
	ParentTransactionID  string          `gorm:"size:128;index" json:"parent_transaction_id,omitempty"`
	Amount               decimal.Decimal `gorm:"type:numeric(12,2)" json:"amount"`
	Currency             string          `gorm:"size:3" json:"currency"`
	Status               string          `gorm:"size:8;not null" json:"status"`
	TransactionStatus    string          `gorm:"size:32" json:"transaction_status"`
	Errors               pq.StringArray  `gorm:"type:text[]" json:"errors,omitempty"`
	Detail               StringMap       `gorm:"type:jsonb" json:"detail,omitempty"`
	SubscriptionID       *uuid.UUID      `gorm:"type:uuid;index" json:"subscription_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

func (r *TransactionRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// NewTransactionRecord captures res. Amount and currency describe the
// request and are overridden by the processor transaction when present.
func NewTransactionRecord(kind TransactionKind, gatewayName string, amount decimal.Decimal, currency string, res *gateway.Result) *TransactionRecord {
	rec := &TransactionRecord{
		Kind:     kind,
		Gateway:  gatewayName,
		Amount:   amount,
		Currency: currency,
		Status:   gateway.StatusFailure,
	}
	if res == nil {
		return rec
	}
	rec.Status = res.Status
	rec.Errors = pq.StringArray(res.Errors)
	if tx := res.Transaction; tx != nil {
		rec.GatewayTransactionID = tx.ID
		rec.TransactionStatus = string(tx.Status)
		rec.Detail = StringMap(tx.Detail)
		if !tx.Amount.IsZero() {
			rec.Amount = tx.Amount
		}
		if tx.Currency != "" {
			rec.Currency = tx.Currency
		}
	}
	return rec
}

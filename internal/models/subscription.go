package models

import (
	"time"

	"plans/internal/domain/subscription"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Subscription ties a Vault to a Plan. At most one running subscription
// exists per vault, enforced by a partial unique index.
type Subscription struct {
	BaseModel
	GatewaySubscriptionID string              `gorm:"size:128;index" json:"gateway_subscription_id"`
	VaultID               uuid.UUID           `gorm:"type:uuid;not null;index" json:"vault_id"`
	PlanID                uuid.UUID           `gorm:"type:uuid;not null;index" json:"plan_id"`
	Status                subscription.Status `gorm:"size:16;not null;index" json:"status"`
	StartDate             time.Time           `json:"start_date"`
	NextBillingDate       *time.Time          `json:"next_billing_date"`
	CanceledAt            *time.Time          `json:"canceled_at,omitempty"`
	ExpiredAt             *time.Time          `json:"expired_at,omitempty"`
	Metadata              datatypes.JSONMap   `gorm:"type:jsonb" json:"metadata,omitempty"`

	Vault *Vault `gorm:"foreignKey:VaultID" json:"-"`
	Plan  *Plan  `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (s *Subscription) IsRunning() bool {
	return s.Status.IsRunning()
}

// IsExpiredAt is the derived expiry check. It never changes Status.
func (s *Subscription) IsExpiredAt(now time.Time) bool {
	return subscription.IsExpiredAt(s.Status, s.NextBillingDate, now)
}

// Apply moves the subscription along e and stamps the terminal dates.
func (s *Subscription) Apply(e subscription.Event, at time.Time) error {
	next, err := subscription.Next(s.Status, e)
	if err != nil {
		return err
	}
	s.Status = next
	switch next {
	case subscription.StatusCanceled:
		s.CanceledAt = &at
	case subscription.StatusExpired:
		s.ExpiredAt = &at
	}
	return nil
}

package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vault is a processor token standing for a card and customer pair.
// Only IsDefault changes after creation. Unstored vaults are soft deleted
// so subscription history keeps its reference.
type Vault struct {
	BaseModel
	Gateway           string         `gorm:"size:32;not null;uniqueIndex:idx_vaults_gateway_token" json:"gateway"`
	Token             string         `gorm:"size:128;not null;uniqueIndex:idx_vaults_gateway_token" json:"token"`
	CustomerID        string         `gorm:"size:64;index" json:"customer_id"`
	GatewayCustomerID string         `gorm:"size:128" json:"gateway_customer_id"`
	StoredCardID      *uuid.UUID     `gorm:"type:uuid" json:"stored_card_id,omitempty"`
	StoredCard        *StoredCard    `gorm:"foreignKey:StoredCardID" json:"stored_card,omitempty"`
	IsDefault         bool           `gorm:"default:false" json:"is_default"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

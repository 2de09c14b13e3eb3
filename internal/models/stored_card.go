package models

import (
	"strings"

	"plans/internal/domain/card"
)

// StoredCard is the masked local copy of a card held by a processor. The
// number and CVV are never persisted.
type StoredCard struct {
	BaseModel
	CustomerID  string `gorm:"size:64;index" json:"customer_id"`
	HolderName  string `gorm:"size:128" json:"holder_name"`
	Brand       string `gorm:"size:32" json:"brand"`
	FirstSix    string `gorm:"size:6" json:"first_six"`
	LastFour    string `gorm:"size:4" json:"last_four"`
	ExpMonth    int    `json:"exp_month"`
	ExpYear     int    `json:"exp_year"`
	Fingerprint string `gorm:"size:64;index" json:"-"`
}

// NewStoredCard masks c. The card is expected to have been validated, so
// Brand is set.
func NewStoredCard(customerID string, c *card.Card, fingerprint string) *StoredCard {
	return &StoredCard{
		CustomerID:  customerID,
		HolderName:  strings.TrimSpace(c.HolderName),
		Brand:       c.BrandName(),
		FirstSix:    c.FirstSix(),
		LastFour:    c.LastFour(),
		ExpMonth:    c.ExpMonth,
		ExpYear:     c.ExpYear,
		Fingerprint: fingerprint,
	}
}

// Masked renders the card the way receipts show it.
func (s *StoredCard) Masked() string {
	return s.FirstSix + "******" + s.LastFour
}

package subscription

import (
	"time"

	"plans/internal/domain/card"
	"plans/internal/gateway"

	"github.com/shopspring/decimal"
)

// SubscribeRequest names the local customer, the card and the processor
// options. Options.PlanID selects the plan by code.
type SubscribeRequest struct {
	CustomerID string
	Card       *card.Card
	Options    gateway.Options
}

// RecurringOutcome is the processor report of one billing cycle.
type RecurringOutcome struct {
	Result *gateway.Result
	// At is when the cycle was billed. Zero means now.
	At time.Time
}

type Config struct {
	FingerprintKey    []byte
	TaxPercent        decimal.Decimal
	StoreCustomerInfo bool
	// Locker is optional.
	Locker Locker
	Clock  func() time.Time
}

// Metadata keys stamped on new subscriptions.
const (
	MetaPrice      = "price"
	MetaGrossPrice = "gross_price"
	MetaTaxPercent = "tax_percent"
	MetaCurrency   = "currency"
)

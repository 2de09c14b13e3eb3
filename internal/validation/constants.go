package validation

import "github.com/shopspring/decimal"

const (
	// MaxAmountScale is the number of decimal places kept for money.
	MaxAmountScale = 2

	// String lengths
	MaxPlanNameLength    = 30
	MaxPlanCodeLength    = 20
	MaxDescriptionLength = 500
)

// MaxPrice matches numeric(7,2).
var MaxPrice = decimal.New(1, 5)

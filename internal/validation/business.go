package validation

import (
	"github.com/shopspring/decimal"
)

// Amount checks that a charge or refund amount is positive and has at most
// two decimal places.
func (v *Validator) Amount(field string, amount decimal.Decimal) {
	v.Check(amount.IsPositive(), field, "must be greater than zero")
	v.Check(amount.Equal(amount.Round(MaxAmountScale)), field, "must have at most 2 decimal places")
}

// Price checks a plan price against the storage precision.
func (v *Validator) Price(field string, price decimal.Decimal) {
	v.Check(!price.IsNegative(), field, "must not be negative")
	v.Check(price.LessThan(MaxPrice), field, "must be less than "+MaxPrice.String())
	v.Check(price.Equal(price.Round(MaxAmountScale)), field, "must have at most 2 decimal places")
}

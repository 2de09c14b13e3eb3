// Package card validates payment cards before they reach a processor:
// number format, Luhn checksum, expiry and brand detection.
package card

import (
	"strings"
	"time"
)

// Card is a payment instrument presented for a single operation.
// Brand stays nil until a gateway has checked the number is supported.
type Card struct {
	HolderName string
	Number     string
	CVV        string
	ExpMonth   int
	ExpYear    int
	Brand      *Brand
}

// New builds a card from raw caller input.
func New(holder, number, cvv string, month, year int) *Card {
	return &Card{
		HolderName: holder,
		Number:     number,
		CVV:        cvv,
		ExpMonth:   month,
		ExpYear:    year,
	}
}

// IsValid reports whether the card passes every check as of now.
func (c *Card) IsValid() bool {
	return c.IsValidAt(time.Now())
}

// IsValidAt reports whether the card is well formed, Luhn valid, has all
// required attributes and is not expired at the given instant.
func (c *Card) IsValidAt(now time.Time) bool {
	return c.HasValidFormat() &&
		c.IsLuhnValid() &&
		c.hasRequiredAttrs() &&
		!c.IsExpiredAt(now)
}

// HasValidFormat reports whether the number is a non-empty string of ASCII
// digits with no separators.
func (c *Card) HasValidFormat() bool {
	return isDigits(c.Number)
}

// IsLuhnValid runs the mod-10 checksum over the literal digit string.
func (c *Card) IsLuhnValid() bool {
	return Luhn(c.Number)
}

// IsExpired reports whether the card is expired as of now.
func (c *Card) IsExpired() bool {
	return c.IsExpiredAt(time.Now())
}

// IsExpiredAt reports whether now falls strictly after the last calendar
// day of the expiry month, evaluated in now's location.
func (c *Card) IsExpiredAt(now time.Time) bool {
	if c.ExpMonth < 1 || c.ExpMonth > 12 {
		return true
	}
	firstOfNext := time.Date(c.ExpYear, time.Month(c.ExpMonth)+1, 1, 0, 0, 0, 0, now.Location())
	return !now.Before(firstOfNext)
}

func (c *Card) hasRequiredAttrs() bool {
	return strings.TrimSpace(c.HolderName) != "" &&
		c.CVV != "" &&
		c.ExpYear > 0 &&
		c.ExpMonth >= 1 && c.ExpMonth <= 12
}

// FirstSix returns the issuer identification digits, or "" for short numbers.
func (c *Card) FirstSix() string {
	if len(c.Number) < 6 {
		return ""
	}
	return c.Number[:6]
}

// LastFour returns the trailing four digits, or "" for short numbers.
func (c *Card) LastFour() string {
	if len(c.Number) < 4 {
		return ""
	}
	return c.Number[len(c.Number)-4:]
}

// Masked renders the number with everything but first six and last four hidden.
func (c *Card) Masked() string {
	n := len(c.Number)
	if n < 10 {
		return strings.Repeat("*", n)
	}
	return c.Number[:6] + strings.Repeat("*", n-10) + c.Number[n-4:]
}

// BrandName returns the assigned brand name, or "" while undetermined.
func (c *Card) BrandName() string {
	if c.Brand == nil {
		return ""
	}
	return c.Brand.Name
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

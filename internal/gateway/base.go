package gateway

import (
	"context"
	"time"

	"plans/internal/domain/card"
	billingerrors "plans/internal/errors"

	"github.com/shopspring/decimal"
)

// Base carries the attributes shared by every adapter and the default
// behavior of the contract. Every operation other than Validate fails with
// ErrNotImplemented until the adapter overrides it.
type Base struct {
	name     string
	currency string
	brands   []*card.Brand
	now      func() time.Time
}

// NewBase declares an adapter. Brands are tried in the given order.
func NewBase(name, currency string, brands ...*card.Brand) Base {
	if len(brands) == 0 {
		brands = card.All
	}
	return Base{
		name:     name,
		currency: currency,
		brands:   append([]*card.Brand(nil), brands...),
		now:      time.Now,
	}
}

// WithClock returns a copy of b whose expiry checks use now.
func (b Base) WithClock(now func() time.Time) Base {
	if now != nil {
		b.now = now
	}
	return b
}

func (b Base) Name() string {
	return b.name
}

func (b Base) DefaultCurrency() string {
	return b.currency
}

func (b Base) SupportedBrands() []*card.Brand {
	return append([]*card.Brand(nil), b.brands...)
}

// Now is the adapter clock.
func (b Base) Now() time.Time {
	if b.now == nil {
		return time.Now()
	}
	return b.now()
}

func (b Base) Validate(c *card.Card) (bool, error) {
	if c == nil {
		return false, billingerrors.ErrInvalidCard.Withf("no card given")
	}
	for _, brand := range b.brands {
		ok, err := brand.Accept(c.Number)
		if err != nil {
			return false, err
		}
		if ok {
			c.Brand = brand
			return c.IsValidAt(b.Now()), nil
		}
	}
	return false, billingerrors.ErrCardNotSupported.Withf("%s gateway", b.name)
}

// PreValidate runs Validate ahead of a processor call. An invalid card
// fails with ErrInvalidCard, wrapping the validation error when there is one.
func (b Base) PreValidate(c *card.Card) error {
	ok, err := b.Validate(c)
	if err != nil {
		return billingerrors.ErrInvalidCard.Wrap(err)
	}
	if !ok {
		return billingerrors.ErrInvalidCard
	}
	return nil
}

func (b Base) notImplemented(op string) error {
	return billingerrors.ErrNotImplemented.Withf("%s: %s", b.name, op)
}

func (b Base) Charge(ctx context.Context, c *card.Card, amount decimal.Decimal, opts Options) (*Result, error) {
	return nil, b.notImplemented("charge")
}

func (b Base) Refund(ctx context.Context, transactionID string, amount *decimal.Decimal) (*Result, error) {
	return nil, b.notImplemented("refund")
}

func (b Base) Void(ctx context.Context, transactionID string) (*Result, error) {
	return nil, b.notImplemented("void")
}

func (b Base) Subscribe(ctx context.Context, c *card.Card, opts Options) (*Result, error) {
	return nil, b.notImplemented("subscribe")
}

func (b Base) Unsubscribe(ctx context.Context, opts Options) (*Result, error) {
	return nil, b.notImplemented("unsubscribe")
}

func (b Base) Store(ctx context.Context, c *card.Card, opts Options) (*Result, error) {
	return nil, b.notImplemented("store")
}

func (b Base) Unstore(ctx context.Context, opts Options) (*Result, error) {
	return nil, b.notImplemented("unstore")
}

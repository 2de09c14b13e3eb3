// Package gateway defines the contract every payment processor adapter
// implements and the processor-neutral Result shape adapters return.
//
// Processor outcomes such as declines are reported through Result. Errors
// are reserved for contract misuse, missing records and configuration
// problems, all drawn from plans/internal/errors.
package gateway

import (
	"context"

	"plans/internal/domain/card"

	"github.com/shopspring/decimal"
)

// Gateway is a payment processor backend. Implementations embed Base and
// override the operations they support.
//
// Operations are not idempotent and are never retried here. The context is
// handed to the processor transport untouched.
type Gateway interface {
	Name() string
	DefaultCurrency() string
	SupportedBrands() []*card.Brand

	// Validate assigns the first accepting brand to c and reports whether
	// the card is valid. It fails with ErrCardNotSupported when no brand
	// accepts the number.
	Validate(c *card.Card) (bool, error)

	Charge(ctx context.Context, c *card.Card, amount decimal.Decimal, opts Options) (*Result, error)
	// Refund refunds the whole transaction when amount is nil.
	Refund(ctx context.Context, transactionID string, amount *decimal.Decimal) (*Result, error)
	Void(ctx context.Context, transactionID string) (*Result, error)

	Subscribe(ctx context.Context, c *card.Card, opts Options) (*Result, error)
	Unsubscribe(ctx context.Context, opts Options) (*Result, error)

	Store(ctx context.Context, c *card.Card, opts Options) (*Result, error)
	Unstore(ctx context.Context, opts Options) (*Result, error)
}

// Settings carries the processor credentials resolved at startup.
type Settings struct {
	TestMode          bool
	SecretKey         string
	PublicKey         string
	MerchantAccountID string
}

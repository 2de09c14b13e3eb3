package payment

import (
	"context"

	"plans/internal/domain/card"
	"plans/internal/gateway"
	"plans/internal/models"

	"github.com/shopspring/decimal"
)

// Service runs one-off payments through the configured gateway and keeps
// an append-only record of every attempt.
//
// Declines come back as failure results and are recorded. Invalid amounts
// and contact fields are rejected up front. Errors from the gateway, such
// as an invalid card or an unknown transaction, are returned unchanged.
// Neither leaves a record since nothing reached the processor.
type Service interface {
	Charge(ctx context.Context, c *card.Card, amount decimal.Decimal, opts gateway.Options) (*gateway.Result, error)
	// Refund refunds the whole remaining amount when amount is nil.
	Refund(ctx context.Context, transactionID string, amount *decimal.Decimal) (*gateway.Result, error)
	Void(ctx context.Context, transactionID string) (*gateway.Result, error)
	// History lists the records of a transaction and of every refund or
	// void issued against it.
	History(ctx context.Context, transactionID string) ([]*models.TransactionRecord, error)
}

type Config struct {
	// StoreCustomerInfo false sends only the customer id and email to the
	// processor.
	StoreCustomerInfo bool
}

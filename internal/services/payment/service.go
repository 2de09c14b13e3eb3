package payment

import (
	"context"
	"fmt"

	"plans/internal/domain/card"
	"plans/internal/gateway"
	"plans/internal/models"
	"plans/internal/repositories"
	"plans/internal/validation"

	"github.com/shopspring/decimal"
)

type service struct {
	gw      gateway.Gateway
	records repositories.TransactionRecordRepository
	config  Config
}

func NewService(gw gateway.Gateway, records repositories.TransactionRecordRepository, config Config) Service {
	if gw == nil {
		panic("gateway is required")
	}
	if records == nil {
		panic("transaction record repository is required")
	}
	return &service{gw: gw, records: records, config: config}
}

func (s *service) Charge(ctx context.Context, c *card.Card, amount decimal.Decimal, opts gateway.Options) (*gateway.Result, error) {
	v := validation.New()
	v.Amount("amount", amount)
	if err := v.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !s.config.StoreCustomerInfo {
		opts = opts.WithoutCustomerInfo()
	}

	res, err := s.gw.Charge(ctx, c, amount, opts)
	if err != nil {
		return nil, err
	}
	rec := models.NewTransactionRecord(models.KindCharge, s.gw.Name(), amount, opts.CurrencyOr(s.gw.DefaultCurrency()), res)
	return res, s.append(ctx, rec)
}

func (s *service) Refund(ctx context.Context, transactionID string, amount *decimal.Decimal) (*gateway.Result, error) {
	if amount != nil {
		v := validation.New()
		v.Amount("amount", *amount)
		if err := v.Err(); err != nil {
			return nil, err
		}
	}

	res, err := s.gw.Refund(ctx, transactionID, amount)
	if err != nil {
		return nil, err
	}
	requested := decimal.Zero
	if amount != nil {
		requested = *amount
	}
	rec := models.NewTransactionRecord(models.KindRefund, s.gw.Name(), requested, "", res)
	rec.ParentTransactionID = transactionID
	return res, s.append(ctx, rec)
}

func (s *service) Void(ctx context.Context, transactionID string) (*gateway.Result, error) {
	res, err := s.gw.Void(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	rec := models.NewTransactionRecord(models.KindVoid, s.gw.Name(), decimal.Zero, "", res)
	// A void acts on the original transaction, which the result echoes.
	if rec.GatewayTransactionID == transactionID {
		rec.GatewayTransactionID = ""
	}
	rec.ParentTransactionID = transactionID
	return res, s.append(ctx, rec)
}

// append keeps the result usable when recording fails: the processor call
// already happened and the caller must not retry it blindly.
func (s *service) append(ctx context.Context, rec *models.TransactionRecord) error {
	if err := s.records.Append(ctx, rec); err != nil {
		return fmt.Errorf("failed to record %s %s: %w", rec.Kind, rec.GatewayTransactionID, err)
	}
	return nil
}

func (s *service) History(ctx context.Context, transactionID string) ([]*models.TransactionRecord, error) {
	return s.records.ListByGatewayTransaction(ctx, transactionID)
}

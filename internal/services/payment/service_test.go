package payment

import (
	"context"
	"errors"
	"testing"

	"plans/internal/domain/card"
	billingerrors "plans/internal/errors"
	"plans/internal/gateway"
	"plans/internal/gateway/sandbox"
	stripegw "plans/internal/gateway/stripe"
	"plans/internal/models"
	"plans/internal/repositories/repotest"
	"plans/internal/validation"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v72"
)

type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) Append(ctx context.Context, rec *models.TransactionRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockRecordRepository) ListByGatewayTransaction(ctx context.Context, id string) ([]*models.TransactionRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]*models.TransactionRecord), args.Error(1)
}

func (m *MockRecordRepository) ListBySubscription(ctx context.Context, id uuid.UUID) ([]*models.TransactionRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]*models.TransactionRecord), args.Error(1)
}

var declineAmount = decimal.RequireFromString("2000.00")

func validCard() *card.Card {
	return card.New("John Doe", "4111111111111111", "111", 12, 2090)
}

func newTestService() (Service, *sandbox.Sandbox, *repotest.Store) {
	gw := sandbox.NewSandbox(sandbox.WithDeclineAmount(declineAmount))
	store := repotest.NewStore()
	return NewService(gw, store.Records(), Config{StoreCustomerInfo: true}), gw, store
}

func TestService_Charge(t *testing.T) {
	tests := []struct {
		name       string
		amount     decimal.Decimal
		wantStatus string
		wantTx     gateway.TransactionStatus
	}{
		{"settles", decimal.RequireFromString("10.00"), gateway.StatusSuccess, gateway.TxSubmittedForSettlement},
		{"declined", declineAmount, gateway.StatusFailure, gateway.TxProcessorDeclined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, store := newTestService()

			res, err := svc.Charge(context.Background(), validCard(), tt.amount, gateway.Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantTx, res.Transaction.Status)

			records := store.AllRecords()
			require.Len(t, records, 1)
			assert.Equal(t, models.KindCharge, records[0].Kind)
			assert.Equal(t, tt.wantStatus, records[0].Status)
			assert.Equal(t, string(tt.wantTx), records[0].TransactionStatus)
			assert.Equal(t, "USD", records[0].Currency)
			assert.Equal(t, res.TransactionID(), records[0].GatewayTransactionID)
		})
	}
}

func TestService_ChargeDeclineKeepsProcessorDetail(t *testing.T) {
	svc, _, store := newTestService()

	_, err := svc.Charge(context.Background(), validCard(), declineAmount, gateway.Options{})
	require.NoError(t, err)

	rec := store.AllRecords()[0]
	assert.Equal(t, sandbox.DeclineCode, rec.Detail[gateway.DetailProcessorResponseCode])
	assert.Equal(t, []string{sandbox.DeclineText}, []string(rec.Errors))
}

func TestService_ChargeInvalidCardLeavesNoRecord(t *testing.T) {
	svc, gw, store := newTestService()
	unsupported := card.New("John Doe", "3530111333300000", "111", 12, 2090)

	res, err := svc.Charge(context.Background(), unsupported, decimal.NewFromInt(10), gateway.Options{})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, billingerrors.ErrInvalidCard))
	assert.True(t, errors.Is(err, billingerrors.ErrCardNotSupported))
	assert.Empty(t, store.AllRecords())
	assert.Equal(t, 0, gw.CallCount(sandbox.CallSend))
}

func TestService_RejectsInvalidInputBeforeTheGateway(t *testing.T) {
	ctx := context.Background()
	subCent := decimal.RequireFromString("1.005")
	negative := decimal.NewFromInt(-5)

	tests := []struct {
		name string
		call func(Service) error
	}{
		{"zero charge", func(s Service) error {
			_, err := s.Charge(ctx, validCard(), decimal.Zero, gateway.Options{})
			return err
		}},
		{"sub-cent charge", func(s Service) error {
			_, err := s.Charge(ctx, validCard(), subCent, gateway.Options{})
			return err
		}},
		{"malformed email", func(s Service) error {
			_, err := s.Charge(ctx, validCard(), decimal.NewFromInt(10), gateway.Options{Customer: gateway.Customer{Email: "john@"}})
			return err
		}},
		{"malformed phone", func(s Service) error {
			_, err := s.Charge(ctx, validCard(), decimal.NewFromInt(10), gateway.Options{Customer: gateway.Customer{Phone: "call me"}})
			return err
		}},
		{"negative refund", func(s Service) error {
			_, err := s.Refund(ctx, "tx_any", &negative)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, gw, store := newTestService()

			var fieldErrs validation.Errors
			assert.True(t, errors.As(tt.call(svc), &fieldErrs))
			assert.Equal(t, 0, gw.CallCount(sandbox.CallSend))
			assert.Equal(t, 0, gw.CallCount(sandbox.CallLookup))
			assert.Empty(t, store.AllRecords())
		})
	}
}

// recordingAPI captures what the Stripe adapter sends for a charge.
type recordingAPI struct {
	stripegw.API
	methods []*stripe.PaymentMethodParams
	intents []*stripe.PaymentIntentParams
}

func (r *recordingAPI) NewPaymentMethod(ctx context.Context, params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error) {
	r.methods = append(r.methods, params)
	return &stripe.PaymentMethod{ID: "pm_1"}, nil
}

func (r *recordingAPI) NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	r.intents = append(r.intents, params)
	return &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusSucceeded, Amount: *params.Amount, Currency: "usd"}, nil
}

func TestService_ChargeCustomerInfo(t *testing.T) {
	opts := gateway.Options{
		Customer:        gateway.Customer{FirstName: "Jane", LastName: "Roe", Phone: "+33 1 23 45 67 89", Email: "jane@example.com"},
		BillingAddress:  gateway.Address{Locality: "Lyon", CountryCode: "FR"},
		ShippingAddress: gateway.Address{Locality: "Paris", CountryCode: "FR"},
	}

	tests := []struct {
		name      string
		store     bool
		wantPhone string
		wantCity  string
		wantShip  bool
	}{
		{"sent when stored", true, "+33 1 23 45 67 89", "Lyon", true},
		{"stripped otherwise", false, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &recordingAPI{}
			svc := NewService(stripegw.NewWithAPI(api), repotest.NewStore().Records(), Config{StoreCustomerInfo: tt.store})

			res, err := svc.Charge(context.Background(), validCard(), decimal.NewFromInt(10), opts)
			require.NoError(t, err)
			require.True(t, res.IsSuccess())

			require.Len(t, api.methods, 1)
			billing := api.methods[0].BillingDetails
			assert.Equal(t, "jane@example.com", *billing.Email)
			assert.Equal(t, tt.wantPhone, *billing.Phone)
			assert.Equal(t, tt.wantCity, *billing.Address.City)

			require.Len(t, api.intents, 1)
			assert.Equal(t, tt.wantShip, api.intents[0].Shipping != nil)
		})
	}
}

func TestService_RefundAndVoidHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	charge, err := svc.Charge(ctx, validCard(), decimal.RequireFromString("50.00"), gateway.Options{})
	require.NoError(t, err)
	txID := charge.TransactionID()

	partial := decimal.RequireFromString("20.00")
	refund, err := svc.Refund(ctx, txID, &partial)
	require.NoError(t, err)
	assert.True(t, refund.IsSuccess())

	tooMuch := decimal.RequireFromString("40.00")
	over, err := svc.Refund(ctx, txID, &tooMuch)
	require.NoError(t, err)
	assert.False(t, over.IsSuccess())

	void, err := svc.Void(ctx, txID)
	require.NoError(t, err)
	assert.True(t, void.IsSuccess())

	history, err := svc.History(ctx, txID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, models.KindCharge, history[0].Kind)
	assert.Equal(t, models.KindRefund, history[1].Kind)
	assert.Equal(t, txID, history[1].ParentTransactionID)
	assert.Equal(t, "20", history[1].Amount.String())
	assert.Equal(t, gateway.StatusFailure, history[2].Status)
	assert.Equal(t, "40", history[2].Amount.String())
	assert.Equal(t, models.KindVoid, history[3].Kind)
	assert.Equal(t, string(gateway.TxVoided), history[3].TransactionStatus)
}

func TestService_RefundUnknownTransaction(t *testing.T) {
	svc, _, store := newTestService()

	_, err := svc.Refund(context.Background(), "tx_missing", nil)
	assert.True(t, errors.Is(err, billingerrors.ErrTransactionNotFound))
	assert.Empty(t, store.AllRecords())
}

func TestService_RecordFailureStillReturnsResult(t *testing.T) {
	records := new(MockRecordRepository)
	records.On("Append", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := NewService(sandbox.NewSandbox(), records, Config{})
	res, err := svc.Charge(context.Background(), validCard(), decimal.NewFromInt(5), gateway.Options{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	require.NotNil(t, res)
	assert.True(t, res.IsSuccess())
	records.AssertExpectations(t)
}

package models

import (
	"errors"
	"testing"
	"time"

	"plans/internal/domain/card"
	"plans/internal/domain/subscription"
	billingerrors "plans/internal/errors"
	"plans/internal/gateway"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan_Trial(t *testing.T) {
	start := time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC)

	noTrial := &Plan{}
	assert.False(t, noTrial.HasTrial())
	assert.Equal(t, start, noTrial.TrialEnd(start))
	assert.Equal(t, subscription.Monthly, noTrial.BillingPeriod())

	trial := &Plan{TrialPeriodAmount: 14, TrialPeriodUnit: "day", BillingPeriodAmount: 1, BillingPeriodUnit: "month"}
	assert.True(t, trial.HasTrial())
	assert.Equal(t, start.AddDate(0, 0, 14), trial.TrialEnd(start))
}

func TestPlan_GrossPrice(t *testing.T) {
	plan := &Plan{Price: decimal.RequireFromString("9.99")}

	assert.Equal(t, "9.99", plan.GrossPrice(decimal.Zero).StringFixed(2))
	assert.Equal(t, "10.99", plan.GrossPrice(decimal.NewFromInt(10)).StringFixed(2))
	assert.Equal(t, "11.99", plan.GrossPrice(decimal.RequireFromString("20")).StringFixed(2))
}

func TestPlan_Validate(t *testing.T) {
	valid := func() *Plan {
		p := &Plan{Code: " basic ", Name: "Basic", Price: decimal.RequireFromString("9.99")}
		p.Normalize()
		return p
	}

	p := valid()
	require.NoError(t, p.Validate())
	assert.Equal(t, "basic", p.Code)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "month", p.BillingPeriodUnit)

	tests := []struct {
		name   string
		mutate func(p *Plan)
		field  string
	}{
		{"missing code", func(p *Plan) { p.Code = "" }, "code"},
		{"long name", func(p *Plan) { p.Name = "a name that is far too long for a plan" }, "name"},
		{"negative price", func(p *Plan) { p.Price = decimal.NewFromInt(-1) }, "price"},
		{"price overflow", func(p *Plan) { p.Price = decimal.NewFromInt(100000) }, "price"},
		{"three decimals", func(p *Plan) { p.Price = decimal.RequireFromString("1.999") }, "price"},
		{"bad currency", func(p *Plan) { p.Currency = "euro" }, "currency"},
		{"bad trial unit", func(p *Plan) { p.TrialPeriodAmount, p.TrialPeriodUnit = 1, "week" }, "trial_period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestSubscription_Apply(t *testing.T) {
	at := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{Status: subscription.StatusPending}

	require.NoError(t, sub.Apply(subscription.EventPaymentSucceeded, at))
	assert.Equal(t, subscription.StatusActive, sub.Status)

	require.NoError(t, sub.Apply(subscription.EventCancel, at))
	assert.Equal(t, subscription.StatusCanceled, sub.Status)
	assert.Equal(t, &at, sub.CanceledAt)
	assert.False(t, sub.IsRunning())

	err := sub.Apply(subscription.EventPaymentSucceeded, at)
	assert.True(t, errors.Is(err, billingerrors.ErrInvalidTransition))
	assert.Equal(t, subscription.StatusCanceled, sub.Status)
}

func TestSubscription_IsExpiredAtDoesNotMutate(t *testing.T) {
	past := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{Status: subscription.StatusActive, NextBillingDate: &past}

	assert.True(t, sub.IsExpiredAt(past.AddDate(0, 0, 1)))
	assert.Equal(t, subscription.StatusActive, sub.Status)
	assert.Nil(t, sub.ExpiredAt)
}

func TestNewStoredCard(t *testing.T) {
	c := card.New(" John Doe ", "4111111111111111", "111", 12, 2090)
	c.Brand = card.Visa

	sc := NewStoredCard("customer-1", c, "fp")
	assert.Equal(t, "John Doe", sc.HolderName)
	assert.Equal(t, "Visa", sc.Brand)
	assert.Equal(t, "411111******1111", sc.Masked())
	assert.Equal(t, "fp", sc.Fingerprint)
}

func TestNewTransactionRecord(t *testing.T) {
	tx := gateway.NewTransaction("tx_1", gateway.TxProcessorDeclined, decimal.Zero, "", map[string]string{
		gateway.DetailProcessorResponseCode: "2000",
	})
	rec := NewTransactionRecord(KindCharge, "Sandbox", decimal.NewFromInt(20), "USD", gateway.Failure(tx, "Do Not Honor"))

	assert.Equal(t, KindCharge, rec.Kind)
	assert.Equal(t, gateway.StatusFailure, rec.Status)
	assert.Equal(t, "tx_1", rec.GatewayTransactionID)
	assert.Equal(t, "processor_declined", rec.TransactionStatus)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, "2000", rec.Detail[gateway.DetailProcessorResponseCode])
	assert.Equal(t, []string{"Do Not Honor"}, []string(rec.Errors))

	empty := NewTransactionRecord(KindVoid, "Sandbox", decimal.Zero, "", nil)
	assert.Equal(t, gateway.StatusFailure, empty.Status)
}

func TestStringMap_ValueScan(t *testing.T) {
	m := StringMap{"a": "1"}
	v, err := m.Value()
	require.NoError(t, err)

	var scanned StringMap
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, m, scanned)

	require.NoError(t, scanned.Scan(`{"b":"2"}`))
	assert.Equal(t, StringMap{"b": "2"}, scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)

	assert.Error(t, scanned.Scan(42))

	var nilMap StringMap
	v, err = nilMap.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

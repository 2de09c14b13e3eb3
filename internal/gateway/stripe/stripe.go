// Package stripegw adapts Stripe to the gateway contract. Charges run as
// confirmed PaymentIntents and stored cards are PaymentMethods attached to
// a Customer.
package stripegw

import (
	"context"
	"strconv"
	"strings"

	"plans/internal/domain/card"
	billingerrors "plans/internal/errors"
	"plans/internal/gateway"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v72"
)

// Key is the registry key of the Stripe processor.
const Key = "stripe"

// metadataIIN holds the first six digits, which Stripe does not return.
const metadataIIN = "iin"

type Stripe struct {
	gateway.Base
	api API
}

// New is the registry constructor.
func New(s gateway.Settings) (gateway.Gateway, error) {
	if err := checkSettings(s); err != nil {
		return nil, err
	}
	return NewWithAPI(NewAPI(s.SecretKey)), nil
}

// NewWithAPI builds the adapter over an existing API.
func NewWithAPI(api API) *Stripe {
	if api == nil {
		panic("stripe api is required")
	}
	return &Stripe{
		Base: gateway.NewBase("Stripe", "USD", card.Visa, card.MasterCard, card.AmericanExpress, card.Discover),
		api:  api,
	}
}

func checkSettings(s gateway.Settings) error {
	if s.SecretKey == "" {
		return billingerrors.ErrGatewayNotConfigured.Withf("stripe secret key is missing")
	}
	if s.TestMode && !strings.HasPrefix(s.SecretKey, "sk_test_") {
		return billingerrors.ErrGatewayNotConfigured.Withf("test mode requires a sk_test_ key")
	}
	return nil
}

func (s *Stripe) Charge(ctx context.Context, c *card.Card, amount decimal.Decimal, opts gateway.Options) (*gateway.Result, error) {
	if err := s.PreValidate(c); err != nil {
		return nil, err
	}

	pm, err := s.api.NewPaymentMethod(ctx, paymentMethodParams(c, opts))
	if err != nil {
		return failure(err), nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(toMinorUnits(amount)),
		Currency:      stripe.String(strings.ToLower(opts.CurrencyOr(s.DefaultCurrency()))),
		PaymentMethod: stripe.String(pm.ID),
		Confirm:       stripe.Bool(true),
	}
	if opts.CustomerID != "" {
		params.Customer = stripe.String(opts.CustomerID)
	}
	if opts.OrderID != "" {
		params.Description = stripe.String(opts.OrderID)
		params.AddMetadata("order_id", opts.OrderID)
	}
	if opts.Customer.Email != "" {
		params.ReceiptEmail = stripe.String(opts.Customer.Email)
	}
	if opts.Customer.Company != "" {
		params.AddMetadata("company", opts.Customer.Company)
	}
	if opts.ShippingAddress != (gateway.Address{}) {
		params.Shipping = shippingParams(c, opts)
	}

	pi, err := s.api.NewPaymentIntent(ctx, params)
	if err != nil {
		return failure(err), nil
	}
	return intentResult(pi), nil
}

// Refund looks the PaymentIntent up first so unknown ids surface as
// ErrTransactionNotFound.
func (s *Stripe) Refund(ctx context.Context, transactionID string, amount *decimal.Decimal) (*gateway.Result, error) {
	if _, err := s.api.GetPaymentIntent(ctx, transactionID); err != nil {
		if isResourceMissing(err) {
			return nil, billingerrors.ErrTransactionNotFound.Withf("%s", transactionID)
		}
		return failure(err), nil
	}

	params := &stripe.RefundParams{PaymentIntent: stripe.String(transactionID)}
	if amount != nil {
		params.Amount = stripe.Int64(toMinorUnits(*amount))
	}
	r, err := s.api.NewRefund(ctx, params)
	if err != nil {
		return failure(err), nil
	}
	return refundResult(r), nil
}

func (s *Stripe) Void(ctx context.Context, transactionID string) (*gateway.Result, error) {
	pi, err := s.api.CancelPaymentIntent(ctx, transactionID)
	if err != nil {
		if isResourceMissing(err) {
			return nil, billingerrors.ErrTransactionNotFound.Withf("%s", transactionID)
		}
		return failure(err), nil
	}
	return intentResult(pi), nil
}

func (s *Stripe) Subscribe(ctx context.Context, c *card.Card, opts gateway.Options) (*gateway.Result, error) {
	if err := opts.Require("plan_id"); err != nil {
		return nil, err
	}
	if err := s.PreValidate(c); err != nil {
		return nil, err
	}

	ref, err := gateway.ResolveOrCreateToken(ctx, s, c, opts.PaymentMethodToken, opts)
	if err != nil {
		return failure(err), nil
	}

	sub, err := s.api.NewSubscription(ctx, &stripe.SubscriptionParams{
		Customer:             stripe.String(ref.CustomerID),
		DefaultPaymentMethod: stripe.String(ref.Token),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(opts.PlanID)},
		},
	})
	if err != nil {
		res := failure(err)
		res.Vault = ref
		return res, nil
	}

	res := gateway.Success(nil)
	res.Vault = ref
	res.Subscription = subscriptionRef(sub, opts.PlanID)
	return res, nil
}

func (s *Stripe) Unsubscribe(ctx context.Context, opts gateway.Options) (*gateway.Result, error) {
	if err := opts.Require("subscription_id"); err != nil {
		return nil, err
	}

	sub, err := s.api.CancelSubscription(ctx, opts.SubscriptionID)
	if err != nil {
		return failure(err), nil
	}
	res := gateway.Success(nil)
	res.Subscription = subscriptionRef(sub, opts.PlanID)
	return res, nil
}

func (s *Stripe) Store(ctx context.Context, c *card.Card, opts gateway.Options) (*gateway.Result, error) {
	if err := s.PreValidate(c); err != nil {
		return nil, err
	}

	ref, err := gateway.ResolveOrCreateToken(ctx, s, c, opts.PaymentMethodToken, opts)
	if err != nil {
		return failure(err), nil
	}
	res := gateway.Success(nil)
	res.Vault = ref
	return res, nil
}

func (s *Stripe) Unstore(ctx context.Context, opts gateway.Options) (*gateway.Result, error) {
	if err := opts.Require("payment_method_token"); err != nil {
		return nil, err
	}

	pm, err := s.api.DetachPaymentMethod(ctx, opts.PaymentMethodToken)
	if err != nil {
		return failure(err), nil
	}
	res := gateway.Success(nil)
	res.Vault = &gateway.VaultRef{Token: pm.ID, CustomerID: opts.CustomerID}
	return res, nil
}

// FindByToken implements gateway.VaultBackend.
func (s *Stripe) FindByToken(ctx context.Context, token string) (*gateway.StoredPaymentMethod, error) {
	pm, err := s.api.GetPaymentMethod(ctx, token)
	if err != nil {
		if isResourceMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	if pm.Customer == nil {
		return nil, nil
	}
	stored := storedPaymentMethod(pm)
	return &stored, nil
}

// Search implements gateway.VaultBackend over the customer's cards.
func (s *Stripe) Search(ctx context.Context, m gateway.CardMatch, opts gateway.Options) ([]gateway.StoredPaymentMethod, error) {
	customerID, err := s.findCustomer(ctx, opts)
	if err != nil || customerID == "" {
		return nil, err
	}

	pms, err := s.api.ListPaymentMethods(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]gateway.StoredPaymentMethod, 0, len(pms))
	for _, pm := range pms {
		stored := storedPaymentMethod(pm)
		if stored.CustomerID == "" {
			stored.CustomerID = customerID
		}
		out = append(out, stored)
	}
	return out, nil
}

// Create implements gateway.VaultBackend.
func (s *Stripe) Create(ctx context.Context, c *card.Card, opts gateway.Options) (*gateway.StoredPaymentMethod, error) {
	customerID, err := s.findCustomer(ctx, opts)
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		cus, err := s.api.NewCustomer(ctx, customerParams(opts))
		if err != nil {
			return nil, err
		}
		customerID = cus.ID
	}

	pm, err := s.api.NewPaymentMethod(ctx, paymentMethodParams(c, opts))
	if err != nil {
		return nil, err
	}
	if _, err := s.api.AttachPaymentMethod(ctx, pm.ID, customerID); err != nil {
		return nil, err
	}

	stored := storedPaymentMethod(pm)
	stored.CustomerID = customerID
	return &stored, nil
}

func (s *Stripe) findCustomer(ctx context.Context, opts gateway.Options) (string, error) {
	if opts.CustomerID != "" {
		return opts.CustomerID, nil
	}
	if opts.Customer.Email == "" {
		return "", nil
	}
	cus, err := s.api.FindCustomerByEmail(ctx, opts.Customer.Email)
	if err != nil || cus == nil {
		return "", err
	}
	return cus.ID, nil
}

func storedPaymentMethod(pm *stripe.PaymentMethod) gateway.StoredPaymentMethod {
	stored := gateway.StoredPaymentMethod{Token: pm.ID}
	if pm.Customer != nil {
		stored.CustomerID = pm.Customer.ID
	}
	if pm.BillingDetails != nil {
		stored.Match.HolderName = pm.BillingDetails.Name
	}
	if pm.Card != nil {
		stored.Match.ExpMonth = int(pm.Card.ExpMonth)
		stored.Match.ExpYear = int(pm.Card.ExpYear)
		stored.Match.LastFour = pm.Card.Last4
	}
	stored.Match.FirstSix = pm.Metadata[metadataIIN]
	return stored
}

func paymentMethodParams(c *card.Card, opts gateway.Options) *stripe.PaymentMethodParams {
	params := &stripe.PaymentMethodParams{
		Type: stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(c.Number),
			ExpMonth: stripe.String(strconv.Itoa(c.ExpMonth)),
			ExpYear:  stripe.String(strconv.Itoa(c.ExpYear)),
			CVC:      stripe.String(c.CVV),
		},
		BillingDetails: &stripe.BillingDetailsParams{
			Name:    stripe.String(strings.TrimSpace(c.HolderName)),
			Email:   stripe.String(opts.Customer.Email),
			Phone:   stripe.String(opts.Customer.Phone),
			Address: addressParams(opts.BillingAddress),
		},
	}
	params.AddMetadata(metadataIIN, c.FirstSix())
	return params
}

func addressParams(a gateway.Address) *stripe.AddressParams {
	return &stripe.AddressParams{
		Line1:      stripe.String(a.StreetAddress),
		Line2:      stripe.String(a.ExtendedAddress),
		City:       stripe.String(a.Locality),
		State:      stripe.String(a.Region),
		PostalCode: stripe.String(a.PostalCode),
		Country:    stripe.String(a.CountryCode),
	}
}

// shippingParams addresses the shipment to the customer, else to the card
// holder.
func shippingParams(c *card.Card, opts gateway.Options) *stripe.ShippingDetailsParams {
	name := opts.Customer.FullName()
	if name == "" {
		name = strings.TrimSpace(c.HolderName)
	}
	params := &stripe.ShippingDetailsParams{
		Name:    stripe.String(name),
		Address: addressParams(opts.ShippingAddress),
	}
	if opts.Customer.Phone != "" {
		params.Phone = stripe.String(opts.Customer.Phone)
	}
	return params
}

func customerParams(opts gateway.Options) *stripe.CustomerParams {
	params := &stripe.CustomerParams{
		Email: stripe.String(opts.Customer.Email),
		Name:  stripe.String(opts.Customer.FullName()),
		Phone: stripe.String(opts.Customer.Phone),
	}
	if opts.Customer.Company != "" {
		params.Description = stripe.String(opts.Customer.Company)
	}
	return params
}

var _ gateway.Gateway = (*Stripe)(nil)
var _ gateway.VaultBackend = (*Stripe)(nil)

package stripegw

import (
	"context"

	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// API is the slice of the Stripe SDK the adapter drives.
type API interface {
	NewPaymentMethod(ctx context.Context, params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error)
	AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error)

	FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error)
	NewCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error)

	NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
	NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)

	NewSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error)
	CancelSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
}

// sdk is the client.API-backed implementation of API.
type sdk struct {
	api *client.API
}

// NewAPI returns an API backed by the official Stripe SDK.
func NewAPI(secretKey string) API {
	return sdk{api: client.New(secretKey, nil)}
}

func (c sdk) NewPaymentMethod(ctx context.Context, params *stripe.PaymentMethodParams) (*stripe.PaymentMethod, error) {
	params.Context = ctx
	return c.api.PaymentMethods.New(params)
}

func (c sdk) GetPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx
	return c.api.PaymentMethods.Get(id, params)
}

func (c sdk) ListPaymentMethods(ctx context.Context, customerID string) ([]*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	var out []*stripe.PaymentMethod
	it := c.api.PaymentMethods.List(params)
	for it.Next() {
		out = append(out, it.PaymentMethod())
	}
	return out, it.Err()
}

func (c sdk) AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodAttachParams{Customer: stripe.String(customerID)}
	params.Context = ctx
	return c.api.PaymentMethods.Attach(id, params)
}

func (c sdk) DetachPaymentMethod(ctx context.Context, id string) (*stripe.PaymentMethod, error) {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx
	return c.api.PaymentMethods.Detach(id, params)
}

// FindCustomerByEmail returns the first customer with email, or nil.
func (c sdk) FindCustomerByEmail(ctx context.Context, email string) (*stripe.Customer, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := c.api.Customers.List(params)
	if it.Next() {
		return it.Customer(), nil
	}
	return nil, it.Err()
}

func (c sdk) NewCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	params.Context = ctx
	return c.api.Customers.New(params)
}

func (c sdk) NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	params.Context = ctx
	return c.api.PaymentIntents.New(params)
}

func (c sdk) GetPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	return c.api.PaymentIntents.Get(id, params)
}

func (c sdk) CancelPaymentIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	return c.api.PaymentIntents.Cancel(id, params)
}

func (c sdk) NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	params.Context = ctx
	return c.api.Refunds.New(params)
}

func (c sdk) NewSubscription(ctx context.Context, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	params.Context = ctx
	return c.api.Subscriptions.New(params)
}

func (c sdk) CancelSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	return c.api.Subscriptions.Cancel(id, params)
}

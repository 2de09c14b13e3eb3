// Package sandbox is an in-memory processor. It backs TEST_MODE setups and
// the service tests, and records how often each processor step ran.
package sandbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"plans/internal/domain/card"
	"plans/internal/domain/subscription"
	billingerrors "plans/internal/errors"
	"plans/internal/gateway"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key is the registry key of the sandbox processor.
const Key = "sandbox"

// Call counter names.
const (
	CallSend   = "send"   // request dispatched to the processor
	CallStore  = "store"  // stored payment method created
	CallLookup = "lookup" // transaction or token lookup
	CallSearch = "search" // stored payment method search
)

// Decline response used when a charge hits the decline amount.
const (
	DeclineCode = "2000"
	DeclineText = "Do Not Honor"
)

type transaction struct {
	status   gateway.TransactionStatus
	amount   decimal.Decimal
	refunded decimal.Decimal
	currency string
	detail   map[string]string
}

type Sandbox struct {
	gateway.Base

	mu            sync.Mutex
	declineAmount *decimal.Decimal
	transactions  map[string]*transaction
	methods       []*gateway.StoredPaymentMethod
	customers     map[string]string
	subscriptions map[string]*gateway.SubscriptionRef
	calls         map[string]int
}

type Option func(*Sandbox)

// WithDeclineAmount makes charges of exactly amount come back processor declined.
func WithDeclineAmount(amount decimal.Decimal) Option {
	return func(s *Sandbox) {
		s.declineAmount = &amount
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sandbox) {
		s.Base = s.Base.WithClock(now)
	}
}

// New is the registry constructor. The sandbox needs no credentials.
func New(_ gateway.Settings) (gateway.Gateway, error) {
	return NewSandbox(), nil
}

func NewSandbox(opts ...Option) *Sandbox {
	s := &Sandbox{
		Base:          gateway.NewBase("Sandbox", "USD", card.Visa, card.MasterCard, card.AmericanExpress, card.Discover),
		transactions:  make(map[string]*transaction),
		customers:     make(map[string]string),
		subscriptions: make(map[string]*gateway.SubscriptionRef),
		calls:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calls returns a copy of the call counters.
func (s *Sandbox) Calls() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.calls))
	for k, v := range s.calls {
		out[k] = v
	}
	return out
}

// CallCount returns one counter.
func (s *Sandbox) CallCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Settle moves a submitted transaction to settled.
func (s *Sandbox) Settle(transactionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[transactionID]
	if !ok || tx.status != gateway.TxSubmittedForSettlement {
		return false
	}
	tx.status = gateway.TxSettled
	return true
}

// Transaction returns the processor view of a transaction.
func (s *Sandbox) Transaction(transactionID string) (*gateway.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, false
	}
	return s.normalize(transactionID, tx), true
}

func (s *Sandbox) normalize(id string, tx *transaction) *gateway.Transaction {
	return gateway.NewTransaction(id, tx.status, tx.amount, tx.currency, tx.detail)
}

func (s *Sandbox) count(name string) {
	s.calls[name]++
}

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (s *Sandbox) Charge(ctx context.Context, c *card.Card, amount decimal.Decimal, opts gateway.Options) (*gateway.Result, error) {
	if err := s.PreValidate(c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(CallSend)

	id := newID("tx")
	tx := &transaction{
		status:   gateway.TxSubmittedForSettlement,
		amount:   amount,
		currency: opts.CurrencyOr(s.DefaultCurrency()),
	}

	switch {
	case !amount.IsPositive():
		tx.status = gateway.TxGatewayRejected
		tx.detail = map[string]string{gateway.DetailGatewayRejectionReason: "invalid_amount"}
	case s.declineAmount != nil && amount.Equal(*s.declineAmount):
		tx.status = gateway.TxProcessorDeclined
		tx.detail = map[string]string{
			gateway.DetailProcessorResponseCode: DeclineCode,
			gateway.DetailProcessorResponseText: DeclineText,
		}
	}
	s.transactions[id] = tx

	switch tx.status {
	case gateway.TxGatewayRejected:
		return gateway.Failure(s.normalize(id, tx), "Amount must be greater than zero."), nil
	case gateway.TxProcessorDeclined:
		return gateway.Failure(s.normalize(id, tx), DeclineText), nil
	}
	return gateway.Success(s.normalize(id, tx)), nil
}

func (s *Sandbox) Refund(ctx context.Context, transactionID string, amount *decimal.Decimal) (*gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count(CallLookup)
	orig, ok := s.transactions[transactionID]
	if !ok {
		return nil, billingerrors.ErrTransactionNotFound.Withf("%s", transactionID)
	}

	s.count(CallSend)
	if !orig.status.Refundable() {
		return gateway.Failure(nil, "Transaction cannot be refunded in status "+string(orig.status)+"."), nil
	}

	remaining := orig.amount.Sub(orig.refunded)
	refund := remaining
	if amount != nil {
		refund = *amount
	}
	if !refund.IsPositive() || refund.GreaterThan(remaining) {
		return gateway.Failure(nil, "Refund amount is too large."), nil
	}

	orig.refunded = orig.refunded.Add(refund)
	id := newID("tx")
	tx := &transaction{
		status:   gateway.TxSubmittedForSettlement,
		amount:   refund,
		currency: orig.currency,
	}
	s.transactions[id] = tx
	return gateway.Success(s.normalize(id, tx)), nil
}

func (s *Sandbox) Void(ctx context.Context, transactionID string) (*gateway.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count(CallLookup)
	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, billingerrors.ErrTransactionNotFound.Withf("%s", transactionID)
	}

	s.count(CallSend)
	if !tx.status.Voidable() {
		return gateway.Failure(s.normalize(transactionID, tx),
			"Transaction can only be voided if status is authorized or submitted_for_settlement."), nil
	}
	tx.status = gateway.TxVoided
	return gateway.Success(s.normalize(transactionID, tx)), nil
}

func (s *Sandbox) Subscribe(ctx context.Context, c *card.Card, opts gateway.Options) (*gateway.Result, error) {
	if err := opts.Require("plan_id"); err != nil {
		return nil, err
	}
	if err := s.PreValidate(c); err != nil {
		return nil, err
	}

	ref, err := gateway.ResolveOrCreateToken(ctx, s, c, opts.PaymentMethodToken, opts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(CallSend)

	start := s.Now()
	next := subscription.Monthly.AddTo(start)
	sub := &gateway.SubscriptionRef{
		ID:              newID("sub"),
		Status:          "active",
		PlanID:          opts.PlanID,
		StartDate:       &start,
		NextBillingDate: &next,
	}
	s.subscriptions[sub.ID] = sub

	res := gateway.Success(nil)
	res.Vault = ref
	copied := *sub
	res.Subscription = &copied
	return res, nil
}

func (s *Sandbox) Unsubscribe(ctx context.Context, opts gateway.Options) (*gateway.Result, error) {
	if err := opts.Require("subscription_id"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(CallSend)

	sub, ok := s.subscriptions[opts.SubscriptionID]
	if !ok {
		return gateway.Failure(nil, "Subscription not found."), nil
	}
	if sub.Status == "canceled" {
		return gateway.Failure(nil, "Subscription has already been canceled."), nil
	}
	sub.Status = "canceled"

	res := gateway.Success(nil)
	copied := *sub
	res.Subscription = &copied
	return res, nil
}

func (s *Sandbox) Store(ctx context.Context, c *card.Card, opts gateway.Options) (*gateway.Result, error) {
	if err := s.PreValidate(c); err != nil {
		return nil, err
	}

	ref, err := gateway.ResolveOrCreateToken(ctx, s, c, opts.PaymentMethodToken, opts)
	if err != nil {
		return nil, err
	}
	res := gateway.Success(nil)
	res.Vault = ref
	return res, nil
}

func (s *Sandbox) Unstore(ctx context.Context, opts gateway.Options) (*gateway.Result, error) {
	if err := opts.Require("payment_method_token"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(CallSend)

	for i, pm := range s.methods {
		if pm.Token == opts.PaymentMethodToken {
			s.methods = append(s.methods[:i], s.methods[i+1:]...)
			res := gateway.Success(nil)
			res.Vault = &gateway.VaultRef{CustomerID: pm.CustomerID, Token: pm.Token}
			return res, nil
		}
	}
	return gateway.Failure(nil, "Payment method not found."), nil
}

// FindByToken implements gateway.VaultBackend.
func (s *Sandbox) FindByToken(ctx context.Context, token string) (*gateway.StoredPaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(CallLookup)

	for _, pm := range s.methods {
		if pm.Token == token {
			found := *pm
			return &found, nil
		}
	}
	return nil, nil
}

// Search implements gateway.VaultBackend. Results are scoped to the
// requested customer, in creation order.
func (s *Sandbox) Search(ctx context.Context, m gateway.CardMatch, opts gateway.Options) ([]gateway.StoredPaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(CallSearch)

	customerID, known := s.lookupCustomer(opts)
	if !known {
		return nil, nil
	}
	var out []gateway.StoredPaymentMethod
	for _, pm := range s.methods {
		if pm.CustomerID != customerID {
			continue
		}
		if pm.Match.Matches(m) {
			out = append(out, *pm)
		}
	}
	return out, nil
}

// Create implements gateway.VaultBackend.
func (s *Sandbox) Create(ctx context.Context, c *card.Card, opts gateway.Options) (*gateway.StoredPaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(CallSend)
	s.count(CallStore)

	pm := &gateway.StoredPaymentMethod{
		Token:      newID("pm"),
		CustomerID: s.customerFor(opts),
		Match:      gateway.MatchFor(c),
	}
	s.methods = append(s.methods, pm)
	created := *pm
	return &created, nil
}

// lookupCustomer maps opts to a sandbox customer, keyed by email when no
// customer id is given.
func (s *Sandbox) lookupCustomer(opts gateway.Options) (string, bool) {
	if opts.CustomerID != "" {
		return opts.CustomerID, true
	}
	id, ok := s.customers[strings.ToLower(opts.Customer.Email)]
	return id, ok
}

func (s *Sandbox) customerFor(opts gateway.Options) string {
	if id, ok := s.lookupCustomer(opts); ok {
		return id
	}
	email := strings.ToLower(opts.Customer.Email)
	id := newID("cus")
	s.customers[email] = id
	return id
}

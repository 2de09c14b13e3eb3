package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	substate "plans/internal/domain/subscription"
	billingerrors "plans/internal/errors"
	"plans/internal/gateway"
	"plans/internal/models"
	"plans/internal/repositories"
	"plans/internal/services/plan"
	"plans/internal/services/vault"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type service struct {
	gw      gateway.Gateway
	plans   plan.Service
	vaults  vault.Service
	subs    repositories.SubscriptionRepository
	records repositories.TransactionRecordRepository
	config  Config
	log     *slog.Logger
}

// NewService creates a subscription service bound to one gateway.
func NewService(
	gw gateway.Gateway,
	plans plan.Service,
	vaults vault.Service,
	subs repositories.SubscriptionRepository,
	records repositories.TransactionRecordRepository,
	config Config,
	log *slog.Logger,
) Service {
	if gw == nil {
		panic("gateway is required")
	}
	if plans == nil {
		panic("plan service is required")
	}
	if vaults == nil {
		panic("vault service is required")
	}
	if subs == nil {
		panic("subscription repository is required")
	}
	if records == nil {
		panic("transaction record repository is required")
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if log == nil {
		log = slog.Default()
	}

	return &service{
		gw:      gw,
		plans:   plans,
		vaults:  vaults,
		subs:    subs,
		records: records,
		config:  config,
		log:     log,
	}
}

func (s *service) Subscribe(ctx context.Context, req SubscribeRequest) (*models.Subscription, *gateway.Result, error) {
	if req.CustomerID == "" {
		return nil, nil, billingerrors.ErrMissingParameter.Withf("customer_id")
	}
	if req.Card == nil {
		return nil, nil, billingerrors.ErrInvalidCard
	}
	if err := req.Options.Validate(); err != nil {
		return nil, nil, err
	}

	p, err := s.resolvePlan(ctx, req.Options.PlanID)
	if err != nil {
		return nil, nil, err
	}

	if s.config.Locker != nil {
		release, err := s.config.Locker.Acquire(ctx, s.lockName(req))
		if err != nil {
			return nil, nil, billingerrors.ErrMultipleRunningSubscriptions.Wrap(err)
		}
		defer func() {
			if err := release(ctx); err != nil {
				s.log.Warn("failed to release subscribe lock", "customer_id", req.CustomerID, "error", err)
			}
		}()
	}

	// The processor token is resolved here, without creating anything, so
	// a vault that already runs a subscription or belongs to another
	// customer is refused before the processor is asked to subscribe.
	existing, err := s.vaults.Lookup(ctx, req.CustomerID, req.Card, req.Options)
	if err != nil {
		return nil, nil, err
	}

	opts := req.Options
	opts.PlanID = p.Code
	if existing != nil {
		running, err := s.subs.FindRunningByVault(ctx, existing.ID)
		if err != nil {
			return nil, nil, err
		}
		if len(running) > 0 {
			return nil, nil, billingerrors.ErrMultipleRunningSubscriptions.Withf("vault %s", existing.ID)
		}
		opts.PaymentMethodToken = existing.Token
		if existing.GatewayCustomerID != "" {
			opts.CustomerID = existing.GatewayCustomerID
		}
	}
	if !s.config.StoreCustomerInfo {
		opts = opts.WithoutCustomerInfo()
	}

	res, err := s.gw.Subscribe(ctx, req.Card, opts)
	if err != nil {
		return nil, nil, err
	}
	if !res.IsSuccess() || res.Vault == nil || res.Subscription == nil {
		return nil, res, s.record(ctx, models.KindSubscribe, p, res, nil)
	}

	v := existing
	if v == nil || v.Token != res.Vault.Token {
		if v, err = s.vaults.Record(ctx, req.CustomerID, req.Card, res.Vault); err != nil {
			return nil, res, s.compensate(ctx, res, err)
		}
	}

	sub := s.newSubscription(p, v, res.Subscription)
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, res, s.compensate(ctx, res, err)
	}
	return sub, res, s.record(ctx, models.KindSubscribe, p, res, &sub.ID)
}

// resolvePlan picks the plan by code, else the default plan.
func (s *service) resolvePlan(ctx context.Context, code string) (*models.Plan, error) {
	if code != "" {
		return s.plans.GetByCode(ctx, code)
	}
	p, err := s.plans.DefaultPlan(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, billingerrors.ErrMissingParameter.Withf("plan_id")
	}
	return p, nil
}

func (s *service) lockName(req SubscribeRequest) string {
	return fmt.Sprintf("subscribe:%s:%s", req.CustomerID, req.Card.Fingerprint(s.config.FingerprintKey))
}

func (s *service) newSubscription(p *models.Plan, v *models.Vault, ref *gateway.SubscriptionRef) *models.Subscription {
	start := s.config.Clock()
	if ref.StartDate != nil {
		start = *ref.StartDate
	}
	next := ref.NextBillingDate
	if next == nil {
		// Without a processor schedule the first charge falls at the end
		// of the trial, or one billing period after start.
		due := p.TrialEnd(start)
		if !p.HasTrial() {
			due = p.BillingPeriod().AddTo(start)
		}
		next = &due
	}

	return &models.Subscription{
		GatewaySubscriptionID: ref.ID,
		VaultID:               v.ID,
		PlanID:                p.ID,
		Status:                substate.StatusPending,
		StartDate:             start,
		NextBillingDate:       next,
		Metadata: datatypes.JSONMap{
			MetaPrice:      p.Price.StringFixed(2),
			MetaGrossPrice: p.GrossPrice(s.config.TaxPercent).StringFixed(2),
			MetaTaxPercent: s.config.TaxPercent.String(),
			MetaCurrency:   p.Currency,
		},
		Plan: p,
	}
}

// compensate cancels the processor subscription that could not be stored
// locally. A lost race on the running subscription index surfaces as
// ErrMultipleRunningSubscriptions.
func (s *service) compensate(ctx context.Context, res *gateway.Result, cause error) error {
	undo, err := s.gw.Unsubscribe(ctx, gateway.Options{SubscriptionID: res.Subscription.ID})
	if err == nil && undo.IsSuccess() {
		return cause
	}
	if err == nil {
		err = errors.New(strings.Join(undo.Errors, "; "))
	}
	s.log.Error("processor subscription left without local record",
		"gateway", s.gw.Name(), "subscription_id", res.Subscription.ID, "error", err)
	return errors.Join(cause, fmt.Errorf("failed to cancel subscription %s: %w", res.Subscription.ID, err))
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*models.Subscription, *gateway.Result, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if _, err := substate.Next(sub.Status, substate.EventCancel); err != nil {
		return sub, nil, err
	}

	res, err := s.gw.Unsubscribe(ctx, gateway.Options{SubscriptionID: sub.GatewaySubscriptionID})
	if err != nil {
		return sub, nil, err
	}
	if err := s.record(ctx, models.KindUnsubscribe, sub.Plan, res, &sub.ID); err != nil {
		return sub, res, err
	}
	if !res.IsSuccess() {
		return sub, res, nil
	}

	if err := sub.Apply(substate.EventCancel, s.config.Clock()); err != nil {
		return sub, res, err
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return sub, res, err
	}
	return sub, res, nil
}

func (s *service) RecordRecurringCharge(ctx context.Context, id uuid.UUID, outcome RecurringOutcome) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	at := outcome.At
	if at.IsZero() {
		at = s.config.Clock()
	}

	// The processor already billed, so the attempt is recorded even when
	// the subscription can no longer take the transition.
	if err := s.record(ctx, models.KindRecurring, sub.Plan, outcome.Result, &sub.ID); err != nil {
		return sub, err
	}

	event := substate.EventPaymentFailed
	if outcome.Result.IsSuccess() {
		event = substate.EventPaymentSucceeded
	}
	if err := sub.Apply(event, at); err != nil {
		return sub, err
	}
	if event == substate.EventPaymentSucceeded {
		base := at
		if sub.NextBillingDate != nil && sub.NextBillingDate.After(at) {
			base = *sub.NextBillingDate
		}
		next := billingPeriod(sub).AddTo(base)
		sub.NextBillingDate = &next
	}

	if err := s.subs.Update(ctx, sub); err != nil {
		return sub, err
	}
	return sub, nil
}

func billingPeriod(sub *models.Subscription) substate.Period {
	if sub.Plan == nil {
		return substate.Monthly
	}
	return sub.Plan.BillingPeriod()
}

func (s *service) Expire(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sub.Apply(substate.EventExpire, s.config.Clock()); err != nil {
		return sub, err
	}
	if err := s.subs.Update(ctx, sub); err != nil {
		return sub, err
	}
	return sub, nil
}

func (s *service) ReconcileExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	due, err := s.subs.ListRunningBilledBefore(ctx, now)
	if err != nil {
		return nil, err
	}

	var (
		expired []uuid.UUID
		errs    []error
	)
	for _, sub := range due {
		if !sub.IsExpiredAt(now) {
			continue
		}
		if err := sub.Apply(substate.EventExpire, now); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.subs.Update(ctx, sub); err != nil {
			errs = append(errs, fmt.Errorf("failed to expire subscription %s: %w", sub.ID, err))
			continue
		}
		expired = append(expired, sub.ID)
	}

	if len(expired) > 0 {
		s.log.Info("expired subscriptions", "count", len(expired))
	}
	return expired, errors.Join(errs...)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	return s.subs.GetByID(ctx, id)
}

func (s *service) RunningForVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Subscription, error) {
	return s.subs.FindRunningByVault(ctx, vaultID)
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]*models.TransactionRecord, error) {
	return s.records.ListBySubscription(ctx, id)
}

// record appends the attempt. Plan supplies amount and currency when the
// result carries no transaction.
func (s *service) record(ctx context.Context, kind models.TransactionKind, p *models.Plan, res *gateway.Result, subID *uuid.UUID) error {
	amount, currency := decimal.Zero, ""
	if p != nil {
		amount, currency = p.GrossPrice(s.config.TaxPercent), p.Currency
	}
	rec := models.NewTransactionRecord(kind, s.gw.Name(), amount, currency, res)
	rec.SubscriptionID = subID
	if res != nil && res.Subscription != nil && rec.GatewayTransactionID == "" {
		rec.GatewayTransactionID = res.Subscription.ID
	}
	if err := s.records.Append(ctx, rec); err != nil {
		return fmt.Errorf("failed to record %s: %w", kind, err)
	}
	return nil
}

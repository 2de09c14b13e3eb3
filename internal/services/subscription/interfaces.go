package subscription

import (
	"context"
	"time"

	"plans/internal/gateway"
	"plans/internal/models"

	"github.com/google/uuid"
)

// Service drives subscriptions through their lifecycle. At most one
// subscription per vault is running at any time.
type Service interface {
	// Subscribe starts a subscription on the requested plan, or on the
	// default plan when the request names none. A processor decline is
	// returned as a failure result with a nil subscription. A card whose
	// vault runs a subscription, or is stored for another customer, is
	// refused before the processor is called.
	Subscribe(ctx context.Context, req SubscribeRequest) (*models.Subscription, *gateway.Result, error)
	// Cancel unsubscribes at the processor and marks the subscription
	// canceled. A processor failure leaves the subscription untouched.
	Cancel(ctx context.Context, id uuid.UUID) (*models.Subscription, *gateway.Result, error)
	// RecordRecurringCharge records the outcome of a processor billing
	// cycle, then applies it. The record is kept when the transition is
	// refused.
	RecordRecurringCharge(ctx context.Context, id uuid.UUID, outcome RecurringOutcome) (*models.Subscription, error)
	Expire(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	// ReconcileExpired persists the expired status of every running
	// subscription whose next billing date passed before now. It is meant
	// to be driven by an external scheduler.
	ReconcileExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	Get(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	RunningForVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Subscription, error)
	History(ctx context.Context, id uuid.UUID) ([]*models.TransactionRecord, error)
}

// Locker narrows the window between the running subscription check and
// the processor call. The database index remains the guarantee.
type Locker interface {
	Acquire(ctx context.Context, name string) (func(context.Context) error, error)
}

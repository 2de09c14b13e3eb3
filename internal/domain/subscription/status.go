// Package subscription holds the subscription lifecycle: the status set and
// the transitions that processor outcomes are allowed to drive.
//
//	PENDING  --(first payment succeeds)-->        ACTIVE
//	ACTIVE   --(recurring charge fails)-->        PAST_DUE
//	PAST_DUE --(charge recovers)-->               ACTIVE
//	PAST_DUE --(retries exhausted / term ends)--> EXPIRED
//	running  --(explicit cancel)-->               CANCELED
//
// EXPIRED and CANCELED are terminal.
package subscription

import (
	"time"

	billingerrors "plans/internal/errors"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusExpired  Status = "expired"
	StatusCanceled Status = "canceled"
)

// RunningStatuses are the statuses that count towards the one running
// subscription per vault rule.
var RunningStatuses = []Status{StatusPending, StatusActive, StatusPastDue}

func (s Status) String() string {
	return string(s)
}

// IsRunning reports whether s is pending, active or past due.
func (s Status) IsRunning() bool {
	switch s {
	case StatusPending, StatusActive, StatusPastDue:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusExpired || s == StatusCanceled
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	return s.IsRunning() || s.IsTerminal()
}

// Event names an input to the state machine.
type Event string

const (
	EventPaymentSucceeded Event = "payment_succeeded"
	EventPaymentFailed    Event = "payment_failed"
	EventExpire           Event = "expire"
	EventCancel           Event = "cancel"
)

var transitions = map[Event]map[Status]Status{
	EventPaymentSucceeded: {
		StatusPending: StatusActive,
		StatusActive:  StatusActive,
		StatusPastDue: StatusActive,
	},
	EventPaymentFailed: {
		StatusPending: StatusPending,
		StatusActive:  StatusPastDue,
		StatusPastDue: StatusPastDue,
	},
	EventExpire: {
		StatusPending: StatusExpired,
		StatusActive:  StatusExpired,
		StatusPastDue: StatusExpired,
	},
	EventCancel: {
		StatusPending: StatusCanceled,
		StatusActive:  StatusCanceled,
		StatusPastDue: StatusCanceled,
	},
}

// Next returns the status reached from s on event e.
func Next(s Status, e Event) (Status, error) {
	to, ok := transitions[e][s]
	if !ok {
		return s, billingerrors.ErrInvalidTransition.Withf("%s from %s", e, s)
	}
	return to, nil
}

// IsExpiredAt is the derived expiry signal: the status is expired, or the
// subscription is running and its next billing date has passed. It never
// changes the stored status.
func IsExpiredAt(s Status, nextBilling *time.Time, now time.Time) bool {
	if s == StatusExpired {
		return true
	}
	return s.IsRunning() && nextBilling != nil && nextBilling.Before(now)
}

package stripegw

import (
	"errors"
	"strings"
	"time"

	"plans/internal/gateway"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v72"
)

// intentStatus maps PaymentIntent states onto transaction statuses.
// Stripe has no separate settlement step, so a succeeded intent is
// reported as submitted for settlement.
var intentStatus = map[stripe.PaymentIntentStatus]gateway.TransactionStatus{
	stripe.PaymentIntentStatusSucceeded:             gateway.TxSubmittedForSettlement,
	stripe.PaymentIntentStatusProcessing:            gateway.TxSubmittedForSettlement,
	stripe.PaymentIntentStatusRequiresCapture:       gateway.TxAuthorized,
	stripe.PaymentIntentStatusCanceled:              gateway.TxVoided,
	stripe.PaymentIntentStatusRequiresPaymentMethod: gateway.TxProcessorDeclined,
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// intentResult normalizes a PaymentIntent returned without an API error.
func intentResult(pi *stripe.PaymentIntent) *gateway.Result {
	status, ok := intentStatus[pi.Status]
	if !ok {
		status = gateway.TxFailed
	}

	raw := map[string]string{}
	if pe := pi.LastPaymentError; pe != nil {
		raw[gateway.DetailProcessorResponseCode] = declineCode(pe)
		raw[gateway.DetailProcessorResponseText] = pe.Msg
	}
	tx := gateway.NewTransaction(pi.ID, status, fromMinorUnits(pi.Amount), strings.ToUpper(string(pi.Currency)), raw)

	switch status {
	case gateway.TxSubmittedForSettlement, gateway.TxAuthorized, gateway.TxVoided:
		return gateway.Success(tx)
	case gateway.TxProcessorDeclined:
		return gateway.Failure(tx, raw[gateway.DetailProcessorResponseText])
	}
	return gateway.Failure(tx, "payment intent is "+string(pi.Status))
}

func refundResult(r *stripe.Refund) *gateway.Result {
	tx := gateway.NewTransaction(r.ID, gateway.TxSubmittedForSettlement, fromMinorUnits(r.Amount), strings.ToUpper(string(r.Currency)), nil)
	switch r.Status {
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		tx.Status = gateway.TxFailed
		return gateway.Failure(tx, "refund "+string(r.Status))
	}
	return gateway.Success(tx)
}

func subscriptionRef(sub *stripe.Subscription, planID string) *gateway.SubscriptionRef {
	return &gateway.SubscriptionRef{
		ID:              sub.ID,
		Status:          string(sub.Status),
		PlanID:          planID,
		StartDate:       unixTime(sub.StartDate),
		NextBillingDate: unixTime(sub.CurrentPeriodEnd),
	}
}

func declineCode(se *stripe.Error) string {
	if se.DeclineCode != "" {
		return string(se.DeclineCode)
	}
	return string(se.Code)
}

// failure turns an SDK error into a failure Result. Card errors become
// processor declines and invalid requests become gateway rejections.
func failure(err error) *gateway.Result {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return gateway.Failure(gateway.NewTransaction("", gateway.TxFailed, decimal.Zero, "", nil), err.Error())
	}

	var id string
	if se.PaymentIntent != nil {
		id = se.PaymentIntent.ID
	}

	var tx *gateway.Transaction
	switch se.Type {
	case stripe.ErrorTypeCard:
		tx = gateway.NewTransaction(id, gateway.TxProcessorDeclined, decimal.Zero, "", map[string]string{
			gateway.DetailProcessorResponseCode: declineCode(se),
			gateway.DetailProcessorResponseText: se.Msg,
		})
	case stripe.ErrorTypeInvalidRequest:
		reason := string(se.Code)
		if reason == "" {
			reason = se.Param
		}
		tx = gateway.NewTransaction(id, gateway.TxGatewayRejected, decimal.Zero, "", map[string]string{
			gateway.DetailGatewayRejectionReason: reason,
		})
	default:
		tx = gateway.NewTransaction(id, gateway.TxFailed, decimal.Zero, "", nil)
	}
	return gateway.Failure(tx, se.Msg)
}

func isResourceMissing(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.Code == stripe.ErrorCodeResourceMissing
}

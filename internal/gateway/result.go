package gateway

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Result statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// TransactionStatus is the processor-neutral transaction state.
type TransactionStatus string

const (
	TxAuthorized             TransactionStatus = "authorized"
	TxSubmittedForSettlement TransactionStatus = "submitted_for_settlement"
	TxSettled                TransactionStatus = "settled"
	TxVoided                 TransactionStatus = "voided"
	TxProcessorDeclined      TransactionStatus = "processor_declined"
	TxGatewayRejected        TransactionStatus = "gateway_rejected"
	TxSettlementDeclined     TransactionStatus = "settlement_declined"
	TxFailed                 TransactionStatus = "failed"
)

// Detail field names.
const (
	DetailProcessorResponseCode           = "processor_response_code"
	DetailProcessorResponseText           = "processor_response_text"
	DetailGatewayRejectionReason          = "gateway_rejection_reason"
	DetailProcessorSettlementResponseCode = "processor_settlement_response_code"
	DetailProcessorSettlementResponseText = "processor_settlement_response_text"
)

// detailFields selects which processor attributes accompany a status.
var detailFields = map[TransactionStatus][]string{
	TxProcessorDeclined:  {DetailProcessorResponseCode, DetailProcessorResponseText},
	TxGatewayRejected:    {DetailGatewayRejectionReason},
	TxSettlementDeclined: {DetailProcessorSettlementResponseCode, DetailProcessorSettlementResponseText},
}

// Voidable reports whether a transaction in status s can still be voided.
func (s TransactionStatus) Voidable() bool {
	return s == TxAuthorized || s == TxSubmittedForSettlement
}

// Refundable reports whether money moved for a transaction in status s.
func (s TransactionStatus) Refundable() bool {
	return s == TxSubmittedForSettlement || s == TxSettled
}

// Transaction is the normalized processor transaction.
type Transaction struct {
	ID       string
	Status   TransactionStatus
	Amount   decimal.Decimal
	Currency string
	Detail   map[string]string
}

// NewTransaction normalizes a processor transaction. Only the attributes
// the status calls for are kept from raw; every one of them is present,
// empty when the processor did not send it.
func NewTransaction(id string, status TransactionStatus, amount decimal.Decimal, currency string, raw map[string]string) *Transaction {
	return &Transaction{
		ID:       id,
		Status:   status,
		Amount:   amount,
		Currency: currency,
		Detail:   DetailFor(status, raw),
	}
}

// DetailFor applies the status lookup to raw processor attributes.
func DetailFor(status TransactionStatus, raw map[string]string) map[string]string {
	fields, ok := detailFields[status]
	if !ok {
		return nil
	}
	detail := make(map[string]string, len(fields))
	for _, f := range fields {
		detail[f] = raw[f]
	}
	return detail
}

// VaultRef points at a payment method stored by the processor.
type VaultRef struct {
	CustomerID string `json:"customer_id"`
	Token      string `json:"token"`
	Created    bool   `json:"created"`
}

// SubscriptionRef is the processor view of a subscription.
type SubscriptionRef struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	PlanID          string     `json:"plan_id"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
}

// Result is the outcome of a processor operation.
type Result struct {
	Status       string
	Transaction  *Transaction
	Errors       []string
	Vault        *VaultRef
	Subscription *SubscriptionRef
}

func Success(tx *Transaction) *Result {
	return &Result{Status: StatusSuccess, Transaction: tx}
}

func Failure(tx *Transaction, errs ...string) *Result {
	return &Result{Status: StatusFailure, Transaction: tx, Errors: errs}
}

func (r *Result) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}

// TransactionID is empty when the result carries no transaction.
func (r *Result) TransactionID() string {
	if r == nil || r.Transaction == nil {
		return ""
	}
	return r.Transaction.ID
}

// JSON renders the wire shape. Detail attributes sit next to the
// transaction id and status.
func (r *Result) JSON() ([]byte, error) {
	return json.Marshal(r)
}

func (r *Result) MarshalJSON() ([]byte, error) {
	wire := map[string]interface{}{"status": r.Status}
	if r.Transaction != nil {
		wire["transaction"] = r.Transaction
	}
	if len(r.Errors) > 0 {
		wire["errors"] = r.Errors
	}
	if r.Vault != nil {
		wire["vault"] = r.Vault
	}
	if r.Subscription != nil {
		wire["subscription"] = r.Subscription
	}
	return json.Marshal(wire)
}

func (t *Transaction) MarshalJSON() ([]byte, error) {
	wire := map[string]interface{}{
		"id":     t.ID,
		"status": t.Status,
	}
	if !t.Amount.IsZero() {
		wire["amount"] = t.Amount.StringFixed(2)
	}
	if t.Currency != "" {
		wire["currency"] = t.Currency
	}
	for k, v := range t.Detail {
		wire[k] = v
	}
	return json.Marshal(wire)
}

package errors

// Validation errors, raised before any processor call.
var (
	ErrCardNotSupported = &DomainError{
		Code:    "CARD_NOT_SUPPORTED",
		Message: "credit card is not supported by the gateway",
	}
	ErrInvalidCard = &DomainError{
		Code:    "INVALID_CARD",
		Message: "invalid credit card",
	}
	// ErrNoPattern means a brand was declared without a number pattern.
	ErrNoPattern = &DomainError{
		Code:    "NO_PATTERN",
		Message: "card brand has no number pattern configured",
	}
)

// Precondition errors.
var (
	ErrMissingParameter = &DomainError{
		Code:    "MISSING_PARAMETER",
		Message: "missing required parameter",
	}
	ErrMultipleRunningSubscriptions = &DomainError{
		Code:    "MULTIPLE_RUNNING_SUBSCRIPTIONS",
		Message: "vault already has a running subscription",
	}
	// ErrVaultInUse blocks unstoring a card that still backs a running
	// subscription.
	ErrVaultInUse = &DomainError{
		Code:    "VAULT_IN_USE",
		Message: "vault backs a running subscription",
	}
	ErrVaultCustomerMismatch = &DomainError{
		Code:    "VAULT_CUSTOMER_MISMATCH",
		Message: "payment method is stored for another customer",
	}
	// ErrPlanInUse guards the terms of a plan subscriptions already
	// reference. Only the active and default flags may change.
	ErrPlanInUse = &DomainError{
		Code:    "PLAN_IN_USE",
		Message: "plan is referenced by subscriptions",
	}
	ErrInvalidTransition = &DomainError{
		Code:    "INVALID_TRANSITION",
		Message: "invalid subscription status transition",
	}
	ErrNotImplemented = &DomainError{
		Code:    "NOT_IMPLEMENTED",
		Message: "operation not implemented by gateway",
	}
)

// Lookup errors.
var (
	ErrTransactionNotFound = &DomainError{
		Code:    "TRANSACTION_NOT_FOUND",
		Message: "transaction not found",
	}
	ErrSubscriptionNotFound = &DomainError{
		Code:    "SUBSCRIPTION_NOT_FOUND",
		Message: "subscription not found",
	}
	ErrPlanNotFound = &DomainError{
		Code:    "PLAN_NOT_FOUND",
		Message: "plan not found",
	}
	ErrVaultNotFound = &DomainError{
		Code:    "VAULT_NOT_FOUND",
		Message: "vault not found",
	}
)

// Configuration errors, fatal at startup.
var (
	ErrGatewayNotConfigured = &DomainError{
		Code:    "GATEWAY_NOT_CONFIGURED",
		Message: "billing gateway is not correctly configured",
	}
	ErrImproperlyConfigured = &DomainError{
		Code:    "IMPROPERLY_CONFIGURED",
		Message: "improperly configured",
	}
)

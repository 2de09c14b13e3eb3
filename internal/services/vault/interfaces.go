package vault

import (
	"context"

	"plans/internal/domain/card"
	"plans/internal/gateway"
	"plans/internal/models"

	"github.com/google/uuid"
)

// Service keeps the local vaults in step with the payment methods stored
// at the configured gateway.
type Service interface {
	// Store resolves or creates the processor token for c and records the
	// masked card locally. A declined store returns the failure result and
	// a nil vault.
	Store(ctx context.Context, customerID string, c *card.Card, opts gateway.Options) (*models.Vault, *gateway.Result, error)
	// Record persists the vault for a token the gateway returned. A token
	// that is already recorded for the customer, for instance by a
	// concurrent store, is returned as is. A token recorded for another
	// customer fails with ErrVaultCustomerMismatch.
	Record(ctx context.Context, customerID string, c *card.Card, ref *gateway.VaultRef) (*models.Vault, error)
	Unstore(ctx context.Context, vaultID uuid.UUID) (*gateway.Result, error)
	SetDefault(ctx context.Context, vaultID uuid.UUID) error
	// Lookup returns the customer's vault for c, found locally by card
	// fingerprint or through the token the processor already holds for c.
	// It returns nil, nil when there is none and fails with
	// ErrVaultCustomerMismatch when that token is recorded for another
	// customer. Nothing is created at the processor.
	Lookup(ctx context.Context, customerID string, c *card.Card, opts gateway.Options) (*models.Vault, error)
	List(ctx context.Context, customerID string) ([]*models.Vault, error)
}

type Config struct {
	// FingerprintKey keys the card digest used to find a customer's
	// existing vault.
	FingerprintKey []byte
	// StoreCustomerInfo false sends only the customer id and email to the
	// processor.
	StoreCustomerInfo bool
}

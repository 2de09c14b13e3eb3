package vault

import (
	"context"
	"errors"
	"fmt"

	"plans/internal/domain/card"
	billingerrors "plans/internal/errors"
	"plans/internal/gateway"
	"plans/internal/models"
	"plans/internal/repositories"

	"github.com/google/uuid"
)

type service struct {
	gw            gateway.Gateway
	vaults        repositories.VaultRepository
	subscriptions repositories.SubscriptionRepository
	config        Config
}

// NewService creates a vault service bound to one gateway.
func NewService(
	gw gateway.Gateway,
	vaults repositories.VaultRepository,
	subscriptions repositories.SubscriptionRepository,
	config Config,
) Service {
	if gw == nil {
		panic("gateway is required")
	}
	if vaults == nil {
		panic("vault repository is required")
	}
	if subscriptions == nil {
		panic("subscription repository is required")
	}
	return &service{
		gw:            gw,
		vaults:        vaults,
		subscriptions: subscriptions,
		config:        config,
	}
}

func (s *service) Lookup(ctx context.Context, customerID string, c *card.Card, opts gateway.Options) (*models.Vault, error) {
	v, err := s.vaults.FindByFingerprint(ctx, s.gw.Name(), customerID, c.Fingerprint(s.config.FingerprintKey))
	if err != nil || v != nil {
		return v, err
	}

	backend, ok := s.gw.(gateway.VaultBackend)
	if !ok {
		return nil, nil
	}
	// Invalid cards are reported by the gateway call that follows.
	if valid, err := s.gw.Validate(c); err != nil || !valid {
		return nil, nil
	}
	ref, err := gateway.FindToken(ctx, backend, c, opts.PaymentMethodToken, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment method: %w", err)
	}
	if ref == nil {
		return nil, nil
	}

	v, err = s.vaults.GetByToken(ctx, s.gw.Name(), ref.Token)
	if errors.Is(err, billingerrors.ErrVaultNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := checkOwner(v, customerID); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) Store(ctx context.Context, customerID string, c *card.Card, opts gateway.Options) (*models.Vault, *gateway.Result, error) {
	if customerID == "" {
		return nil, nil, billingerrors.ErrMissingParameter.Withf("customer_id")
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	existing, err := s.Lookup(ctx, customerID, c, opts)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		opts = withVault(opts, existing)
	}
	if !s.config.StoreCustomerInfo {
		opts = opts.WithoutCustomerInfo()
	}

	res, err := s.gw.Store(ctx, c, opts)
	if err != nil {
		return nil, nil, err
	}
	if !res.IsSuccess() || res.Vault == nil {
		return nil, res, nil
	}

	if existing != nil && existing.Token == res.Vault.Token {
		return existing, res, nil
	}

	v, err := s.Record(ctx, customerID, c, res.Vault)
	if err != nil {
		return nil, res, err
	}
	return v, res, nil
}

func (s *service) Record(ctx context.Context, customerID string, c *card.Card, ref *gateway.VaultRef) (*models.Vault, error) {
	v := &models.Vault{
		Gateway:           s.gw.Name(),
		Token:             ref.Token,
		CustomerID:        customerID,
		GatewayCustomerID: ref.CustomerID,
		StoredCard:        models.NewStoredCard(customerID, c, c.Fingerprint(s.config.FingerprintKey)),
	}
	err := s.vaults.Create(ctx, v)
	if errors.Is(err, repositories.ErrDuplicateToken) {
		existing, err := s.vaults.GetByToken(ctx, s.gw.Name(), ref.Token)
		if err != nil {
			return nil, err
		}
		if err := checkOwner(existing, customerID); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *service) Unstore(ctx context.Context, vaultID uuid.UUID) (*gateway.Result, error) {
	v, err := s.vaults.GetByID(ctx, vaultID)
	if err != nil {
		return nil, err
	}

	running, err := s.subscriptions.FindRunningByVault(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if len(running) > 0 {
		return nil, billingerrors.ErrVaultInUse.Withf("%s", v.ID)
	}

	res, err := s.gw.Unstore(ctx, withVault(gateway.Options{}, v))
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return res, nil
	}
	if err := s.vaults.Delete(ctx, v.ID); err != nil {
		return res, fmt.Errorf("payment method removed at gateway but not locally: %w", err)
	}
	return res, nil
}

func (s *service) SetDefault(ctx context.Context, vaultID uuid.UUID) error {
	return s.vaults.SetDefault(ctx, vaultID)
}

func (s *service) List(ctx context.Context, customerID string) ([]*models.Vault, error) {
	return s.vaults.ListByCustomer(ctx, customerID)
}

func checkOwner(v *models.Vault, customerID string) error {
	if v.CustomerID != customerID {
		return billingerrors.ErrVaultCustomerMismatch.Withf("token %s", v.Token)
	}
	return nil
}

// withVault points opts at the processor customer and token of v.
func withVault(opts gateway.Options, v *models.Vault) gateway.Options {
	opts.PaymentMethodToken = v.Token
	if v.GatewayCustomerID != "" {
		opts.CustomerID = v.GatewayCustomerID
	}
	return opts
}

package gateway

import (
	"context"
	"fmt"
	"strings"

	"plans/internal/domain/card"
)

// CardMatch holds the non-sensitive attributes used to recognise a card
// already stored by a processor.
type CardMatch struct {
	HolderName string
	ExpMonth   int
	ExpYear    int
	FirstSix   string
	LastFour   string
}

// MatchFor extracts the match attributes of c.
func MatchFor(c *card.Card) CardMatch {
	return CardMatch{
		HolderName: strings.TrimSpace(c.HolderName),
		ExpMonth:   c.ExpMonth,
		ExpYear:    c.ExpYear,
		FirstSix:   c.FirstSix(),
		LastFour:   c.LastFour(),
	}
}

// Matches compares every attribute. Holder names compare case-insensitively.
func (m CardMatch) Matches(other CardMatch) bool {
	return strings.EqualFold(m.HolderName, other.HolderName) &&
		m.ExpMonth == other.ExpMonth &&
		m.ExpYear == other.ExpYear &&
		m.FirstSix == other.FirstSix &&
		m.LastFour == other.LastFour
}

// StoredPaymentMethod is a payment method the processor already holds.
type StoredPaymentMethod struct {
	Token      string
	CustomerID string
	Match      CardMatch
}

// VaultBackend is the slice of a processor needed to resolve tokens.
type VaultBackend interface {
	// FindByToken returns nil, nil when token is unknown.
	FindByToken(ctx context.Context, token string) (*StoredPaymentMethod, error)
	// Search returns candidates in processor order.
	Search(ctx context.Context, m CardMatch, opts Options) ([]StoredPaymentMethod, error)
	Create(ctx context.Context, c *card.Card, opts Options) (*StoredPaymentMethod, error)
}

// FindToken returns the processor token already held for c, or nil, nil
// when none matches. A known token that still resolves wins. Otherwise the
// first search hit is used.
func FindToken(ctx context.Context, backend VaultBackend, c *card.Card, knownToken string, opts Options) (*VaultRef, error) {
	if knownToken != "" {
		pm, err := backend.FindByToken(ctx, knownToken)
		if err != nil {
			return nil, fmt.Errorf("lookup payment method %s: %w", knownToken, err)
		}
		if pm != nil {
			return &VaultRef{CustomerID: pm.CustomerID, Token: pm.Token}, nil
		}
	}

	match := MatchFor(c)
	candidates, err := backend.Search(ctx, match, opts)
	if err != nil {
		return nil, fmt.Errorf("search payment methods: %w", err)
	}
	for _, pm := range candidates {
		if match.Matches(pm.Match) {
			return &VaultRef{CustomerID: pm.CustomerID, Token: pm.Token}, nil
		}
	}
	return nil, nil
}

// ResolveOrCreateToken returns a processor token for c, creating a stored
// payment method only when FindToken finds none. The caller validates c
// beforehand.
func ResolveOrCreateToken(ctx context.Context, backend VaultBackend, c *card.Card, knownToken string, opts Options) (*VaultRef, error) {
	ref, err := FindToken(ctx, backend, c, knownToken, opts)
	if err != nil || ref != nil {
		return ref, err
	}

	pm, err := backend.Create(ctx, c, opts)
	if err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	return &VaultRef{CustomerID: pm.CustomerID, Token: pm.Token, Created: true}, nil
}

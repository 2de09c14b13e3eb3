// Package repotest provides in-memory implementations of the repository
// interfaces for service tests. They enforce the same uniqueness rules as
// the database schema and hand out copies, the way gorm reads do.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	billingerrors "plans/internal/errors"
	"plans/internal/models"
	"plans/internal/repositories"

	"github.com/google/uuid"
)

// Store holds every entity. The repository views returned by its methods
// share it.
type Store struct {
	mu      sync.Mutex
	seq     int
	order   map[uuid.UUID]int
	plans   map[uuid.UUID]*models.Plan
	vaults  map[uuid.UUID]*models.Vault
	cards   map[uuid.UUID]*models.StoredCard
	subs    map[uuid.UUID]*models.Subscription
	records []*models.TransactionRecord
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		order:  make(map[uuid.UUID]int),
		plans:  make(map[uuid.UUID]*models.Plan),
		vaults: make(map[uuid.UUID]*models.Vault),
		cards:  make(map[uuid.UUID]*models.StoredCard),
		subs:   make(map[uuid.UUID]*models.Subscription),
		now:    time.Now,
	}
}

func (s *Store) Plans() repositories.PlanRepository { return planRepo{s} }

func (s *Store) Vaults() repositories.VaultRepository { return vaultRepo{s} }

func (s *Store) Subscriptions() repositories.SubscriptionRepository { return subscriptionRepo{s} }

func (s *Store) Records() repositories.TransactionRecordRepository { return recordRepo{s} }

// stamp assigns the id and timestamps a gorm create would.
func (s *Store) stamp(b *models.BaseModel) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.seq++
	s.order[b.ID] = s.seq
}

func (s *Store) sortByCreation(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] < s.order[ids[j]] })
}

type planRepo struct{ s *Store }

func (r planRepo) Create(ctx context.Context, plan *models.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.plans {
		if p.Code == plan.Code {
			return fmt.Errorf("failed to create plan: duplicate code %s", plan.Code)
		}
	}
	r.s.stamp(&plan.BaseModel)
	stored := *plan
	r.s.plans[plan.ID] = &stored
	return nil
}

func (r planRepo) Update(ctx context.Context, plan *models.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.plans[plan.ID]; !ok {
		return billingerrors.ErrPlanNotFound.Withf("%s", plan.ID)
	}
	plan.UpdatedAt = r.s.now()
	stored := *plan
	r.s.plans[plan.ID] = &stored
	return nil
}

func (r planRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, billingerrors.ErrPlanNotFound.Withf("%s", id)
	}
	found := *p
	return &found, nil
}

func (r planRepo) GetByCode(ctx context.Context, code string) (*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.plans {
		if p.Code == code {
			found := *p
			return &found, nil
		}
	}
	return nil, billingerrors.ErrPlanNotFound.Withf("code %s", code)
}

func (r planRepo) LatestDefault(ctx context.Context) (*models.Plan, error) {
	plans, _ := r.List(ctx, false)
	for i := len(plans) - 1; i >= 0; i-- {
		if plans[i].Default {
			return plans[i], nil
		}
	}
	return nil, billingerrors.ErrPlanNotFound.Withf("no default plan")
}

func (r planRepo) List(ctx context.Context, activeOnly bool) ([]*models.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.s.plans))
	for id, p := range r.s.plans {
		if !activeOnly || p.Active {
			ids = append(ids, id)
		}
	}
	r.s.sortByCreation(ids)
	out := make([]*models.Plan, 0, len(ids))
	for _, id := range ids {
		p := *r.s.plans[id]
		out = append(out, &p)
	}
	return out, nil
}

type vaultRepo struct{ s *Store }

func (r vaultRepo) Create(ctx context.Context, vault *models.Vault) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vaults {
		if v.Gateway == vault.Gateway && v.Token == vault.Token {
			return fmt.Errorf("%w: %s", repositories.ErrDuplicateToken, vault.Token)
		}
	}
	if vault.StoredCard != nil {
		r.s.stamp(&vault.StoredCard.BaseModel)
		c := *vault.StoredCard
		r.s.cards[c.ID] = &c
		vault.StoredCardID = &vault.StoredCard.ID
	}
	r.s.stamp(&vault.BaseModel)
	stored := *vault
	stored.StoredCard = nil
	r.s.vaults[vault.ID] = &stored
	return nil
}

// load copies v with its stored card attached. Callers hold the lock.
func (r vaultRepo) load(v *models.Vault) *models.Vault {
	found := *v
	if v.StoredCardID != nil {
		if c, ok := r.s.cards[*v.StoredCardID]; ok {
			copied := *c
			found.StoredCard = &copied
		}
	}
	return &found
}

func (r vaultRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Vault, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vaults[id]
	if !ok {
		return nil, billingerrors.ErrVaultNotFound.Withf("%s", id)
	}
	return r.load(v), nil
}

func (r vaultRepo) GetByToken(ctx context.Context, gatewayName, token string) (*models.Vault, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.vaults {
		if v.Gateway == gatewayName && v.Token == token {
			return r.load(v), nil
		}
	}
	return nil, billingerrors.ErrVaultNotFound.Withf("token %s", token)
}

func (r vaultRepo) FindByFingerprint(ctx context.Context, gatewayName, customerID, fingerprint string) (*models.Vault, error) {
	vaults, _ := r.ListByCustomer(ctx, customerID)
	for _, v := range vaults {
		if v.Gateway == gatewayName && v.StoredCard != nil && v.StoredCard.Fingerprint == fingerprint {
			return v, nil
		}
	}
	return nil, nil
}

func (r vaultRepo) ListByCustomer(ctx context.Context, customerID string) ([]*models.Vault, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for id, v := range r.s.vaults {
		if v.CustomerID == customerID {
			ids = append(ids, id)
		}
	}
	r.s.sortByCreation(ids)
	out := make([]*models.Vault, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.load(r.s.vaults[id]))
	}
	return out, nil
}

func (r vaultRepo) SetDefault(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	target, ok := r.s.vaults[id]
	if !ok {
		return billingerrors.ErrVaultNotFound.Withf("%s", id)
	}
	for _, v := range r.s.vaults {
		if v.CustomerID == target.CustomerID {
			v.IsDefault = v.ID == id
		}
	}
	return nil
}

func (r vaultRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vaults[id]; !ok {
		return billingerrors.ErrVaultNotFound.Withf("%s", id)
	}
	delete(r.s.vaults, id)
	return nil
}

type subscriptionRepo struct{ s *Store }

// conflicts reports whether sub would be a second running subscription on
// its vault. Callers hold the lock.
func (r subscriptionRepo) conflicts(sub *models.Subscription) bool {
	if !sub.Status.IsRunning() {
		return false
	}
	for _, other := range r.s.subs {
		if other.ID != sub.ID && other.VaultID == sub.VaultID && other.Status.IsRunning() {
			return true
		}
	}
	return false
}

func (r subscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.conflicts(sub) {
		return billingerrors.ErrMultipleRunningSubscriptions.Withf("vault %s", sub.VaultID)
	}
	r.s.stamp(&sub.BaseModel)
	stored := *sub
	stored.Plan, stored.Vault = nil, nil
	r.s.subs[sub.ID] = &stored
	return nil
}

func (r subscriptionRepo) Update(ctx context.Context, sub *models.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.subs[sub.ID]; !ok {
		return billingerrors.ErrSubscriptionNotFound.Withf("%s", sub.ID)
	}
	if r.conflicts(sub) {
		return billingerrors.ErrMultipleRunningSubscriptions.Withf("vault %s", sub.VaultID)
	}
	sub.UpdatedAt = r.s.now()
	stored := *sub
	stored.Plan, stored.Vault = nil, nil
	r.s.subs[sub.ID] = &stored
	return nil
}

// load copies sub with its plan attached. Callers hold the lock.
func (r subscriptionRepo) load(sub *models.Subscription) *models.Subscription {
	found := *sub
	if p, ok := r.s.plans[sub.PlanID]; ok {
		copied := *p
		found.Plan = &copied
	}
	return &found
}

func (r subscriptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, billingerrors.ErrSubscriptionNotFound.Withf("%s", id)
	}
	return r.load(sub), nil
}

func (r subscriptionRepo) find(match func(*models.Subscription) bool) []*models.Subscription {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for id, sub := range r.s.subs {
		if match(sub) {
			ids = append(ids, id)
		}
	}
	r.s.sortByCreation(ids)
	out := make([]*models.Subscription, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.load(r.s.subs[id]))
	}
	return out
}

func (r subscriptionRepo) FindRunningByVault(ctx context.Context, vaultID uuid.UUID) ([]*models.Subscription, error) {
	return r.find(func(sub *models.Subscription) bool {
		return sub.VaultID == vaultID && sub.Status.IsRunning()
	}), nil
}

func (r subscriptionRepo) ExistsForPlan(ctx context.Context, planID uuid.UUID) (bool, error) {
	found := r.find(func(sub *models.Subscription) bool { return sub.PlanID == planID })
	return len(found) > 0, nil
}

func (r subscriptionRepo) ListRunningBilledBefore(ctx context.Context, t time.Time) ([]*models.Subscription, error) {
	return r.find(func(sub *models.Subscription) bool {
		return sub.Status.IsRunning() && sub.NextBillingDate != nil && sub.NextBillingDate.Before(t)
	}), nil
}

type recordRepo struct{ s *Store }

func (r recordRepo) Append(ctx context.Context, rec *models.TransactionRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.CreatedAt = r.s.now()
	stored := *rec
	r.s.records = append(r.s.records, &stored)
	return nil
}

func (r recordRepo) list(match func(*models.TransactionRecord) bool) []*models.TransactionRecord {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.TransactionRecord
	for _, rec := range r.s.records {
		if match(rec) {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out
}

func (r recordRepo) ListByGatewayTransaction(ctx context.Context, gatewayTransactionID string) ([]*models.TransactionRecord, error) {
	return r.list(func(rec *models.TransactionRecord) bool {
		return rec.GatewayTransactionID == gatewayTransactionID || rec.ParentTransactionID == gatewayTransactionID
	}), nil
}

func (r recordRepo) ListBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*models.TransactionRecord, error) {
	return r.list(func(rec *models.TransactionRecord) bool {
		return rec.SubscriptionID != nil && *rec.SubscriptionID == subscriptionID
	}), nil
}

// AllRecords returns every appended record in order.
func (s *Store) AllRecords() []*models.TransactionRecord {
	return recordRepo{s}.list(func(*models.TransactionRecord) bool { return true })
}

// Kinds lists the kinds of every appended record, for compact assertions.
func (s *Store) Kinds() string {
	var kinds []string
	for _, rec := range s.AllRecords() {
		kinds = append(kinds, string(rec.Kind)+":"+rec.Status)
	}
	return strings.Join(kinds, ",")
}

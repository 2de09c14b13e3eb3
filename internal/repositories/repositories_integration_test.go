package repositories

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"plans/internal/domain/card"
	"plans/internal/domain/subscription"
	billingerrors "plans/internal/errors"
	"plans/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testDB connects to PLANS_TEST_DATABASE_DSN and rebuilds the schema, or
// skips when no database is configured.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("PLANS_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("PLANS_TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{DriverName: "postgres", DSN: dsn}), &gorm.Config{Logger: newGormLogger()})
	require.NoError(t, err)
	require.NoError(t, DropAllTables(db))
	require.NoError(t, Migrate(db))
	return db
}

func seedPlan(t *testing.T, repo PlanRepository, code string, isDefault bool) *models.Plan {
	t.Helper()
	plan := &models.Plan{Code: code, Name: code, Price: decimal.RequireFromString("9.99"), Default: isDefault, Active: true}
	plan.Normalize()
	require.NoError(t, repo.Create(context.Background(), plan))
	return plan
}

func seedVault(t *testing.T, repo VaultRepository, token string) *models.Vault {
	t.Helper()
	c := card.New("John Doe", "4111111111111111", "111", 12, 2090)
	c.Brand = card.Visa
	vault := &models.Vault{
		Gateway:    "Sandbox",
		Token:      token,
		CustomerID: "customer-1",
		StoredCard: models.NewStoredCard("customer-1", c, "fp-"+token),
	}
	require.NoError(t, repo.Create(context.Background(), vault))
	return vault
}

func TestPlanRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewPlanRepository(testDB(t))

	_, err := repo.LatestDefault(ctx)
	assert.True(t, errors.Is(err, billingerrors.ErrPlanNotFound))

	seedPlan(t, repo, "basic", true)
	time.Sleep(10 * time.Millisecond)
	pro := seedPlan(t, repo, "pro", true)

	latest, err := repo.LatestDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, pro.ID, latest.ID)

	byCode, err := repo.GetByCode(ctx, "basic")
	require.NoError(t, err)
	assert.Equal(t, "9.99", byCode.Price.StringFixed(2))

	_, err = repo.GetByCode(ctx, "missing")
	assert.True(t, errors.Is(err, billingerrors.ErrPlanNotFound))

	retired := &models.Plan{Code: "retired", Name: "Retired", Price: decimal.RequireFromString("4.99")}
	retired.Normalize()
	require.NoError(t, repo.Create(ctx, retired))

	stored, err := repo.GetByID(ctx, retired.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active, "an inactive plan is stored inactive")

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestVaultRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewVaultRepository(testDB(t))

	vault := seedVault(t, repo, "tok_1")
	require.NotNil(t, vault.StoredCardID)

	found, err := repo.FindByFingerprint(ctx, "Sandbox", "customer-1", "fp-tok_1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, vault.ID, found.ID)
	assert.Equal(t, "1111", found.StoredCard.LastFour)

	none, err := repo.FindByFingerprint(ctx, "Sandbox", "customer-2", "fp-tok_1")
	require.NoError(t, err)
	assert.Nil(t, none)

	dup := &models.Vault{Gateway: "Sandbox", Token: "tok_1", CustomerID: "customer-1"}
	assert.True(t, errors.Is(repo.Create(ctx, dup), ErrDuplicateToken))

	other := seedVault(t, repo, "tok_2")
	require.NoError(t, repo.SetDefault(ctx, vault.ID))
	require.NoError(t, repo.SetDefault(ctx, other.ID))
	vaults, err := repo.ListByCustomer(ctx, "customer-1")
	require.NoError(t, err)
	require.Len(t, vaults, 2)
	assert.False(t, vaults[0].IsDefault)
	assert.True(t, vaults[1].IsDefault)
}

func TestSubscriptionRepository_OneRunningPerVault(t *testing.T) {
	ctx := context.Background()
	db := testDB(t)
	plan := seedPlan(t, NewPlanRepository(db), "basic", false)
	vault := seedVault(t, NewVaultRepository(db), "tok_1")
	repo := NewSubscriptionRepository(db)

	newSub := func() *models.Subscription {
		return &models.Subscription{
			VaultID:   vault.ID,
			PlanID:    plan.ID,
			Status:    subscription.StatusPending,
			StartDate: time.Now(),
		}
	}

	used, err := repo.ExistsForPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.False(t, used)

	first := newSub()
	require.NoError(t, repo.Create(ctx, first))

	used, err = repo.ExistsForPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, used)

	err = repo.Create(ctx, newSub())
	assert.True(t, errors.Is(err, billingerrors.ErrMultipleRunningSubscriptions))

	running, err := repo.FindRunningByVault(ctx, vault.ID)
	require.NoError(t, err)
	assert.Len(t, running, 1)

	require.NoError(t, first.Apply(subscription.EventCancel, time.Now()))
	require.NoError(t, repo.Update(ctx, first))

	require.NoError(t, repo.Create(ctx, newSub()))

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, billingerrors.ErrSubscriptionNotFound))
}

func TestTransactionRecordRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRecordRepository(testDB(t))

	charge := &models.TransactionRecord{Kind: models.KindCharge, Gateway: "Sandbox", GatewayTransactionID: "tx_1", Status: "success", Amount: decimal.NewFromInt(100)}
	refund := &models.TransactionRecord{Kind: models.KindRefund, Gateway: "Sandbox", GatewayTransactionID: "tx_2", ParentTransactionID: "tx_1", Status: "failure", Errors: []string{"too large"}}
	require.NoError(t, repo.Append(ctx, charge))
	require.NoError(t, repo.Append(ctx, refund))

	history, err := repo.ListByGatewayTransaction(ctx, "tx_1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.KindCharge, history[0].Kind)
	assert.Equal(t, []string{"too large"}, []string(history[1].Errors))
}

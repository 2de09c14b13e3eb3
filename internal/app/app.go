// Package app wires the billing core from validated settings. Every
// command builds one App and closes it on exit.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"plans/internal/config"
	"plans/internal/gateway"
	"plans/internal/gateway/sandbox"
	stripegw "plans/internal/gateway/stripe"
	"plans/internal/handlers"
	"plans/internal/logging"
	"plans/internal/repositories"
	"plans/internal/repositories/cache"
	"plans/internal/services/payment"
	"plans/internal/services/plan"
	"plans/internal/services/subscription"
	"plans/internal/services/vault"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const planCacheTTL = 10 * time.Minute

// App holds the resolved gateway, the connections and the services.
type App struct {
	Settings *config.Settings
	Log      *slog.Logger

	DB    *gorm.DB
	Redis *redis.Client

	Gateway       gateway.Gateway
	Plans         plan.Service
	Vaults        vault.Service
	Payments      payment.Service
	Subscriptions subscription.Service
}

// NewRegistry lists every gateway adapter BILLING_GATEWAY may name.
func NewRegistry() *gateway.Registry {
	r := gateway.NewRegistry()
	r.Register(sandbox.Key, sandbox.New)
	r.Register(stripegw.Key, stripegw.New)
	return r
}

// New resolves the gateway first so a bad configuration fails before any
// connection is opened.
func New(settings *config.Settings, log *slog.Logger) (*App, error) {
	gw, err := NewRegistry().Resolve(settings.BillingGateway, settings.GatewaySettings())
	if err != nil {
		return nil, err
	}
	log.Info("billing gateway resolved", "gateway", gw.Name(), "test_mode", settings.TestMode)

	db, err := repositories.InitDB(settings.Database, log)
	if err != nil {
		return nil, err
	}

	a := &App{Settings: settings, Log: log, DB: db, Gateway: gw}

	var (
		planCache plan.Cache
		locker    subscription.Locker
	)
	if settings.Redis.Enabled() {
		a.Redis = cache.NewRedisClient(&cache.RedisConfig{
			Host:     settings.Redis.Host,
			Port:     settings.Redis.Port,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})
		if err := cache.Ping(context.Background(), a.Redis); err != nil {
			log.Warn("redis unavailable, continuing without plan cache and subscribe lock", "error", err)
			_ = a.Redis.Close()
			a.Redis = nil
		} else {
			planCache = cache.NewCacheService(a.Redis, planCacheTTL)
			locker = cache.NewLocker(a.Redis)
		}
	}

	plans := repositories.NewPlanRepository(db)
	vaults := repositories.NewVaultRepository(db)
	subs := repositories.NewSubscriptionRepository(db)
	records := repositories.NewTransactionRecordRepository(db)
	key := []byte(settings.CardFingerprintSecret)

	a.Plans = plan.NewService(plans, subs, planCache, settings.DefaultPlan)
	a.Vaults = vault.NewService(gw, vaults, subs, vault.Config{
		FingerprintKey:    key,
		StoreCustomerInfo: settings.StoreCustomerInfo,
	})
	a.Payments = payment.NewService(gw, records, payment.Config{StoreCustomerInfo: settings.StoreCustomerInfo})
	a.Subscriptions = subscription.NewService(gw, a.Plans, a.Vaults, subs, records, subscription.Config{
		FingerprintKey:    key,
		TaxPercent:        settings.TaxPercent,
		StoreCustomerInfo: settings.StoreCustomerInfo,
		Locker:            locker,
	}, log.With("component", "subscriptions"))

	return a, nil
}

// HealthChecks are the readiness probes for the open connections.
func (a *App) HealthChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return cache.Ping(ctx, a.Redis)
		}
	}
	return checks
}

// Close releases the connections. It logs instead of failing since it
// runs on the way out.
func (a *App) Close() {
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err != nil {
			a.Log.Warn("failed to get database instance", "error", err)
		} else if err := sqlDB.Close(); err != nil {
			a.Log.Warn("failed to close database connection", "error", err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("failed to close redis connection", "error", err)
		}
	}
}

// LoadSettings reads .env and the process environment and builds the
// logger the settings ask for.
func LoadSettings() (*config.Settings, *slog.Logger, error) {
	config.LoadEnv()
	settings, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, logging.New(settings.Log), nil
}

// Package repositories provides data access layer implementations.
// It handles all database operations and data persistence logic.
package repositories

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"plans/internal/config"
	"plans/internal/models"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// runningSubscriptionIndex closes the one running subscription per vault
// race at the database.
const runningSubscriptionIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_running_vault
	ON subscriptions (vault_id)
	WHERE status IN ('pending', 'active', 'past_due')`

// InitDB opens the postgres connection through lib/pq, applies the pool
// settings and migrates the schema.
func InitDB(cfg config.DatabaseSettings, appLog *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DriverName: "postgres",
		DSN:        cfg.DSN(),
	}), &gorm.Config{Logger: newGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	appLog.Info("postgres connected and migrated", "host", cfg.Host, "database", cfg.Name)
	return db, nil
}

// Migrate creates or updates every table the billing core owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Plan{},
		&models.StoredCard{},
		&models.Vault{},
		&models.Subscription{},
		&models.TransactionRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := db.Exec(runningSubscriptionIndex).Error; err != nil {
		return fmt.Errorf("failed to create running subscription index: %w", err)
	}
	return nil
}

// DropAllTables is used by integration tests to start from a clean schema.
func DropAllTables(db *gorm.DB) error {
	return db.Migrator().DropTable(
		&models.TransactionRecord{},
		&models.Subscription{},
		&models.Vault{},
		&models.StoredCard{},
		&models.Plan{},
	)
}

// newGormLogger only reports slow queries and errors, and ignores record
// not found.
func newGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

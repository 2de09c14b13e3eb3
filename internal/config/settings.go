package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	billingerrors "plans/internal/errors"
	"plans/internal/gateway"
	"plans/internal/validation"

	"github.com/shopspring/decimal"
)

// Settings is the validated process configuration. It is built once by
// Load and never mutated afterwards.
type Settings struct {
	Env string

	// DefaultPlan is the plan code used when a subscribe request names none.
	DefaultPlan       string
	BillingGateway    string
	TestMode          bool
	StoreCustomerInfo bool
	TaxPercent        decimal.Decimal

	GatewaySecretKey         string
	GatewayPublicKey         string
	GatewayMerchantAccountID string

	CardFingerprintSecret string

	Database DatabaseSettings
	Redis    RedisSettings
	HTTPPort string
	Log      LogSettings
}

// DatabaseSettings holds postgres connection and pool configuration.
type DatabaseSettings struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN renders the libpq connection string.
func (d DatabaseSettings) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisSettings holds redis connection configuration. An empty Host
// disables the cache.
type RedisSettings struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisSettings) Enabled() bool {
	return r.Host != ""
}

// LogSettings selects the slog handler.
type LogSettings struct {
	Level  string
	Format string
}

// Defaults are the documented values used for unset keys.
var Defaults = map[string]string{
	"ENV":                   "development",
	"DEFAULT_PLAN":          "",
	"TEST_MODE":             "false",
	"STORE_CUSTOMER_INFO":   "true",
	"TAX_PERCENT":           "0",
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "postgres",
	"DB_PASSWORD":           "postgres",
	"DB_NAME":               "plans",
	"DB_SSLMODE":            "disable",
	"DB_MAX_IDLE_CONNS":     "10",
	"DB_MAX_OPEN_CONNS":     "100",
	"DB_CONN_MAX_LIFETIME":  "1h",
	"DB_CONN_MAX_IDLE_TIME": "30m",
	"REDIS_HOST":            "",
	"REDIS_PORT":            "6379",
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              "0",
	"PORT":                  "3000",
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
}

// LookupFunc resolves a key the way os.LookupEnv does.
type LookupFunc func(key string) (string, bool)

// Load builds Settings from the process environment.
func Load() (*Settings, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom merges values from lookup over Defaults and validates the result.
// Every problem is reported at once, wrapped in ErrImproperlyConfigured.
func LoadFrom(lookup LookupFunc) (*Settings, error) {
	r := reader{lookup: lookup, v: validation.New()}

	s := &Settings{
		Env:                      r.str("ENV"),
		DefaultPlan:              r.str("DEFAULT_PLAN"),
		BillingGateway:           r.str("BILLING_GATEWAY"),
		TestMode:                 r.boolean("TEST_MODE"),
		StoreCustomerInfo:        r.boolean("STORE_CUSTOMER_INFO"),
		TaxPercent:               r.dec("TAX_PERCENT"),
		GatewaySecretKey:         r.str("GATEWAY_SECRET_KEY"),
		GatewayPublicKey:         r.str("GATEWAY_PUBLIC_KEY"),
		GatewayMerchantAccountID: r.str("GATEWAY_MERCHANT_ACCOUNT_ID"),
		CardFingerprintSecret:    r.str("CARD_FINGERPRINT_SECRET"),
		Database: DatabaseSettings{
			Host:            r.str("DB_HOST"),
			Port:            r.integer("DB_PORT"),
			User:            r.str("DB_USER"),
			Password:        r.str("DB_PASSWORD"),
			Name:            r.str("DB_NAME"),
			SSLMode:         r.str("DB_SSLMODE"),
			MaxIdleConns:    r.integer("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    r.integer("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: r.duration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: r.duration("DB_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisSettings{
			Host:     r.str("REDIS_HOST"),
			Port:     r.str("REDIS_PORT"),
			Password: r.str("REDIS_PASSWORD"),
			DB:       r.integer("REDIS_DB"),
		},
		HTTPPort: r.str("PORT"),
		Log: LogSettings{
			Level:  strings.ToLower(r.str("LOG_LEVEL")),
			Format: strings.ToLower(r.str("LOG_FORMAT")),
		},
	}

	v := r.v
	v.Required("BILLING_GATEWAY", s.BillingGateway)
	v.Check(s.TaxPercent.GreaterThanOrEqual(decimal.Zero) && s.TaxPercent.LessThanOrEqual(decimal.NewFromInt(100)),
		"TAX_PERCENT", "must be between 0 and 100")
	v.OneOf("LOG_FORMAT", s.Log.Format, "text", "json")
	v.OneOf("LOG_LEVEL", s.Log.Level, "debug", "info", "warn", "warning", "error")
	v.Check(s.Database.MaxOpenConns >= s.Database.MaxIdleConns, "DB_MAX_OPEN_CONNS", "must not be lower than DB_MAX_IDLE_CONNS")
	if s.Env == "production" {
		v.Check(!s.TestMode, "TEST_MODE", "must be false in production")
		v.Required("CARD_FINGERPRINT_SECRET", s.CardFingerprintSecret)
	}

	if err := v.Err(); err != nil {
		return nil, billingerrors.ErrImproperlyConfigured.Wrap(err)
	}
	return s, nil
}

// GatewaySettings returns the subset handed to the gateway constructor.
func (s *Settings) GatewaySettings() gateway.Settings {
	return gateway.Settings{
		TestMode:          s.TestMode,
		SecretKey:         s.GatewaySecretKey,
		PublicKey:         s.GatewayPublicKey,
		MerchantAccountID: s.GatewayMerchantAccountID,
	}
}

type reader struct {
	lookup LookupFunc
	v      *validation.Validator
}

func (r reader) str(key string) string {
	if val, ok := r.lookup(key); ok && val != "" {
		return strings.TrimSpace(val)
	}
	return Defaults[key]
}

func (r reader) integer(key string) int {
	raw := r.str(key)
	i, err := strconv.Atoi(raw)
	if err != nil {
		r.v.AddError(key, "must be an integer")
	}
	return i
}

func (r reader) boolean(key string) bool {
	raw := r.str(key)
	b, err := strconv.ParseBool(raw)
	if err != nil {
		r.v.AddError(key, "must be a boolean")
	}
	return b
}

func (r reader) duration(key string) time.Duration {
	raw := r.str(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.v.AddError(key, "must be a duration")
	}
	return d
}

func (r reader) dec(key string) decimal.Decimal {
	raw := r.str(key)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		r.v.AddError(key, "must be a number")
	}
	return d
}

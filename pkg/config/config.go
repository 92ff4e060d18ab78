package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Settlement   SettlementConfig
	WebhookRate  WebhookRateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Settlement.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORA_DB_DSN"`
	Driver string `envconfig:"VENDORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDORA_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDORA_DB_USER"`
	LegacyPassword string `envconfig:"VENDORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDORA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDORA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDORA_JWT_EXPIRATION_MINUTES" required:"true"`
}

// SettlementConfig carries the store-wide pricing and payout knobs.
type SettlementConfig struct {
	TaxRate               string `envconfig:"VENDORA_TAX_RATE" default:"0"`
	FlatShippingCents     int64  `envconfig:"VENDORA_FLAT_SHIPPING_CENTS" default:"0"`
	DefaultCommissionRate string `envconfig:"VENDORA_DEFAULT_COMMISSION_RATE" default:"10"`
	AutomaticPayouts      bool   `envconfig:"VENDORA_ENABLE_AUTOMATIC_PAYOUTS" default:"false"`
	Currency              string `envconfig:"VENDORA_CURRENCY" default:"USD"`
	WebhookIdempotencyTTL time.Duration `envconfig:"VENDORA_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

// WebhookRateLimitConfig throttles the public gateway webhook surface.
// Zero window or zero limits disables throttling.
type WebhookRateLimitConfig struct {
	Window       time.Duration `envconfig:"VENDORA_WEBHOOK_RATE_WINDOW" default:"1m"`
	IPLimit      int64         `envconfig:"VENDORA_WEBHOOK_RATE_IP_LIMIT" default:"120"`
	GatewayLimit int64         `envconfig:"VENDORA_WEBHOOK_RATE_GATEWAY_LIMIT" default:"600"`
}

func (s SettlementConfig) validate() error {
	if _, err := decimal.NewFromString(s.TaxRate); err != nil {
		return fmt.Errorf("parsing tax rate %q: %w", s.TaxRate, err)
	}
	if _, err := decimal.NewFromString(s.DefaultCommissionRate); err != nil {
		return fmt.Errorf("parsing default commission rate %q: %w", s.DefaultCommissionRate, err)
	}
	if s.FlatShippingCents < 0 {
		return fmt.Errorf("flat shipping cents must be non-negative")
	}
	return nil
}

// TaxRateDecimal returns the configured tax rate as a percentage decimal.
func (s SettlementConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(s.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// DefaultCommissionRateDecimal returns the store-wide commission percentage.
func (s SettlementConfig) DefaultCommissionRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(s.DefaultCommissionRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDORA_AUTO_MIGRATE" default:"false"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"VENDORA_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"VENDORA_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"VENDORA_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID       string `envconfig:"VENDORA_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"VENDORA_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	SettlementTopic        string `envconfig:"VENDORA_PUBSUB_SETTLEMENT_TOPIC" default:"vendora-settlement-events"`
	SettlementSubscription string `envconfig:"VENDORA_PUBSUB_SETTLEMENT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDORA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDORA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDORA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

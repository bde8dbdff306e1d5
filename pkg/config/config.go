package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "MONDODORO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "MONDODORO_DB_DSN"
	EnvDBHost = "MONDODORO_DB_HOST"
	EnvDBUser = "MONDODORO_DB_USER"
	EnvDBName = "MONDODORO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Platform     PlatformConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Platform.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MONDODORO_APP_ENV" required:"true"`
	Port         string `envconfig:"MONDODORO_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"MONDODORO_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"MONDODORO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MONDODORO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MONDODORO_DB_DSN"`
	Driver string `envconfig:"MONDODORO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MONDODORO_DB_HOST"`
	LegacyPort     int    `envconfig:"MONDODORO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MONDODORO_DB_USER"`
	LegacyPassword string `envconfig:"MONDODORO_DB_PASSWORD"`
	LegacyName     string `envconfig:"MONDODORO_DB_NAME"`
	LegacySSLMode  string `envconfig:"MONDODORO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MONDODORO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MONDODORO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MONDODORO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MONDODORO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MONDODORO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MONDODORO_REDIS_ADDR"`
	Password     string        `envconfig:"MONDODORO_REDIS_PASSWORD"`
	DB           int           `envconfig:"MONDODORO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MONDODORO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MONDODORO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MONDODORO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MONDODORO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MONDODORO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey         string `envconfig:"MONDODORO_STRIPE_API_KEY"`
	WebhookSecret  string `envconfig:"MONDODORO_STRIPE_WEBHOOK_SECRET"`
	Env            string `envconfig:"MONDODORO_STRIPE_ENV" default:"test"`
	AccountCountry string `envconfig:"MONDODORO_STRIPE_ACCOUNT_COUNTRY" default:"IT"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// PlatformConfig carries the platform commission settings. Loaded once at boot;
// the former singleton settings row only survives as an audit record.
type PlatformConfig struct {
	FeePercentage   decimal.Decimal `envconfig:"MONDODORO_PLATFORM_FEE_PERCENTAGE" default:"2.5"`
	FeeFixed        decimal.Decimal `envconfig:"MONDODORO_PLATFORM_FEE_FIXED" default:"0.30"`
	MinContribution decimal.Decimal `envconfig:"MONDODORO_MIN_CONTRIBUTION" default:"1.00"`
	MaxContribution decimal.Decimal `envconfig:"MONDODORO_MAX_CONTRIBUTION" default:"10000.00"`
}

func (p PlatformConfig) validate() error {
	if p.FeePercentage.IsNegative() || p.FeeFixed.IsNegative() {
		return fmt.Errorf("platform fees must be non-negative")
	}
	if p.MinContribution.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("minimum contribution must be positive")
	}
	if p.MaxContribution.LessThan(p.MinContribution) {
		return fmt.Errorf("maximum contribution must be >= minimum contribution")
	}
	return nil
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"MONDODORO_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MONDODORO_AUTO_MIGRATE" default:"false"`
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

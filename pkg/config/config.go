package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App             AppConfig
	Service         ServiceConfig
	DB              DBConfig
	Redis           RedisConfig
	IdentityWebhook IdentityWebhookConfig
	Visit           VisitConfig
	BookingRate     BookingRateLimitConfig
	Retry           RetryConfig
	FeatureFlags    FeatureFlagsConfig
	Outbox          OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PLOTVISTA_APP_ENV" required:"true"`
	Port         string `envconfig:"PLOTVISTA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PLOTVISTA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLOTVISTA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PLOTVISTA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PLOTVISTA_DB_DSN"`
	Driver string `envconfig:"PLOTVISTA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PLOTVISTA_DB_HOST"`
	LegacyPort     int    `envconfig:"PLOTVISTA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PLOTVISTA_DB_USER"`
	LegacyPassword string `envconfig:"PLOTVISTA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PLOTVISTA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PLOTVISTA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PLOTVISTA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLOTVISTA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLOTVISTA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLOTVISTA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PLOTVISTA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PLOTVISTA_REDIS_ADDR"`
	Password     string        `envconfig:"PLOTVISTA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLOTVISTA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLOTVISTA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLOTVISTA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLOTVISTA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLOTVISTA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLOTVISTA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// IdentityWebhookConfig configures verification of identity-provider webhooks.
type IdentityWebhookConfig struct {
	SigningSecret string        `envconfig:"PLOTVISTA_IDENTITY_WEBHOOK_SECRET" required:"true"`
	EventTTL      time.Duration `envconfig:"PLOTVISTA_IDENTITY_WEBHOOK_EVENT_TTL" default:"24h"`
}

// VisitConfig carries tunables for the visit-request lifecycle.
type VisitConfig struct {
	QRValidityWindow time.Duration `envconfig:"PLOTVISTA_VISIT_QR_TTL" default:"24h"`
	DuplicateCheck   bool          `envconfig:"PLOTVISTA_VISIT_DUPLICATE_CHECK" default:"true"`
}

type BookingRateLimitConfig struct {
	Window   time.Duration `envconfig:"PLOTVISTA_BOOKING_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit  int           `envconfig:"PLOTVISTA_BOOKING_RATE_LIMIT_IP_LIMIT" default:"10"`
	KeyLimit int           `envconfig:"PLOTVISTA_BOOKING_RATE_LIMIT_EMAIL_LIMIT" default:"5"`
}

// RetryConfig bounds the store retry wrapper.
type RetryConfig struct {
	MaxAttempts int           `envconfig:"PLOTVISTA_STORE_RETRY_MAX_ATTEMPTS" default:"3"`
	BaseDelay   time.Duration `envconfig:"PLOTVISTA_STORE_RETRY_BASE_DELAY" default:"500ms"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PLOTVISTA_AUTO_MIGRATE" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PLOTVISTA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PLOTVISTA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PLOTVISTA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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

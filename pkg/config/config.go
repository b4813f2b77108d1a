package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix scopes every environment variable the service reads.
	EnvPrefix = "ACCOUNTS"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv          = "ACCOUNTS_APP_ENV"
	EnvPort            = "ACCOUNTS_APP_PORT"
	EnvDBDSN           = "ACCOUNTS_DB_DSN"
	EnvDBHost          = "ACCOUNTS_DB_HOST"
	EnvDBUser          = "ACCOUNTS_DB_USER"
	EnvDBName          = "ACCOUNTS_DB_NAME"
	EnvRedisURL        = "ACCOUNTS_REDIS_URL"
	EnvOIDCMode        = "ACCOUNTS_OIDC_MODE"
	EnvOIDCIssuer      = "ACCOUNTS_OIDC_ISSUER"
	EnvOIDCAud         = "ACCOUNTS_OIDC_AUDIENCE"
	EnvOIDCDevSecret   = "ACCOUNTS_OIDC_DEV_SECRET"
	EnvGCPProject      = "ACCOUNTS_GCP_PROJECT_ID"
	EnvPubSubUserTopic = "ACCOUNTS_PUBSUB_USER_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	OIDC         OIDCConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
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
	if err := cfg.OIDC.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ACCOUNTS_APP_ENV" required:"true"`
	Port         string `envconfig:"ACCOUNTS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ACCOUNTS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACCOUNTS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ACCOUNTS_DB_DSN"`
	Driver string `envconfig:"ACCOUNTS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ACCOUNTS_DB_HOST"`
	LegacyPort     int    `envconfig:"ACCOUNTS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ACCOUNTS_DB_USER"`
	LegacyPassword string `envconfig:"ACCOUNTS_DB_PASSWORD"`
	LegacyName     string `envconfig:"ACCOUNTS_DB_NAME"`
	LegacySSLMode  string `envconfig:"ACCOUNTS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ACCOUNTS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACCOUNTS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACCOUNTS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACCOUNTS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ACCOUNTS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ACCOUNTS_REDIS_ADDR"`
	Password     string        `envconfig:"ACCOUNTS_REDIS_PASSWORD"`
	DB           int           `envconfig:"ACCOUNTS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ACCOUNTS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ACCOUNTS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ACCOUNTS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ACCOUNTS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ACCOUNTS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OIDCConfig drives the delegated token verifier. Mode "oidc" verifies against
// the issuer's JWKS endpoint; mode "static" parses HS256 tokens signed with
// DevSecret and exists for local development and tests only.
type OIDCConfig struct {
	Mode      string `envconfig:"ACCOUNTS_OIDC_MODE" default:"oidc"`
	IssuerURL string `envconfig:"ACCOUNTS_OIDC_ISSUER"`
	Audience  string `envconfig:"ACCOUNTS_OIDC_AUDIENCE"`
	DevSecret string `envconfig:"ACCOUNTS_OIDC_DEV_SECRET"`
	DevIssuer string `envconfig:"ACCOUNTS_OIDC_DEV_ISSUER" default:"accounts-dev"`
}

const (
	OIDCModeRemote = "oidc"
	OIDCModeStatic = "static"
)

func (o OIDCConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Mode)) {
	case OIDCModeRemote:
		if o.IssuerURL == "" {
			return fmt.Errorf("%s is required in oidc mode", EnvOIDCIssuer)
		}
		if o.Audience == "" {
			return fmt.Errorf("%s is required in oidc mode", EnvOIDCAud)
		}
	case OIDCModeStatic:
		if o.DevSecret == "" {
			return fmt.Errorf("ACCOUNTS_OIDC_DEV_SECRET is required in static mode")
		}
	default:
		return fmt.Errorf("unknown oidc mode %q", o.Mode)
	}
	return nil
}

func (o OIDCConfig) IsStatic() bool {
	return strings.EqualFold(strings.TrimSpace(o.Mode), OIDCModeStatic)
}

type RateLimitConfig struct {
	Window  time.Duration `envconfig:"ACCOUNTS_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit int           `envconfig:"ACCOUNTS_RATE_LIMIT_IP_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ACCOUNTS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ACCOUNTS_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"ACCOUNTS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	UserTopic        string `envconfig:"ACCOUNTS_PUBSUB_USER_TOPIC" default:"accounts-user-events"`
	UserSubscription string `envconfig:"ACCOUNTS_PUBSUB_USER_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ACCOUNTS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ACCOUNTS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ACCOUNTS_OUTBOX_MAX_ATTEMPTS" default:"10"`
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

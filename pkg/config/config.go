package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "bottlespin"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "BOTTLESPIN_APP_ENV"
	EnvPort       = "BOTTLESPIN_APP_PORT"
	EnvDBDSN      = "BOTTLESPIN_DB_DSN"
	EnvDBHost     = "BOTTLESPIN_DB_HOST"
	EnvDBUser     = "BOTTLESPIN_DB_USER"
	EnvDBName     = "BOTTLESPIN_DB_NAME"
	EnvRedisURL   = "BOTTLESPIN_REDIS_URL"
	EnvJWTSecret  = "BOTTLESPIN_JWT_SECRET"
	EnvJWTIssuer  = "BOTTLESPIN_JWT_ISSUER"
	EnvJWTExpMins = "BOTTLESPIN_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Cron         CronConfig
	Notify       NotifyConfig
	RateLimit    RateLimitConfig
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
	Env          string `envconfig:"BOTTLESPIN_APP_ENV" required:"true"`
	Port         string `envconfig:"BOTTLESPIN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOTTLESPIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOTTLESPIN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BOTTLESPIN_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BOTTLESPIN_DB_DSN"`
	Driver string `envconfig:"BOTTLESPIN_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOTTLESPIN_DB_HOST"`
	LegacyPort     int    `envconfig:"BOTTLESPIN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOTTLESPIN_DB_USER"`
	LegacyPassword string `envconfig:"BOTTLESPIN_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOTTLESPIN_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOTTLESPIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOTTLESPIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOTTLESPIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOTTLESPIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOTTLESPIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOTTLESPIN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BOTTLESPIN_REDIS_ADDR"`
	Password     string        `envconfig:"BOTTLESPIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOTTLESPIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOTTLESPIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOTTLESPIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOTTLESPIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOTTLESPIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOTTLESPIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BOTTLESPIN_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BOTTLESPIN_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BOTTLESPIN_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOTTLESPIN_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BOTTLESPIN_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"BOTTLESPIN_CRON_LOCK_TTL" default:"20m"`
}

type RateLimitConfig struct {
	ScanWindow time.Duration `envconfig:"BOTTLESPIN_RATE_LIMIT_SCAN_WINDOW" default:"1m"`
	ScanLimit  int           `envconfig:"BOTTLESPIN_RATE_LIMIT_SCAN_LIMIT" default:"30"`
}

type NotifyConfig struct {
	ChannelPrefix   string `envconfig:"BOTTLESPIN_NOTIFY_CHANNEL_PREFIX" default:"bottlespin"`
	PublishAttempts int    `envconfig:"BOTTLESPIN_NOTIFY_PUBLISH_ATTEMPTS" default:"3"`
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

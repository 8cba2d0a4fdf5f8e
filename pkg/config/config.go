package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "NIGHTSHIFT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "NIGHTSHIFT_APP_ENV"
	EnvPort       = "NIGHTSHIFT_APP_PORT"
	EnvDBDSN      = "NIGHTSHIFT_DB_DSN"
	EnvDBHost     = "NIGHTSHIFT_DB_HOST"
	EnvDBUser     = "NIGHTSHIFT_DB_USER"
	EnvDBName     = "NIGHTSHIFT_DB_NAME"
	EnvRedisURL   = "NIGHTSHIFT_REDIS_URL"
	EnvJWTSecret  = "NIGHTSHIFT_JWT_SECRET"
	EnvJWTIssuer  = "NIGHTSHIFT_JWT_ISSUER"
	EnvJWTExpMins = "NIGHTSHIFT_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Ledger        LedgerConfig
	Orders        OrdersConfig
	Cron          CronConfig
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
	Env          string   `envconfig:"NIGHTSHIFT_APP_ENV" required:"true"`
	Port         string   `envconfig:"NIGHTSHIFT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"NIGHTSHIFT_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"NIGHTSHIFT_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"NIGHTSHIFT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"NIGHTSHIFT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"NIGHTSHIFT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NIGHTSHIFT_DB_DSN"`
	Driver string `envconfig:"NIGHTSHIFT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NIGHTSHIFT_DB_HOST"`
	LegacyPort     int    `envconfig:"NIGHTSHIFT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NIGHTSHIFT_DB_USER"`
	LegacyPassword string `envconfig:"NIGHTSHIFT_DB_PASSWORD"`
	LegacyName     string `envconfig:"NIGHTSHIFT_DB_NAME"`
	LegacySSLMode  string `envconfig:"NIGHTSHIFT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NIGHTSHIFT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NIGHTSHIFT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NIGHTSHIFT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NIGHTSHIFT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"NIGHTSHIFT_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NIGHTSHIFT_REDIS_URL"`
	Address      string        `envconfig:"NIGHTSHIFT_REDIS_ADDR"`
	Password     string        `envconfig:"NIGHTSHIFT_REDIS_PASSWORD"`
	DB           int           `envconfig:"NIGHTSHIFT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NIGHTSHIFT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NIGHTSHIFT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NIGHTSHIFT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NIGHTSHIFT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NIGHTSHIFT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NIGHTSHIFT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NIGHTSHIFT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NIGHTSHIFT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NIGHTSHIFT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NIGHTSHIFT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NIGHTSHIFT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NIGHTSHIFT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NIGHTSHIFT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"NIGHTSHIFT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"NIGHTSHIFT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"NIGHTSHIFT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`

	RegisterWindow     time.Duration `envconfig:"NIGHTSHIFT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"1h"`
	RegisterEmailLimit int           `envconfig:"NIGHTSHIFT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"NIGHTSHIFT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NIGHTSHIFT_AUTO_MIGRATE" default:"false"`
	// InProcessLocks swaps the redis locker for an in-memory one (single replica dev setups).
	InProcessLocks bool `envconfig:"NIGHTSHIFT_IN_PROCESS_LOCKS" default:"false"`
}

// LedgerConfig tunes the per-item serialization of stock mutations.
type LedgerConfig struct {
	LockTTL       time.Duration `envconfig:"NIGHTSHIFT_LEDGER_LOCK_TTL" default:"10s"`
	LockAttempts  int           `envconfig:"NIGHTSHIFT_LEDGER_LOCK_ATTEMPTS" default:"3"`
	LockBackoff   time.Duration `envconfig:"NIGHTSHIFT_LEDGER_LOCK_BACKOFF" default:"50ms"`
	VersionRetry  int           `envconfig:"NIGHTSHIFT_LEDGER_VERSION_RETRIES" default:"3"`
	SequenceRetry int           `envconfig:"NIGHTSHIFT_SEQUENCE_RETRIES" default:"5"`
}

type OrdersConfig struct {
	StrictTransitions bool          `envconfig:"NIGHTSHIFT_ORDERS_STRICT_TRANSITIONS" default:"false"`
	LockTTL           time.Duration `envconfig:"NIGHTSHIFT_ORDERS_LOCK_TTL" default:"30s"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"NIGHTSHIFT_CRON_INTERVAL" default:"1h"`
	JobTimeout     time.Duration `envconfig:"NIGHTSHIFT_CRON_JOB_TIMEOUT" default:"30m"`
	ReconcileLimit int           `envconfig:"NIGHTSHIFT_RECONCILE_PARALLELISM" default:"4"`
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

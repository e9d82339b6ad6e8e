package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is applied to every environment variable consumed here.
const EnvPrefix = "FFLGATE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "FFLGATE_DB_DSN"
	EnvDBHost = "FFLGATE_DB_HOST"
	EnvDBUser = "FFLGATE_DB_USER"
	EnvDBName = "FFLGATE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Restrictions RestrictionsConfig
	Dealer       DealerConfig
	Session      SessionConfig
	SavedCart    SavedCartConfig
	RestoreLimit RestoreRateLimitConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FFLGATE_APP_ENV" required:"true"`
	Port         string `envconfig:"FFLGATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FFLGATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FFLGATE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FFLGATE_DB_DSN"`
	Driver string `envconfig:"FFLGATE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FFLGATE_DB_HOST"`
	LegacyPort     int    `envconfig:"FFLGATE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FFLGATE_DB_USER"`
	LegacyPassword string `envconfig:"FFLGATE_DB_PASSWORD"`
	LegacyName     string `envconfig:"FFLGATE_DB_NAME"`
	LegacySSLMode  string `envconfig:"FFLGATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FFLGATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FFLGATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FFLGATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FFLGATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FFLGATE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FFLGATE_REDIS_ADDR"`
	Password     string        `envconfig:"FFLGATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FFLGATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FFLGATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FFLGATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FFLGATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FFLGATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FFLGATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// RestrictionsConfig drives the product restrictions API client.
type RestrictionsConfig struct {
	BaseURL        string        `envconfig:"FFLGATE_RESTRICTIONS_BASE_URL" required:"true"`
	StoreHash      string        `envconfig:"FFLGATE_RESTRICTIONS_STORE_HASH" required:"true"`
	Timeout        time.Duration `envconfig:"FFLGATE_RESTRICTIONS_TIMEOUT" default:"15s"`
	CacheTTL       time.Duration `envconfig:"FFLGATE_RESTRICTIONS_CACHE_TTL" default:"1h"`
	UnavailableTTL time.Duration `envconfig:"FFLGATE_RESTRICTIONS_UNAVAILABLE_TTL" default:"5m"`
}

// DealerConfig describes the embedded dealer-picker surface.
type DealerConfig struct {
	AllowedOrigins []string `envconfig:"FFLGATE_DEALER_ALLOWED_ORIGINS" required:"true"`
	DirectoryURL   string   `envconfig:"FFLGATE_DEALER_DIRECTORY_URL"`
	PlatformID     string   `envconfig:"FFLGATE_DEALER_PLATFORM_ID" default:"fflcommerce"`
	MapsAPIKey     string   `envconfig:"FFLGATE_DEALER_MAPS_API_KEY"`
}

// NormalizedOrigins lowercases and trims the configured allow-list.
func (d DealerConfig) NormalizedOrigins() []string {
	out := make([]string, 0, len(d.AllowedOrigins))
	for _, origin := range d.AllowedOrigins {
		trimmed := strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type SessionConfig struct {
	TTL          time.Duration `envconfig:"FFLGATE_SESSION_TTL" default:"24h"`
	CookieName   string        `envconfig:"FFLGATE_SESSION_COOKIE" default:"fflg_visitor"`
	CookieSecure bool          `envconfig:"FFLGATE_SESSION_COOKIE_SECURE" default:"true"`
	NonceTTL     time.Duration `envconfig:"FFLGATE_SESSION_NONCE_TTL" default:"10m"`
}

type SavedCartConfig struct {
	TTL          time.Duration `envconfig:"FFLGATE_SAVED_CART_TTL" default:"24h"`
	CookieName   string        `envconfig:"FFLGATE_SAVED_CART_COOKIE" default:"fflg_saved_cart"`
	CookieSecure bool          `envconfig:"FFLGATE_SAVED_CART_COOKIE_SECURE" default:"true"`
}

type RestoreRateLimitConfig struct {
	Window time.Duration `envconfig:"FFLGATE_RESTORE_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"FFLGATE_RESTORE_RATE_LIMIT" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FFLGATE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FFLGATE_AUTO_MIGRATE" default:"false"`
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

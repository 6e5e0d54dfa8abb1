package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ehsh01/it-ops-dashboard/internal/auth/mail"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/service"
	"github.com/ehsh01/it-ops-dashboard/internal/auth/store/drivers/redis"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionStoreDatabase = "database"
	SessionStoreRedis    = "redis"

	// minSessionSecretLen matches the state signer's HMAC floor.
	minSessionSecretLen = 32
)

var (
	ErrMissingSessionSecret = errors.New("SESSION_SECRET must be set outside dev")
	ErrShortSessionSecret   = fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required for the postgres driver")
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired session sweep interval (default: 1h)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: ./dashboard.db)
	DatabaseURL    string // Postgres DSN, required for the postgres driver

	SessionStore  string        // database or redis (default: database)
	SessionSecret string        // Signs OAuth state; required outside dev
	SessionTTL    time.Duration // Login session lifetime (default: 7 days)
	CookieSecure  bool          // Secure flag on the session cookie (default: on outside dev)

	// TrustProxyHeaders keys rate limits on X-Forwarded-For / X-Real-IP
	// instead of the socket peer (default: false).
	TrustProxyHeaders bool

	// TokenEncryptionKey seals stored Microsoft tokens. Falls back to
	// SessionSecret.
	TokenEncryptionKey string

	Redis redis.Options

	Microsoft            service.MicrosoftConfig
	MicrosoftRedirectURL string // Optional: fixed OAuth callback URL

	ResendAPIKey string
	EmailFrom    string
	AppURL       string // Public origin of the web app (default: http://localhost:5000)

	// Seeded as the first admin when the user table is empty.
	BootstrapAdminUsername string
	BootstrapAdminPassword string
}

func LoadConfig() Config {
	if dotenv := os.Getenv("DOTENV_FILE"); dotenv != "" {
		_ = godotenv.Load(dotenv)
	} else if os.Getenv("ENV") == "" || os.Getenv("ENV") == "dev" {
		// A missing .env is fine; real deployments use the environment.
		_ = godotenv.Load()
	}

	env := getEnvOrDefault("ENV", "dev")

	cfg := Config{
		Env:                  env,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   getEnvOrDefault("DATABASE_FILE", "dashboard.db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		SessionStore:  strings.ToLower(getEnvOrDefault("SESSION_STORE", SessionStoreDatabase)),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    getEnvDurationOrDefault("SESSION_TTL", service.DefaultSessionTTL),
		CookieSecure:  getEnvBoolOrDefault("COOKIE_SECURE", env != "dev"),

		TrustProxyHeaders: getEnvBoolOrDefault("TRUST_PROXY_HEADERS", false),

		TokenEncryptionKey: os.Getenv("TOKEN_ENCRYPTION_KEY"),

		Redis: redis.Options{
			Addr:     redisAddr(),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvIntOrDefault("REDIS_DB", 0),
			TLS:      getEnvBoolOrDefault("REDIS_TLS", false),
		},

		Microsoft: service.MicrosoftConfig{
			ClientID:     os.Getenv("MICROSOFT_CLIENT_ID"),
			ClientSecret: os.Getenv("MICROSOFT_CLIENT_SECRET"),
			TenantID:     getEnvOrDefault("MICROSOFT_TENANT_ID", service.DefaultMicrosoftTenant),
		},
		MicrosoftRedirectURL: os.Getenv("MICROSOFT_REDIRECT_URL"),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		EmailFrom:    getEnvOrDefault("RESEND_FROM_EMAIL", mail.DefaultFrom),
		AppURL:       getEnvOrDefault("APP_URL", mail.DefaultAppURL),

		BootstrapAdminUsername: os.Getenv("BOOTSTRAP_ADMIN_USERNAME"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	}

	if cfg.TokenEncryptionKey == "" {
		cfg.TokenEncryptionKey = cfg.SessionSecret
	}

	return cfg
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	if c.SessionSecret == "" && c.Env != "dev" {
		return ErrMissingSessionSecret
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < minSessionSecretLen && c.Env != "dev" {
		return ErrShortSessionSecret
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.SessionStore {
	case SessionStoreDatabase, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	if (c.BootstrapAdminUsername == "") != (c.BootstrapAdminPassword == "") {
		return errors.New("BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	return nil
}

// redisAddr prefers REDIS_ADDR and otherwise joins REDIS_HOST and REDIS_PORT.
func redisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	host := getEnvOrDefault("REDIS_HOST", "localhost")
	port := getEnvOrDefault("REDIS_PORT", "6379")
	return host + ":" + port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

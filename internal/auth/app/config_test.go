package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	for _, key := range []string{
		"PORT", "DATABASE_DRIVER", "DATABASE_FILE", "SESSION_STORE", "SESSION_TTL",
		"COOKIE_SECURE", "MICROSOFT_TENANT_ID", "APP_URL", "RESEND_FROM_EMAIL",
		"REDIS_ADDR", "REDIS_HOST", "REDIS_PORT", "TOKEN_ENCRYPTION_KEY", "SESSION_SECRET", "DOTENV_FILE",
		"TRUST_PROXY_HEADERS",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	require.Equal(t, "dashboard.db", cfg.DatabaseFile)
	require.Equal(t, SessionStoreDatabase, cfg.SessionStore)
	require.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	require.True(t, cfg.CookieSecure)
	require.False(t, cfg.TrustProxyHeaders)
	require.Equal(t, "common", cfg.Microsoft.TenantID)
	require.Equal(t, "http://localhost:5000", cfg.AppURL)
	require.Equal(t, "IT Ops Console <noreply@itopsconsole.com>", cfg.EmailFrom)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/dash")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "90") // minutes
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("TRUST_PROXY_HEADERS", "true")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SESSION_SECRET", strings.Repeat("s", 40))
	t.Setenv("TOKEN_ENCRYPTION_KEY", "")

	cfg := LoadConfig()

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, SessionStoreRedis, cfg.SessionStore)
	require.Equal(t, 90*time.Minute, cfg.SessionTTL)
	require.False(t, cfg.CookieSecure)
	require.True(t, cfg.TrustProxyHeaders)
	require.Equal(t, "cache:6380", cfg.Redis.Addr)
	require.True(t, cfg.Redis.TLS)
	require.Equal(t, cfg.SessionSecret, cfg.TokenEncryptionKey)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("APP_URL=https://ops.example.com\n"), 0o600))

	t.Setenv("DOTENV_FILE", path)
	t.Setenv("APP_URL", "")
	require.NoError(t, os.Unsetenv("APP_URL"))

	cfg := LoadConfig()
	require.Equal(t, "https://ops.example.com", cfg.AppURL)
}

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Env:            "prod",
		DatabaseDriver: DriverSQLite,
		SessionStore:   SessionStoreDatabase,
		SessionSecret:  strings.Repeat("x", minSessionSecretLen),
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "valid"},
		{
			name:    "missing secret outside dev",
			mutate:  func(c *Config) { c.SessionSecret = "" },
			wantErr: ErrMissingSessionSecret,
		},
		{
			name:    "short secret outside dev",
			mutate:  func(c *Config) { c.SessionSecret = "short" },
			wantErr: ErrShortSessionSecret,
		},
		{
			name:   "dev tolerates no secret",
			mutate: func(c *Config) { c.Env = "dev"; c.SessionSecret = "" },
		},
		{
			name:    "postgres needs a url",
			mutate:  func(c *Config) { c.DatabaseDriver = DriverPostgres },
			wantErr: ErrMissingDatabaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		cfg := valid
		cfg.DatabaseDriver = "mysql"
		require.Error(t, cfg.Validate())
	})

	t.Run("half a bootstrap admin", func(t *testing.T) {
		cfg := valid
		cfg.BootstrapAdminUsername = "root"
		require.Error(t, cfg.Validate())
	})
}

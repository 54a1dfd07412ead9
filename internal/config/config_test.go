package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TEXTNOW_EMAIL", "TEXTNOW_PASSWORD", "TEXTNOW_SID_COOKIE", "TEXTNOW_USERNAME",
		"TELEGRAM_BOT_TOKEN", "DATABASE_URL", "REDIS_URL", "JWT_SECRET",
		"SMS_RELAY_PROVIDER", "SMS_RELAY_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.NoError(t, err)

	assert.True(t, cfg.Runtime.Dev)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 30*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, ProviderTextNow, cfg.Provider.Kind)
	assert.Equal(t, 30*time.Minute, cfg.Provider.ClientTTL)
	assert.Equal(t, "client", cfg.Discovery.RootName)
	assert.Equal(t, 3, cfg.Discovery.MaxDepth)
	assert.Equal(t, 2000, cfg.Discovery.MaxNodes)
	assert.Equal(t, 1, cfg.Discovery.ConversationDepth)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Minute, cfg.Redis.RateWindow)
	assert.Zero(t, cfg.Redis.DedupTTL)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEXTNOW_SID_COOKIE", "s%3Aabc")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	path := writeConfig(t, `
http:
  addr: ":9000"
  request_timeout: 45s
provider:
  kind: TextNow
  client_ttl: 10m
textnow:
  email: someone@example.com
  sid_cookie: from-file
discovery:
  max_depth: 5
database:
  retention: 720h
redis:
  rate_limit: 3
  dedup_ttl: 2m
log:
  format: console
`)
	cfg, err := Load(path, false)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 45*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, ProviderTextNow, cfg.Provider.Kind)
	assert.Equal(t, 10*time.Minute, cfg.Provider.ClientTTL)
	assert.Equal(t, "someone@example.com", cfg.TextNow.Email)
	assert.Equal(t, "s%3Aabc", cfg.TextNow.SIDCookie)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Redis.URL)
	assert.Equal(t, 5, cfg.Discovery.MaxDepth)
	assert.Equal(t, 3, cfg.Redis.RateLimit)
	assert.Equal(t, 2*time.Minute, cfg.Redis.DedupTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Database.Retention)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_Validation(t *testing.T) {
	clearEnv(t)

	t.Run("unknown provider", func(t *testing.T) {
		_, err := Load(writeConfig(t, "provider:\n  kind: pager\n"), false)
		assert.ErrorContains(t, err, "provider.kind")
	})

	t.Run("auth without secret", func(t *testing.T) {
		_, err := Load(writeConfig(t, "security:\n  require_auth: true\n"), false)
		assert.ErrorContains(t, err, "jwt_secret")
	})

	t.Run("auth with secret from env", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cret")
		cfg, err := Load(writeConfig(t, "security:\n  require_auth: true\n"), false)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", cfg.Security.JWTSecret)
	})

	t.Run("negative retention", func(t *testing.T) {
		_, err := Load(writeConfig(t, "database:\n  retention: -1h\n"), false)
		assert.ErrorContains(t, err, "database.retention")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "http: [unterminated"), false)
		assert.ErrorContains(t, err, "parse config")
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, "jwt_secret: test-secret\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.APIPort)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, "jobtrail.db", cfg.DatabasePath)
	assert.Equal(t, 60, cfg.AccessTokenTTLMin)
	assert.Equal(t, 30, cfg.RefreshTTLDays)
	assert.Equal(t, 7, cfg.PendingCooldownDays)
	assert.Equal(t, 14, cfg.DenialCooldownDays)
	assert.Equal(t, "log", cfg.NotifySender)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
jwt_secret: test-secret
api_port: 9000
database_type: postgres
database_host: db.internal
database_port: "5432"
database_name: jobtrail
database_user: jobtrail
database_password: hunter2
access_token_ttl_min: 15
refresh_ttl_days: 7
allowed_origins:
  - https://app.jobtrail.io
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.APIPort)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "db.internal", cfg.DatabaseHost)
	assert.Equal(t, 15, cfg.AccessTokenTTLMin)
	assert.Equal(t, 7, cfg.RefreshTTLDays)
	assert.Equal(t, []string{"https://app.jobtrail.io"}, cfg.AllowedOrigins)
}

func TestLoadConfigMissingSecretIsFatal(t *testing.T) {
	path := writeConfigFile(t, "api_port: 9000\n")

	_, err := LoadConfig(path)
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadConfigSecretFromEnv(t *testing.T) {
	t.Setenv("JOBTRAIL_JWT_SECRET", "env-secret")
	path := writeConfigFile(t, "api_port: 9000\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}

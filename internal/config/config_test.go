package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("NOTIFY_WORKERS", "")
	t.Setenv("ATTACHMENT_ALLOWED_MIME_TYPES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 4, cfg.Notification.Workers)
	assert.Equal(t, 5*time.Second, cfg.Notification.SendTimeout)
	assert.Equal(t, int64(10*1024*1024), cfg.Attachment.MaxSizeBytes)
	assert.Contains(t, cfg.Attachment.AllowedMimeTypes, "application/pdf")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_HOST", "127.0.0.1")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("NOTIFY_ENABLED", "false")
	t.Setenv("ATTACHMENT_ALLOWED_MIME_TYPES", "image/png, text/plain ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.App.Addr())
	assert.False(t, cfg.Notification.Enabled)
	assert.Equal(t, []string{"image/png", "text/plain"}, cfg.Attachment.AllowedMimeTypes)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "zero")
	_, err := Load()
	assert.Error(t, err)
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 3*time.Second, AppConfig{RequestTimeoutSeconds: 3}.RequestTimeout())
}

func TestPostgresDurations(t *testing.T) {
	t.Setenv("POSTGRES_PING_TIMEOUT_SECONDS", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Postgres.PingTimeout())
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)

	pg := PostgresConfig{ConnMaxIdleSec: 30, ConnMaxLifeSec: 300, PingTimeoutSec: -1}
	assert.Equal(t, 30*time.Second, pg.ConnMaxIdle())
	assert.Equal(t, 5*time.Minute, pg.ConnMaxLife())
	assert.Zero(t, pg.PingTimeout())
}

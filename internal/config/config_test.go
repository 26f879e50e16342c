package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, time.Hour, cfg.NotifyLookahead)
	assert.False(t, cfg.PushEnabled())
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("CHOREO_PORT", "9000")
	t.Setenv("CHOREO_DB_PATH", "/custom/choreo.db")
	t.Setenv("CHOREO_BASE_URL", "https://home.example.com/")
	t.Setenv("CHOREO_SESSION_TTL", "72h")
	t.Setenv("CHOREO_VAPID_PUBLIC_KEY", "pub")
	t.Setenv("CHOREO_VAPID_PRIVATE_KEY", "priv")
	t.Setenv("CHOREO_ALLOWED_ORIGINS", "home.example.com, *.example.org ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/custom/choreo.db", cfg.DBPath)
	assert.Equal(t, "https://home.example.com", cfg.BaseURL)
	assert.Equal(t, 72*time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.PushEnabled())
	assert.Equal(t, []string{"home.example.com", "*.example.org"}, cfg.AllowedOrigins)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("CHOREO_NOTIFY_INTERVAL", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "CHOREO_NOTIFY_INTERVAL")

	t.Setenv("CHOREO_NOTIFY_INTERVAL", "-1m")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadBackup(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval)
	assert.Equal(t, 30*24*time.Hour, cfg.BackupRetention)
	assert.Equal(t, "us-east-1", cfg.BackupS3Region)

	t.Setenv("CHOREO_BACKUP_S3_BUCKET", "household")
	t.Setenv("CHOREO_BACKUP_PASSPHRASE", "hunter2")
	t.Setenv("CHOREO_BACKUP_INTERVAL", "6h")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "household", cfg.BackupS3Bucket)
	assert.Equal(t, "hunter2", cfg.BackupPassphrase)
	assert.Equal(t, 6*time.Hour, cfg.BackupInterval)
}

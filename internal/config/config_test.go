package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvOnly(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("NOTIFICATION_CHECK_INTERVAL", "45")
	t.Setenv("BACKEND_URL", "http://backend:3000/")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "http://backend:3000", cfg.Backend.BaseURL)
	assert.Equal(t, 45, cfg.Notifications.IntervalSeconds)
	assert.Equal(t, 10, cfg.Notifications.InitialDelaySeconds)
	assert.Equal(t, 50, cfg.Notifications.BatchSize)
	assert.Equal(t, 10, cfg.Backend.TimeoutSeconds)
	assert.True(t, cfg.Notifications.On())
	assert.False(t, cfg.Database.Enabled)
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadMissingTokenFails(t *testing.T) {
	unsetEnv(t, "TELEGRAM_BOT_TOKEN")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	for _, key := range []string{"TELEGRAM_BOT_TOKEN", "BACKEND_URL", "WEBHOOK_API_KEY", "REDIS_ADDR", "METRICS_LISTEN"} {
		unsetEnv(t, key)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`telegram:
  token: yaml-token
backend:
  base_url: http://api.local
  api_key: secret
notifications:
  enabled: false
  batch_size: 20
redis:
  addr: localhost:6379
metrics:
  listen: ":9100"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-token", cfg.Telegram.Token)
	assert.Equal(t, "secret", cfg.Backend.APIKey)
	assert.False(t, cfg.Notifications.On())
	assert.Equal(t, 20, cfg.Notifications.BatchSize)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "schedulebot:notify:cycle", cfg.Redis.LockKey)
	assert.Equal(t, 400, cfg.Redis.LockTTLSeconds)
	assert.Equal(t, ":9100", cfg.Metrics.Listen)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

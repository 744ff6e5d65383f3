// Package config holds the schedule bot configuration on top of the core bot config.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/schedulebot/core/config"
	coredatabase "github.com/m3rciful/schedulebot/core/database"
)

// BackendConfig points at the schedule backend.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url" envconfig:"BACKEND_URL"`
	APIKey         string `yaml:"api_key" envconfig:"WEBHOOK_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"BACKEND_TIMEOUT_SECONDS"`
}

// Timeout is the per-call deadline.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// NotificationsConfig controls the delivery poller.
type NotificationsConfig struct {
	Enabled             *bool `yaml:"enabled" envconfig:"NOTIFICATIONS_ENABLED"`
	IntervalSeconds     int   `yaml:"interval_seconds" envconfig:"NOTIFICATION_CHECK_INTERVAL"`
	InitialDelaySeconds int   `yaml:"initial_delay_seconds" envconfig:"NOTIFICATION_INITIAL_DELAY"`
	BatchSize           int   `yaml:"batch_size" envconfig:"NOTIFICATION_BATCH_SIZE"`
}

// On reports whether the poller should run. Unset means on.
func (n NotificationsConfig) On() bool {
	return n.Enabled == nil || *n.Enabled
}

func (n NotificationsConfig) Interval() time.Duration {
	return time.Duration(n.IntervalSeconds) * time.Second
}

func (n NotificationsConfig) InitialDelay() time.Duration {
	return time.Duration(n.InitialDelaySeconds) * time.Second
}

// RedisConfig enables the cross-replica poll lock. An empty Addr disables it.
type RedisConfig struct {
	Addr           string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password       string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB             int    `yaml:"db" envconfig:"REDIS_DB"`
	LockKey        string `yaml:"lock_key" envconfig:"REDIS_LOCK_KEY"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds" envconfig:"REDIS_LOCK_TTL_SECONDS"`
}

func (r RedisConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSeconds) * time.Second
}

// MetricsConfig enables the admin HTTP server. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Backend       BackendConfig       `yaml:"backend"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Database      coredatabase.Config `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// CoreConfig exposes the embedded core config to the shared runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads path (optional), .env and the environment, then validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, true, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the core part and fills application defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:3000"
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 10
	}

	n := &cfg.Notifications
	if n.IntervalSeconds <= 0 {
		n.IntervalSeconds = 30
	}
	if n.InitialDelaySeconds <= 0 {
		n.InitialDelaySeconds = 10
	}
	if n.BatchSize <= 0 {
		n.BatchSize = 50
	}

	cfg.Database = cfg.Database.WithDefaults()
	if cfg.Database.Enabled {
		if err := cfg.Database.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}

	if cfg.Redis.LockKey == "" {
		cfg.Redis.LockKey = "schedulebot:notify:cycle"
	}
	if cfg.Redis.LockTTLSeconds <= 0 {
		// a cycle is bounded by batch size times two backend calls
		cfg.Redis.LockTTLSeconds = 2 * n.BatchSize * cfg.Backend.TimeoutSeconds
	}
	return nil
}

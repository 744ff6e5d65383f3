package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/schedulebot/core/config"
	coretelegram "github.com/m3rciful/schedulebot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type app struct {
	opts coretelegram.RunOptions
	err  error
}

func (a app) TelegramRunOptions() (coretelegram.RunOptions, error) { return a.opts, a.err }

func TestRunPrefersEnvPathAndWrapsLifecycle(t *testing.T) {
	t.Setenv("SCHEDULEBOT_CONFIG", "/etc/bot.yaml")

	var (
		loaded           string
		started, stopped bool
		loggerClosed     bool
	)
	err := Run(Options{
		ConfigEnvVar:      "SCHEDULEBOT_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loaded = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { started = true; return nil },
				OnStop:  func(context.Context, coretelegram.Runtime) error { stopped = true; return nil },
			}}, nil
		},
		ShutdownLogger: func() error { loggerClosed = true; return nil },
		RunTelegram: func(ctx context.Context, o coretelegram.RunOptions) error {
			require.NoError(t, o.OnStart(ctx, coretelegram.Runtime{}))
			return o.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/etc/bot.yaml", loaded)
	assert.True(t, started)
	assert.True(t, stopped)
	assert.True(t, loggerClosed)
}

func TestRunStopsOnStartFailure(t *testing.T) {
	boom := errors.New("boom")
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ConfigCarrier) (TelegramApp, error) {
			return app{opts: coretelegram.RunOptions{
				OnStart: func(context.Context, coretelegram.Runtime) error { return boom },
			}}, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, o coretelegram.RunOptions) error {
			return o.OnStart(ctx, coretelegram.Runtime{})
		},
	})
	assert.ErrorIs(t, err, boom)
}

func TestRunRejectsMissingCoreConfig(t *testing.T) {
	err := Run(Options{
		LoadConfig: func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:  func(ConfigCarrier) (TelegramApp, error) { return app{}, nil },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing core configuration")
}

func TestConfigPathFallsBackToDefault(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yaml", configPath(Options{DefaultConfigPath: "config.yaml"}))
}

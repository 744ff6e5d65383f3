// Package bot wires the schedule bot: commands, dialogue, schedule queries and
// the notification poller on top of the telegram runtime.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/schedulebot/core/logger"
	tg "github.com/m3rciful/schedulebot/core/telegram"
	"github.com/m3rciful/schedulebot/core/telegram/router"
	"github.com/m3rciful/schedulebot/internal/backend"
	"github.com/m3rciful/schedulebot/internal/config"
	"github.com/m3rciful/schedulebot/internal/metrics"
	"github.com/m3rciful/schedulebot/internal/notify"
	"github.com/m3rciful/schedulebot/internal/registration"
	"github.com/m3rciful/schedulebot/internal/schedule"
	"github.com/m3rciful/schedulebot/internal/session"
)

// App owns the long lived components of the bot.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	client   *backend.Client
	registry *tg.Registry
	flow     *registration.Flow
	handlers *Handlers

	journal *notify.PostgresJournal
	redis   *redis.Client
	locker  notify.Locker
	server  *metrics.Server

	stopPoll context.CancelFunc
	pollDone sync.WaitGroup
}

// New builds the app. db may be nil when the database is disabled.
func New(cfg *config.Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bot: nil config")
	}
	a := &App{cfg: cfg, db: db, registry: tg.NewRegistry()}
	a.client = backend.New(backend.Options{
		BaseURL: cfg.Backend.BaseURL,
		APIKey:  cfg.Backend.APIKey,
		Timeout: cfg.Backend.Timeout(),
	})

	sessions := session.NewMemoryStore()
	metrics.TrackSessions(sessions.Len)
	machine := registration.NewMachine(registration.Options{
		Sessions:    sessions,
		Backend:     a.client,
		OnStep:      metrics.ObserveRegistrationStep,
		OnSyncError: metrics.IncSyncFailure,
	})
	a.flow = registration.NewFlow(machine)
	a.handlers = &Handlers{
		sessions: machine,
		schedule: schedule.NewService(schedule.Options{
			Backend: a.client,
			Observe: metrics.ObserveScheduleQuery,
		}),
		screen: botScreen{},
		now:    time.Now,
	}

	if db != nil {
		a.journal = notify.NewPostgresJournal(db)
		a.handlers.journal = a.journal
	}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.locker = notify.NewRedisLocker(a.redis, cfg.Redis.LockKey, cfg.Redis.LockTTL())
	}
	if cfg.Metrics.Listen != "" {
		a.server = metrics.NewServer(cfg.Metrics.Listen, a.healthChecks())
	}

	if err := register(a.registry, a.flow, a.handlers); err != nil {
		return nil, fmt.Errorf("bot: register handlers: %w", err)
	}
	return a, nil
}

func (a *App) healthChecks() map[string]metrics.HealthCheck {
	checks := make(map[string]metrics.HealthCheck)
	if a.db != nil {
		checks["postgres"] = func(ctx context.Context) error { return a.db.PingContext(ctx) }
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.redis.Ping(ctx).Err() }
	}
	return checks
}

// TelegramRunOptions implements the runner contract.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		IsAdmin:       core.Telegram.IsAdmin,
		OnAdminReject: a.handlers.AdminReject,
	})
	routes = append(routes, router.CallbackRoute(a.registry))
	routes = append(routes, router.TextRoutes(a.flow, a.registry)...)

	return tg.RunOptions{
		Config:   core,
		Registry: a.registry,
		Middlewares: tg.DefaultMiddlewares(core, tg.MiddlewareOptions{
			OnLimited: a.handlers.Limited,
			OnUpdate:  metrics.ObserveUpdate,
		}),
		Routes:  routes,
		OnError: a.handlers.OnError,
		OnStart: a.start,
		OnStop:  a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt tg.Runtime) error {
	if a.server != nil {
		if err := a.server.Start(ctx); err != nil {
			return err
		}
	}
	if !a.cfg.Notifications.On() {
		logger.Info(ctx, logger.CompNotify, "notify.start", slog.String("status", "skip"))
		return nil
	}

	opts := notify.Options{
		Source:    a.client,
		Sender:    notify.NewBotSender(rt.Bot),
		Locker:    a.locker,
		Interval:  a.cfg.Notifications.Interval(),
		Delay:     a.cfg.Notifications.InitialDelay(),
		BatchSize: a.cfg.Notifications.BatchSize,
		Observe: func(stats notify.CycleStats, err error, took time.Duration) {
			metrics.ObserveNotifyCycle(stats.Skipped, err, took)
		},
		OnAttempt: func(at notify.Attempt) {
			metrics.ObserveDelivery(at.Status, at.Class)
		},
	}
	if a.journal != nil {
		opts.Journal = a.journal
	}
	poller := notify.NewPoller(opts)
	a.handlers.cycles = poller

	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopPoll = cancel
	a.pollDone.Add(1)
	go func() {
		defer a.pollDone.Done()
		_ = poller.Run(pollCtx)
	}()
	return nil
}

func (a *App) stop(ctx context.Context, _ tg.Runtime) error {
	if a.stopPoll != nil {
		a.stopPoll()
		done := make(chan struct{})
		go func() {
			a.pollDone.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			logger.Warn(ctx, logger.CompNotify, "notify.stop", slog.String("status", "fail"), slog.String("cause", "timeout"))
		}
	}

	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

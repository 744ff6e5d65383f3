package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/schedulebot/core/buildinfo"
	coreconfig "github.com/m3rciful/schedulebot/core/config"
)

// Component names shared by the bot packages.
const (
	CompApp          = "app"
	CompDB           = "db"
	CompMigrate      = "db.migrate"
	CompTelegram     = "tg"
	CompWire         = "tg.wire"
	CompBackend      = "backend"
	CompRegistration = "registration"
	CompSchedule     = "schedule"
	CompNotify       = "notify"
	CompMetrics      = "metrics"
)

var (
	initOnce sync.Once
	closeMu  sync.Mutex
	closed   bool

	sink    *asyncWriter
	files   []io.Closer
	level   slog.LevelVar
	sampler = newRatioSampler(1, 50)
	trace   bool

	// L is the process wide logger. It falls back to slog.Default until InitLogger runs.
	L = slog.Default()

	// DB, TG, MIG and TWire are pre-scoped loggers for the infrastructure layers.
	DB    = L
	TG    = L
	MIG   = L
	TWire = L
)

// InitLogger installs the structured handler as the slog default. Later calls are no-ops.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		level.Set(parseLevel(lc.Level))
		sampler.Set(debugRatio(lc.DebugSample))
		trace = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		outs, closers, openErr := openOutputs(lc)
		if openErr != nil {
			err = openErr
			return
		}
		files = closers
		sink = newAsyncWriter(outs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &level,
			writer:   sink,
			format:   pickFormat(lc),
			keyOrder: pickKeyOrder(lc.KeysOrder),
		}))
		slog.SetDefault(L)

		DB = L.With("component", CompDB)
		TG = L.With("component", CompTelegram)
		MIG = L.With("component", CompMigrate)
		TWire = L.With("component", CompWire)

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", CompApp),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", profileOf(lc)),
		)
	})
	return err
}

// Shutdown drains queued lines and closes log files. Safe to call more than once.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Close())
	}
	for _, c := range files {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func pickFormat(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch profileOf(lc) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func pickKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return append([]string(nil), defaultKeyOrder...)
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			order = append(order, p)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func profileOf(lc coreconfig.LoggingConfig) string {
	if p := strings.TrimSpace(lc.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

// openOutputs always writes to stdout and adds a file sink when both dir and file are set.
func openOutputs(lc coreconfig.LoggingConfig) ([]io.Writer, []io.Closer, error) {
	outs := []io.Writer{os.Stdout}
	dir := strings.TrimSpace(lc.Dir)
	name := strings.TrimSpace(lc.BotFile)
	if dir == "" || name == "" {
		return outs, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open log file %s: %w", path, err)
	}
	return append(outs, f), []io.Closer{f}, nil
}

func debugRatio(raw string) (int, int) {
	if strings.TrimSpace(raw) == "" {
		return 1, 50
	}
	num, den := parseRatio(raw)
	if num <= 0 || den <= 0 {
		return 1, 50
	}
	return num, den
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Background is shorthand for context.Background in logging call sites.
func Background() context.Context {
	return context.Background()
}

// LogEvent writes attrs with the event key first. A nil log falls back to the context logger.
func LogEvent(ctx context.Context, log *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = FromContext(ctx)
	}
	if log == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	log.LogAttrs(ctx, lvl, "", attrs...)
}

// Component returns the context logger scoped to name.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs an event under component, reusing the logger stored in ctx when present.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	log := FromContext(ctx)
	if c := strings.TrimSpace(component); c != "" {
		log = log.With("component", c)
	}
	LogEvent(ctx, log, lvl, event, attrs...)
}

func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug gates high volume debug details. TRACE=1 lets everything through.
func ShouldSampleDebug() bool {
	return trace || sampler.Allow()
}

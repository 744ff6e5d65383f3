package router

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/schedulebot/core/logger"
	tghelpers "github.com/m3rciful/schedulebot/core/telegram/helpers"
	"github.com/m3rciful/schedulebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Coder lets domain errors expose a stable code for the handler summary.
type Coder interface {
	Code() string
}

// summarize runs fn under handler name and writes one handler.handled line.
func summarize(c tele.Context, name string, fn func() error, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	err := fn()

	msgs, kb := middleware.GetCounters(c)
	outcome := tghelpers.OutcomeOf(c)
	if outcome == "" || err != nil {
		outcome = logger.Status(err)
	}
	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, nil, slog.LevelInfo, "handler.handled", append(attrs, extras...)...)
	return err
}

func handlerName(prefix, key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		key = "unknown"
	}
	key = strings.ReplaceAll(key, " ", "_")
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func errorCode(err error) string {
	var coder Coder
	if errors.As(err, &coder) {
		if code := strings.TrimSpace(coder.Code()); code != "" {
			return strings.ToUpper(code)
		}
	}
	return "INTERNAL"
}

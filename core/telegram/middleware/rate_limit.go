package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/schedulebot/core/logger"
	tghelpers "github.com/m3rciful/schedulebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds, as named by UpdateKind, that bypass the limiter.
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
}

// RateLimit drops updates arriving from the same user faster than Interval.
func RateLimit(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		mu   sync.Mutex
		last = make(map[int64]time.Time)
	)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if u == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}

			now := time.Now()
			mu.Lock()
			prev, ok := last[u.ID]
			limited := ok && now.Sub(prev) < opts.Interval
			if !limited {
				last[u.ID] = now
			}
			mu.Unlock()

			if !limited {
				return next(c)
			}
			logger.LogEvent(tghelpers.BuildContext(c), nil, slog.LevelWarn, "tg.rate_limit",
				slog.String("status", "rate_limited"),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}

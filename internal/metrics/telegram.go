package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramUpdatesTotal,
		telegramCommandsTotal,
		telegramRateLimitedTotal,
		telegramHandlerErrorsTotal,
	)
}

var (
	telegramUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_telegram_updates_total",
			Help: "Incoming updates by kind.",
		},
		[]string{"kind"}, // message, callback, other
	)

	telegramCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_telegram_commands_total",
			Help: "Commands and menu buttons handled, by command name.",
		},
		[]string{"command"},
	)

	telegramRateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedulebot_telegram_rate_limited_total",
			Help: "Updates dropped by the per-user rate limiter.",
		},
	)

	telegramHandlerErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schedulebot_telegram_handler_errors_total",
			Help: "Handler errors that reached the bot error hook.",
		},
	)
)

// ObserveUpdate counts one incoming update.
func ObserveUpdate(kind string) {
	telegramUpdatesTotal.WithLabelValues(norm(kind)).Inc()
}

func IncCommand(command string) {
	telegramCommandsTotal.WithLabelValues(norm(command)).Inc()
}

func IncRateLimited() {
	telegramRateLimitedTotal.Inc()
}

func IncHandlerError() {
	telegramHandlerErrorsTotal.Inc()
}

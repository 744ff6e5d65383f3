package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(scheduleQueriesTotal, scheduleQuerySeconds) }

var (
	scheduleQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_schedule_queries_total",
			Help: "Schedule queries by role, period and outcome.",
		},
		[]string{"role", "period", "outcome"},
	)

	scheduleQuerySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schedulebot_schedule_query_seconds",
			Help:    "Schedule query latency including the backend call.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"role", "period"},
	)
)

// ObserveScheduleQuery records one finished query.
func ObserveScheduleQuery(role, period, outcome string, took time.Duration) {
	scheduleQueriesTotal.WithLabelValues(norm(role), norm(period), norm(outcome)).Inc()
	scheduleQuerySeconds.WithLabelValues(norm(role), norm(period)).Observe(took.Seconds())
}

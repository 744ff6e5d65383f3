package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		notifyCyclesTotal,
		notifyCycleSeconds,
		notifyDeliveriesTotal,
		notifyLastSuccess,
	)
}

var (
	notifyCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_notify_cycles_total",
			Help: "Notification polling cycles by status.",
		},
		[]string{"status"}, // ok, fail, skip
	)

	notifyCycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "schedulebot_notify_cycle_seconds",
			Help:    "Duration of notification polling cycles.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	notifyDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_notify_deliveries_total",
			Help: "Processed notifications by reported status and failure class.",
		},
		[]string{"status", "class"},
	)

	notifyLastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "schedulebot_notify_last_success_timestamp_seconds",
			Help: "Unix time of the last cycle that fetched without error.",
		},
	)
)

// ObserveNotifyCycle records one cycle. skipped marks a cycle another process
// held the lock for.
func ObserveNotifyCycle(skipped bool, err error, took time.Duration) {
	status := "ok"
	switch {
	case err != nil:
		status = "fail"
	case skipped:
		status = "skip"
	}
	notifyCyclesTotal.WithLabelValues(status).Inc()
	if skipped {
		return
	}
	notifyCycleSeconds.Observe(took.Seconds())
	if err == nil {
		notifyLastSuccess.SetToCurrentTime()
	}
}

func ObserveDelivery(status, class string) {
	if class == "" {
		class = "none"
	}
	notifyDeliveriesTotal.WithLabelValues(norm(status), norm(class)).Inc()
}

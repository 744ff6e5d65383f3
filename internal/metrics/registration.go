package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(registrationStepsTotal, registrationSyncFailuresTotal, sessionsActive) }

var sessionCount atomic.Pointer[func() int]

var (
	registrationStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_registration_steps_total",
			Help: "Registration conversation steps by resulting state and outcome.",
		},
		[]string{"state", "outcome"},
	)

	registrationSyncFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedulebot_registration_sync_failures_total",
			Help: "Backend writes that failed while the local session was kept.",
		},
		[]string{"op"}, // register, delete, chat_resync
	)

	sessionsActive = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "schedulebot_sessions_active",
			Help: "Registered users held in memory.",
		},
		func() float64 {
			if fn := sessionCount.Load(); fn != nil {
				return float64((*fn)())
			}
			return 0
		},
	)
)

func ObserveRegistrationStep(state, outcome string) {
	registrationStepsTotal.WithLabelValues(norm(state), norm(outcome)).Inc()
}

func IncSyncFailure(op string) {
	registrationSyncFailuresTotal.WithLabelValues(norm(op)).Inc()
}

// TrackSessions makes the sessions gauge report count.
func TrackSessions(count func() int) {
	sessionCount.Store(&count)
}

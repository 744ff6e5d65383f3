package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetricsEndpointExposesCollectors(t *testing.T) {
	h := NewServer("127.0.0.1:0", nil).Router()

	ObserveUpdate("message")
	IncCommand("/Today")
	ObserveRegistrationStep("student_group", "advanced")
	IncSyncFailure("register")
	ObserveScheduleQuery("student", "week", "ok", 120*time.Millisecond)
	ObserveNotifyCycle(false, nil, time.Second)
	ObserveDelivery("failed", "permanent")
	ObserveDelivery("sent", "")
	TrackSessions(func() int { return 3 })

	body := scrape(t, h)
	for _, want := range []string{
		`schedulebot_telegram_updates_total{kind="message"}`,
		`schedulebot_telegram_commands_total{command="/today"}`,
		`schedulebot_registration_steps_total{outcome="advanced",state="student_group"}`,
		`schedulebot_registration_sync_failures_total{op="register"}`,
		`schedulebot_schedule_queries_total{outcome="ok",period="week",role="student"}`,
		`schedulebot_schedule_query_seconds_bucket`,
		`schedulebot_notify_cycles_total{status="ok"}`,
		`schedulebot_notify_deliveries_total{class="permanent",status="failed"}`,
		`schedulebot_notify_deliveries_total{class="none",status="sent"}`,
		`schedulebot_notify_last_success_timestamp_seconds`,
		"schedulebot_sessions_active 3",
	} {
		assert.Contains(t, body, want)
	}
}

func TestMustRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		MustRegister()
		MustRegister()
	})
}

func TestHealthz(t *testing.T) {
	healthy := NewServer("", map[string]HealthCheck{
		"backend": func(context.Context) error { return nil },
	}).Router()
	rec := httptest.NewRecorder()
	healthy.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	broken := NewServer("", map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}).Router()
	rec = httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerStartShutdown(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	require.NoError(t, s.Start(context.Background()))

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "OK"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

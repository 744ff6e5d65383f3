package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func emit(t *testing.T, format logFormat, build func(log *slog.Logger)) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	build(slog.New(h))
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return strings.TrimSpace(buf.String())
}

func TestKVLeadingKeys(t *testing.T) {
	line := emit(t, formatKV, func(log *slog.Logger) {
		ctx := WithUpdateMeta(WithRID(Background(), "rid-1"), 42, 7, 9)
		LogEvent(ctx, log.With("component", CompSchedule), slog.LevelInfo, "schedule.fetch",
			slog.String("status", "OK"),
			slog.String("period", "today"),
		)
	})
	tokens := strings.Split(line, " ")
	want := []string{"ts=", "level=INFO", "component=schedule", "event=schedule.fetch", "status=ok", "rid=rid-1"}
	if len(tokens) < len(want) {
		t.Fatalf("short line: %s", line)
	}
	for i, p := range want {
		if !strings.HasPrefix(tokens[i], p) {
			t.Fatalf("token %d = %s, want prefix %s", i, tokens[i], p)
		}
	}
	if !strings.Contains(line, "update_id=42") || !strings.Contains(line, "chat_id=9") {
		t.Fatalf("context fields missing: %s", line)
	}
}

func TestJSONOrderAndCompactRID(t *testing.T) {
	line := emit(t, formatJSON, func(log *slog.Logger) {
		ctx := WithRID(Background(), "12:34:56")
		LogEvent(ctx, log.With("component", CompNotify), slog.LevelError, "notify.deliver",
			slog.String("status", "fail"),
			slog.String("notification_id", "n1"),
		)
	})
	order := []string{`{"ts":`, `"level":"ERROR"`, `"component":"notify"`, `"event":"notify.deliver"`, `"status":"fail"`, `"rid":"` + CompactRID("12:34:56") + `"`}
	pos := -1
	for _, p := range order {
		idx := strings.Index(line, p)
		if idx < 0 || idx < pos {
			t.Fatalf("%s out of order in %s", p, line)
		}
		pos = idx
	}
	if !strings.Contains(line, `"rid_full":"12:34:56"`) {
		t.Fatalf("rid_full missing: %s", line)
	}
}

func TestKVOmitsRIDFull(t *testing.T) {
	line := emit(t, formatKV, func(log *slog.Logger) {
		LogEvent(WithRID(Background(), "1:2:3"), log, slog.LevelInfo, "x")
	})
	if strings.Contains(line, "rid_full") {
		t.Fatalf("unexpected rid_full: %s", line)
	}
	if !strings.Contains(line, "component=app") {
		t.Fatalf("default component missing: %s", line)
	}
}

func TestDurationBecomesMilliseconds(t *testing.T) {
	line := emit(t, formatKV, func(log *slog.Logger) {
		log.Info("cycle", slog.Duration("duration", 1500*time.Microsecond), slog.Duration("wait", 2*time.Second))
	})
	if !strings.Contains(line, "duration_ms=2") || !strings.Contains(line, "wait_ms=2000") {
		t.Fatalf("durations not converted: %s", line)
	}
}

func TestEmptyValuesPruned(t *testing.T) {
	line := emit(t, formatKV, func(log *slog.Logger) {
		log.Info("e", slog.String("group", "  "), slog.String("outcome", "weird"))
	})
	if strings.Contains(line, "group=") || strings.Contains(line, "outcome=") {
		t.Fatalf("expected pruned fields: %s", line)
	}
}

func TestCompactRID(t *testing.T) {
	if got := CompactRID("35:36:0"); got != "z.10.0" {
		t.Fatalf("CompactRID = %q", got)
	}
	if got := CompactRID("not-a-rid"); got != "not-a-rid" {
		t.Fatalf("non rid changed: %q", got)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("a\x00b\u200bcдеф", 4); got != "abcд" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	var passed int
	for i := 0; i < 9; i++ {
		if s.Allow() {
			passed++
		}
	}
	if passed != 3 {
		t.Fatalf("passed = %d, want 3", passed)
	}
	if n, d := parseRatio("2/5"); n != 2 || d != 5 {
		t.Fatalf("parse = %d/%d", n, d)
	}
	if n, d := parseRatio("10"); n != 1 || d != 10 {
		t.Fatalf("parse bare = %d/%d", n, d)
	}
}

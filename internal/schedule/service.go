// Package schedule answers schedule queries of registered users.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/schedulebot/core/logger"
	"github.com/m3rciful/schedulebot/core/telegram/format"
	"github.com/m3rciful/schedulebot/internal/backend"
	"github.com/m3rciful/schedulebot/internal/session"
)

var (
	// ErrUnavailable means the backend failed or answered without success.
	ErrUnavailable = errors.New("schedule: unavailable")
	// ErrTeacherUnlinked means a teacher session carries no teacher id.
	ErrTeacherUnlinked = errors.New("schedule: teacher not linked")
	// ErrNoRole means the record has no schedule role.
	ErrNoRole = errors.New("schedule: record without role")
)

// User facing texts.
const (
	TextLoading      = "⏳ Загружаю расписание..."
	TextUnavailable  = "❌ Не удалось загрузить расписание. Попробуйте позже."
	TextUnlinked     = "❌ Не удалось определить ваш профиль преподавателя.\n\nСмените роль в /profile и выберите себя из списка."
	TextUnregistered = "Вы не зарегистрированы! Используйте /start для регистрации."
)

// Period is the query window.
type Period string

const (
	Today    Period = "today"
	Tomorrow Period = "tomorrow"
	Week     Period = "week"
)

// ParsePeriod validates a period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Today, Tomorrow, Week:
		return p, nil
	}
	return "", fmt.Errorf("schedule: unknown period %q", s)
}

// title is the lower case label used in headers.
func (p Period) title() string {
	switch p {
	case Tomorrow:
		return "завтра"
	case Week:
		return "неделю"
	}
	return "сегодня"
}

// emptyLabel is the label used in the empty state.
func (p Period) emptyLabel() string {
	if p == Week {
		return "на эту неделю"
	}
	return p.title()
}

// Message is a formatted answer. Empty marks the friendly no-classes state.
type Message struct {
	Text  string
	Empty bool
}

// Chunks splits the text for delivery.
func (m Message) Chunks() []string {
	return format.Split(m.Text, format.MessageLimit)
}

// Backend is the part of the backend client the service needs.
type Backend interface {
	GroupSchedule(ctx context.Context, group, period, subgroup string) (backend.Schedule, error)
	TeacherSchedule(ctx context.Context, teacherID, period string) (backend.Schedule, error)
}

// Service resolves and formats schedules.
type Service struct {
	backend Backend
	observe func(role, period, outcome string, took time.Duration)
}

// Options configures NewService.
type Options struct {
	Backend Backend
	// Observe receives one call per query.
	Observe func(role, period, outcome string, took time.Duration)
}

// NewService builds a Service.
func NewService(opts Options) *Service {
	s := &Service{backend: opts.Backend, observe: opts.Observe}
	if s.observe == nil {
		s.observe = func(string, string, string, time.Duration) {}
	}
	return s
}

// Query fetches and formats the schedule of rec for p.
func (s *Service) Query(ctx context.Context, rec session.Record, p Period) (msg Message, err error) {
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "fail"
		case msg.Empty:
			outcome = "empty"
		}
		s.observe(string(rec.Role), string(p), outcome, time.Since(start))
		attrs := []slog.Attr{
			slog.String("status", logger.Status(err)),
			slog.String("role", string(rec.Role)),
			slog.String("period", string(p)),
			slog.Bool("empty", msg.Empty),
			slog.Int("chars", len([]rune(msg.Text))),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		}
		logger.Info(ctx, logger.CompSchedule, "schedule.query", attrs...)
	}()

	switch rec.Role {
	case session.RoleStudent:
		sch, err := s.backend.GroupSchedule(ctx, rec.Group, string(p), rec.Subgroup)
		if err != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if isEmpty(p, sch) {
			return Message{Text: "📭 Занятий " + p.emptyLabel() + " нет.\n\nОтдыхайте! 😊", Empty: true}, nil
		}
		return Message{Text: formatStudent(p, rec.Group, rec.Subgroup, sch)}, nil

	case session.RoleTeacher:
		if rec.TeacherID == "" {
			return Message{}, ErrTeacherUnlinked
		}
		sch, err := s.backend.TeacherSchedule(ctx, rec.TeacherID, string(p))
		if err != nil {
			return Message{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		if isEmpty(p, sch) {
			return Message{Text: "📭 У вас нет занятий " + p.emptyLabel() + ".\n\nОтдыхайте! 😊", Empty: true}, nil
		}
		return Message{Text: formatTeacher(p, sch)}, nil
	}
	return Message{}, ErrNoRole
}

// ErrorText maps a Query error to the message shown to the user.
func ErrorText(err error) string {
	if errors.Is(err, ErrTeacherUnlinked) {
		return TextUnlinked
	}
	return TextUnavailable
}

func isEmpty(p Period, sch backend.Schedule) bool {
	if len(sch.Sessions) > 0 {
		return false
	}
	if p != Week {
		return true
	}
	for _, day := range sch.ByDate {
		if len(day) > 0 {
			return false
		}
	}
	return true
}

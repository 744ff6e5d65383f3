package schedule

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/schedulebot/internal/backend"
	"github.com/m3rciful/schedulebot/internal/session"
)

type fakeBackend struct {
	schedule backend.Schedule
	err      error
	calls    []string
}

func (f *fakeBackend) GroupSchedule(_ context.Context, group, period, subgroup string) (backend.Schedule, error) {
	f.calls = append(f.calls, "group:"+group+":"+period+":"+subgroup)
	return f.schedule, f.err
}

func (f *fakeBackend) TeacherSchedule(_ context.Context, teacherID, period string) (backend.Schedule, error) {
	f.calls = append(f.calls, "teacher:"+teacherID+":"+period)
	return f.schedule, f.err
}

func utc(h, m int) time.Time {
	return time.Date(2024, 9, 2, h, m, 0, 0, time.UTC)
}

var lecture = backend.Session{
	StartAt:    utc(3, 0),
	EndAt:      utc(4, 30),
	Type:       "lecture",
	PairNumber: 1,
	Course:     &backend.Named{Name: "Математика"},
	Teacher:    &backend.Named{Name: "Иванов И.И."},
	Room:       &backend.Room{Building: "Г", Number: "101"},
	Groups:     []string{"A-1", "A-2"},
}

var student = session.Record{Role: session.RoleStudent, Name: "Al", Group: "A-1", Subgroup: "2"}

func TestFormatSession(t *testing.T) {
	want := "📚 <b>Математика</b>\n" +
		"🔢 1 пара (08:00 - 09:30)\n" +
		"👤 Иванов И.И.\n" +
		"🏛 Г 101\n"
	assert.Equal(t, want, FormatSession(lecture))
}

func TestFormatSessionDefaults(t *testing.T) {
	got := FormatSession(backend.Session{StartAt: utc(20, 0), EndAt: utc(21, 0), Type: "workshop"})
	want := "📖 <b>N/A</b>\n" +
		"🔢 Занятие (01:00 - 02:00)\n" +
		"👤 Преподаватель не назначен\n" +
		"🏛 N/A\n"
	assert.Equal(t, want, got)
}

func TestStudentDay(t *testing.T) {
	be := &fakeBackend{schedule: backend.Schedule{Success: true, Sessions: []backend.Session{lecture}}}
	svc := NewService(Options{Backend: be})

	msg, err := svc.Query(context.Background(), student, Today)
	require.NoError(t, err)
	assert.False(t, msg.Empty)
	assert.Equal(t, []string{"group:A-1:today:2"}, be.calls)
	assert.True(t, strings.HasPrefix(msg.Text, "📅 <b>Расписание на сегодня</b>\nГруппа: A-1 (подгруппа 2)\n\n<b>1.</b> 📚"))
}

func TestStudentWeekSortedDays(t *testing.T) {
	be := &fakeBackend{schedule: backend.Schedule{
		Success:  true,
		Sessions: []backend.Session{lecture},
		ByDate: map[string][]backend.Session{
			"2024-09-04": {lecture},
			"2024-09-02": {lecture},
		},
	}}
	svc := NewService(Options{Backend: be})
	rec := student
	rec.Subgroup = session.SubgroupAll

	msg, err := svc.Query(context.Background(), rec, Week)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.Text, "📆 <b>Расписание на неделю</b>\nГруппа: A-1\n\n<b>Пн, 02.09:</b>\n"))
	mon := strings.Index(msg.Text, "Пн, 02.09")
	wed := strings.Index(msg.Text, "Ср, 04.09")
	assert.True(t, mon >= 0 && wed > mon, "days must be in ascending order")
}

func TestTeacherDay(t *testing.T) {
	be := &fakeBackend{schedule: backend.Schedule{Success: true, Sessions: []backend.Session{lecture}}}
	svc := NewService(Options{Backend: be})
	rec := session.Record{Role: session.RoleTeacher, Name: "Иванов", TeacherID: "t1"}

	msg, err := svc.Query(context.Background(), rec, Tomorrow)
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher:t1:tomorrow"}, be.calls)
	assert.True(t, strings.HasPrefix(msg.Text, "📅 <b>Ваше расписание на завтра</b>\n\n<b>1.</b> "))
	assert.True(t, strings.HasSuffix(msg.Text, "Группы: A-1, A-2\n\n"))
}

func TestEmptyIsNotAnError(t *testing.T) {
	svc := NewService(Options{Backend: &fakeBackend{schedule: backend.Schedule{Success: true}}})

	msg, err := svc.Query(context.Background(), student, Week)
	require.NoError(t, err)
	assert.True(t, msg.Empty)
	assert.Equal(t, "📭 Занятий на эту неделю нет.\n\nОтдыхайте! 😊", msg.Text)

	msg, err = svc.Query(context.Background(), session.Record{Role: session.RoleTeacher, Name: "X", TeacherID: "t"}, Today)
	require.NoError(t, err)
	assert.Equal(t, "📭 У вас нет занятий сегодня.\n\nОтдыхайте! 😊", msg.Text)
}

func TestBackendFailureIsUnavailable(t *testing.T) {
	svc := NewService(Options{Backend: &fakeBackend{err: backend.ErrUnsuccessful}})
	_, err := svc.Query(context.Background(), student, Today)
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, TextUnavailable, ErrorText(err))
}

func TestTeacherWithoutID(t *testing.T) {
	be := &fakeBackend{}
	svc := NewService(Options{Backend: be})
	_, err := svc.Query(context.Background(), session.Record{Role: session.RoleTeacher, Name: "X"}, Today)
	require.True(t, errors.Is(err, ErrTeacherUnlinked))
	assert.Empty(t, be.calls)
	assert.Equal(t, TextUnlinked, ErrorText(err))
}

func TestFormattingIsIdempotent(t *testing.T) {
	be := &fakeBackend{schedule: backend.Schedule{
		Success:  true,
		Sessions: []backend.Session{lecture, lecture},
		ByDate:   map[string][]backend.Session{"2024-09-03": {lecture}, "2024-09-02": {lecture}, "2024-09-05": {lecture}},
	}}
	svc := NewService(Options{Backend: be})
	for _, p := range []Period{Today, Week} {
		a, err := svc.Query(context.Background(), student, p)
		require.NoError(t, err)
		b, err := svc.Query(context.Background(), student, p)
		require.NoError(t, err)
		assert.Equal(t, a.Text, b.Text)
	}
}

func TestChunks(t *testing.T) {
	assert.Len(t, Message{Text: strings.Repeat("я", 8000)}.Chunks(), 2)
	assert.Len(t, Message{Text: strings.Repeat("я", 3999)}.Chunks(), 1)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("week")
	require.NoError(t, err)
	assert.Equal(t, Week, p)
	_, err = ParsePeriod("month")
	assert.Error(t, err)
}

func TestObserve(t *testing.T) {
	var got []string
	svc := NewService(Options{
		Backend: &fakeBackend{schedule: backend.Schedule{Success: true}},
		Observe: func(role, period, outcome string, _ time.Duration) {
			got = append(got, role+"/"+period+"/"+outcome)
		},
	})
	_, _ = svc.Query(context.Background(), student, Today)
	assert.Equal(t, []string{"student/today/empty"}, got)
}

package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/schedulebot/core/telegram"
	"github.com/m3rciful/schedulebot/internal/menu"
	"github.com/m3rciful/schedulebot/internal/notify"
	"github.com/m3rciful/schedulebot/internal/registration"
	"github.com/m3rciful/schedulebot/internal/schedule"
	"github.com/m3rciful/schedulebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

type sent struct {
	text   string
	markup *tele.ReplyMarkup
}

// fakeContext records what handlers send. Unused methods panic through the
// embedded nil interface.
type fakeContext struct {
	tele.Context
	user      *tele.User
	msg       *tele.Message
	cb        *tele.Callback
	store     map[string]interface{}
	sent      []sent
	responses []*tele.CallbackResponse
}

func newFake(userID int64) *fakeContext {
	return &fakeContext{
		user:  &tele.User{ID: userID, FirstName: "Ann"},
		msg:   &tele.Message{ID: 1},
		store: map[string]interface{}{},
	}
}

func (f *fakeContext) Sender() *tele.User          { return f.user }
func (f *fakeContext) Chat() *tele.Chat            { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Update() tele.Update         { return tele.Update{ID: 7, Message: f.msg} }
func (f *fakeContext) Message() *tele.Message      { return f.msg }
func (f *fakeContext) Callback() *tele.Callback    { return f.cb }
func (f *fakeContext) Text() string                { return f.msg.Text }
func (f *fakeContext) Get(k string) interface{}    { return f.store[k] }
func (f *fakeContext) Set(k string, v interface{}) { f.store[k] = v }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	s := sent{text: what.(string)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			s.markup = so.ReplyMarkup
		}
	}
	f.sent = append(f.sent, s)
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

type fakeResolver map[int64]session.Record

func (f fakeResolver) Resolve(_ context.Context, id registration.Identity) (session.Record, bool) {
	rec, ok := f[id.UserID]
	return rec, ok
}

type fakeQuerier struct {
	msg   schedule.Message
	err   error
	calls int
}

func (f *fakeQuerier) Query(context.Context, session.Record, schedule.Period) (schedule.Message, error) {
	f.calls++
	return f.msg, f.err
}

type fakeScreen struct {
	placeholders []string
	replaced     []string
	removed      int
}

func (f *fakeScreen) Placeholder(_ tele.Context, text string) (tele.Editable, error) {
	f.placeholders = append(f.placeholders, text)
	return &tele.Message{ID: 99}, nil
}

func (f *fakeScreen) Replace(_ tele.Context, _ tele.Editable, text string) error {
	f.replaced = append(f.replaced, text)
	return nil
}

func (f *fakeScreen) Remove(tele.Context, tele.Editable) error {
	f.removed++
	return nil
}

var student = session.Record{Role: session.RoleStudent, Name: "<Ann>", Group: "ИС-21", Subgroup: session.SubgroupAll}

func newHandlers(q *fakeQuerier, s *fakeScreen) *Handlers {
	return &Handlers{
		sessions: fakeResolver{1: student, 2: {Role: session.RoleTeacher, Name: "Петров"}},
		schedule: q,
		screen:   s,
		now:      time.Now,
	}
}

func TestScheduleRequiresSession(t *testing.T) {
	q, s := &fakeQuerier{}, &fakeScreen{}
	c := newFake(42)

	require.NoError(t, newHandlers(q, s).Schedule(schedule.Today)(c))
	assert.Zero(t, q.calls)
	assert.Empty(t, s.placeholders)
	require.Len(t, c.sent, 1)
	assert.Equal(t, textNotRegistered, c.sent[0].text)
}

func TestScheduleReplacesPlaceholder(t *testing.T) {
	q := &fakeQuerier{msg: schedule.Message{Text: "📅 <b>Расписание на сегодня</b>"}}
	s := &fakeScreen{}
	c := newFake(1)

	require.NoError(t, newHandlers(q, s).Schedule(schedule.Today)(c))
	assert.Equal(t, []string{schedule.TextLoading}, s.placeholders)
	assert.Equal(t, []string{q.msg.Text}, s.replaced)
	assert.Empty(t, c.sent)
}

func TestScheduleErrorReplacesPlaceholder(t *testing.T) {
	q := &fakeQuerier{err: schedule.ErrTeacherUnlinked}
	s := &fakeScreen{}

	require.NoError(t, newHandlers(q, s).Schedule(schedule.Week)(newFake(2)))
	assert.Equal(t, []string{schedule.TextUnlinked}, s.replaced)

	q.err = schedule.ErrUnavailable
	s.replaced = nil
	require.NoError(t, newHandlers(q, s).Schedule(schedule.Week)(newFake(2)))
	assert.Equal(t, []string{schedule.TextUnavailable}, s.replaced)
}

func TestScheduleLongAnswerIsSplit(t *testing.T) {
	q := &fakeQuerier{msg: schedule.Message{Text: strings.Repeat("строка расписания\n", 500)}}
	s := &fakeScreen{}
	c := newFake(1)

	require.NoError(t, newHandlers(q, s).Schedule(schedule.Week)(c))
	assert.Equal(t, 1, s.removed)
	assert.Empty(t, s.replaced)
	require.Greater(t, len(c.sent), 1)

	var joined strings.Builder
	for _, m := range c.sent {
		assert.LessOrEqual(t, len([]rune(m.text)), 4000)
		joined.WriteString(m.text)
	}
	assert.Equal(t, q.msg.Text, joined.String())
}

func TestProfile(t *testing.T) {
	h := newHandlers(&fakeQuerier{}, &fakeScreen{})

	c := newFake(1)
	require.NoError(t, h.Profile(c))
	require.Len(t, c.sent, 1)
	text := c.sent[0].text
	assert.Contains(t, text, "Роль: Студент")
	assert.Contains(t, text, "Имя: &lt;Ann&gt;")
	assert.Contains(t, text, "Подгруппа: Вся группа")
	assert.Contains(t, text, "Telegram ID: 1")
	require.NotNil(t, c.sent[0].markup)
	assert.Len(t, c.sent[0].markup.InlineKeyboard, 2)

	c = newFake(2)
	require.NoError(t, h.Profile(c))
	assert.Contains(t, c.sent[0].text, "Роль: Преподаватель")
	assert.NotContains(t, c.sent[0].text, "Группа:")

	c = newFake(3)
	require.NoError(t, h.Profile(c))
	assert.Equal(t, textNotRegistered, c.sent[0].text)
}

func TestHelpPerRole(t *testing.T) {
	h := newHandlers(&fakeQuerier{}, &fakeScreen{})
	for id, want := range map[int64]string{
		1: "для студента",
		2: "для преподавателя",
		3: "Добро пожаловать",
	} {
		c := newFake(id)
		require.NoError(t, h.Help(c))
		assert.Contains(t, c.sent[0].text, want)
	}
}

func TestFallbackShowsRoleMenu(t *testing.T) {
	h := newHandlers(&fakeQuerier{}, &fakeScreen{})

	c := newFake(2)
	require.NoError(t, h.Fallback(c))
	assert.Equal(t, textUseMenu, c.sent[0].text)
	require.NotNil(t, c.sent[0].markup)
	assert.Equal(t, menu.MyToday, c.sent[0].markup.ReplyKeyboard[0][0].Text)

	c = newFake(3)
	require.NoError(t, h.Fallback(c))
	assert.Equal(t, textNotRegistered, c.sent[0].text)
}

type fakeCycles struct {
	stats notify.CycleStats
	err   error
}

func (f fakeCycles) RunCycle(context.Context) (notify.CycleStats, error) { return f.stats, f.err }

func TestPoll(t *testing.T) {
	h := newHandlers(&fakeQuerier{}, &fakeScreen{})

	c := newFake(1)
	require.NoError(t, h.Poll(c))
	assert.Equal(t, textPollDisabled, c.sent[0].text)

	h.cycles = fakeCycles{err: notify.ErrCycleInProgress}
	c = newFake(1)
	require.NoError(t, h.Poll(c))
	assert.Equal(t, textPollBusy, c.sent[0].text)

	h.cycles = fakeCycles{err: errors.New("backend down")}
	c = newFake(1)
	require.NoError(t, h.Poll(c))
	assert.Contains(t, c.sent[0].text, "backend down")

	h.cycles = fakeCycles{stats: notify.CycleStats{Fetched: 3, Sent: 2, Failed: 1, Invalid: 1}}
	c = newFake(1)
	require.NoError(t, h.Poll(c))
	assert.Contains(t, c.sent[0].text, "Получено: 3")
	assert.Contains(t, c.sent[0].text, "Отправлено: 2")
}

type fakeJournal struct {
	rows     []notify.StatusCount
	attempts []notify.Attempt
	since    time.Time
	id       string
}

func (f *fakeJournal) Summary(_ context.Context, since time.Time) ([]notify.StatusCount, error) {
	f.since = since
	return f.rows, nil
}

func (f *fakeJournal) Attempts(_ context.Context, id string) ([]notify.Attempt, error) {
	f.id = id
	return f.attempts, nil
}

func TestDeliveries(t *testing.T) {
	now := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)
	h := newHandlers(&fakeQuerier{}, &fakeScreen{})
	h.now = func() time.Time { return now }

	c := newFake(1)
	require.NoError(t, h.Deliveries(c))
	assert.Equal(t, textJournalOff, c.sent[0].text)

	j := &fakeJournal{rows: []notify.StatusCount{
		{Status: "failed", Class: "permanent", Total: 2},
		{Status: "sent", Total: 5},
	}}
	h.journal = j
	c = newFake(1)
	require.NoError(t, h.Deliveries(c))
	assert.Equal(t, now.Add(-24*time.Hour), j.since)
	assert.Contains(t, c.sent[0].text, "failed (permanent): 2")
	assert.Contains(t, c.sent[0].text, "sent: 5")

	c = newFake(1)
	c.msg.Payload = "n1"
	require.NoError(t, h.Deliveries(c))
	assert.Equal(t, "n1", j.id)
	assert.Contains(t, c.sent[0].text, "не найдено")
}

func TestLimitedAnswersCallbacks(t *testing.T) {
	h := newHandlers(&fakeQuerier{}, &fakeScreen{})

	c := newFake(1)
	c.cb = &tele.Callback{ID: "cb"}
	require.NoError(t, h.Limited(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, textSlowDown, c.responses[0].Text)
	assert.Empty(t, c.sent)

	c = newFake(1)
	require.NoError(t, h.Limited(c))
	assert.Equal(t, textSlowDown, c.sent[0].text)
}

func TestRegisterBindsCommandsAndButtons(t *testing.T) {
	reg := tg.NewRegistry()
	machine := registration.NewMachine(registration.Options{Sessions: session.NewMemoryStore()})
	h := newHandlers(&fakeQuerier{}, &fakeScreen{})
	require.NoError(t, register(reg, registration.NewFlow(machine), h))

	for alias, want := range map[string]string{
		menu.Today:      "/today",
		menu.MyToday:    "/today",
		menu.Tomorrow:   "/tomorrow",
		menu.MyTomorrow: "/tomorrow",
		menu.Week:       "/week",
		menu.MyWeek:     "/week",
		menu.Profile:    "/profile",
		menu.Help:       "/help",
		"/start@bot":    "/start",
	} {
		name, _, ok := reg.LookupCommand(alias)
		require.True(t, ok, alias)
		assert.Equal(t, want, name)
	}

	var listed []string
	for _, cmd := range reg.ListCommands(true) {
		listed = append(listed, cmd.Text)
	}
	assert.Equal(t, []string{"cancel", "help", "profile", "start", "today", "tomorrow", "week"}, listed)

	_, poll, ok := reg.LookupCommand("/poll")
	require.True(t, ok)
	assert.True(t, poll.AdminOnly)

	assert.Equal(t, []string{
		menu.CbChangeRole, menu.CbKeepSession, menu.CbLogout,
		menu.CbRegCancel, menu.CbRole, menu.CbTeacher,
	}, reg.ListCallbacks())
	assert.NotNil(t, reg.TextFallback())
}

// Package registration runs the per-user registration dialogue.
package registration

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/schedulebot/core/logger"
	"github.com/m3rciful/schedulebot/core/telegram/state"
	"github.com/m3rciful/schedulebot/internal/backend"
	"github.com/m3rciful/schedulebot/internal/menu"
	"github.com/m3rciful/schedulebot/internal/session"
)

// Outcomes of one step, also used as the log outcome.
const (
	OutcomeStarted   = "started"
	OutcomeExisting  = "existing"
	OutcomeAdvanced  = "advanced"
	OutcomeRepeat    = "repeat"
	OutcomeIgnored   = "ignored"
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeAborted   = "aborted"
)

const minNameRunes = 2

// Backend is the part of the backend client the dialogue needs.
type Backend interface {
	FetchUser(ctx context.Context, telegramID int64) (backend.User, error)
	RegisterUser(ctx context.Context, r backend.Registration) error
	DeleteUser(ctx context.Context, telegramID int64) error
	ListGroups(ctx context.Context) ([]string, error)
	ListTeachers(ctx context.Context) ([]backend.Teacher, error)
}

// Identity is the platform view of the user behind an update.
type Identity struct {
	UserID    int64
	ChatID    int64
	FirstName string
	Username  string
}

// Input is one user action. Pressed marks inline button presses, whose Text is
// the button payload. Progress, when set, receives interim messages shown
// before slow backend calls.
type Input struct {
	Text     string
	Pressed  bool
	Cancel   bool
	Progress func(Message)
}

// Message is one outbound message. Edit replaces the message carrying the
// pressed button instead of sending a new one.
type Message struct {
	Text    string
	Menu    menu.Kind
	Choices []menu.Choice
	Edit    bool
}

// Reply is the result of one step.
type Reply struct {
	Messages []Message
	Outcome  string
	State    string
}

func (r *Reply) add(m Message) {
	r.Messages = append(r.Messages, m)
}

// Options configures NewMachine.
type Options struct {
	Sessions session.Store
	Backend  Backend
	Now      func() time.Time
	// OnStep observes the state and outcome of every step.
	OnStep func(state, outcome string)
	// OnSyncError observes failed backend writes (register, delete).
	OnSyncError func(op string)
}

// Machine drives registration conversations. Steps of one user are serialized
// through the session store lock; different users run concurrently.
type Machine struct {
	sessions session.Store
	backend  Backend
	convs    *state.Store[Conversation]
	now      func() time.Time
	onStep   func(state, outcome string)
	onSync   func(op string)
}

// NewMachine builds a Machine.
func NewMachine(opts Options) *Machine {
	m := &Machine{
		sessions: opts.Sessions,
		backend:  opts.Backend,
		convs:    state.New[Conversation](),
		now:      opts.Now,
		onStep:   opts.OnStep,
		onSync:   opts.OnSyncError,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.onStep == nil {
		m.onStep = func(string, string) {}
	}
	if m.onSync == nil {
		m.onSync = func(string) {}
	}
	return m
}

// InProgress reports whether userID is in the middle of a registration.
func (m *Machine) InProgress(userID int64) bool {
	_, ok := m.convs.Get(userID)
	return ok
}

// Conversation returns the current conversation of userID.
func (m *Machine) Conversation(userID int64) (Conversation, bool) {
	return m.convs.Get(userID)
}

// Resolve returns the session of the user, restoring it from the backend on
// first contact.
func (m *Machine) Resolve(ctx context.Context, id Identity) (session.Record, bool) {
	unlock := m.sessions.Lock(id.UserID)
	defer unlock()
	return m.hydrate(ctx, id)
}

// Begin is the entry point. Users with a session get the main menu and the
// choice to keep it or reset the role; everyone else starts at role choice.
// A running conversation is restarted.
func (m *Machine) Begin(ctx context.Context, id Identity) Reply {
	unlock := m.sessions.Lock(id.UserID)
	defer unlock()

	m.convs.Delete(id.UserID)
	if rec, ok := m.hydrate(ctx, id); ok {
		r := Reply{Outcome: OutcomeExisting}
		r.add(Message{Text: welcomeText(rec), Menu: MainMenu(rec.Role)})
		r.add(Message{Text: textSwitch, Menu: menu.SessionChoice})
		return m.done(ctx, id, r)
	}

	r := m.open(id)
	r.add(Message{Text: newUserText(id.FirstName), Menu: menu.Roles})
	return m.done(ctx, id, r)
}

// Handle advances the conversation of the user by one input.
func (m *Machine) Handle(ctx context.Context, id Identity, in Input) Reply {
	unlock := m.sessions.Lock(id.UserID)
	defer unlock()

	conv, ok := m.convs.Get(id.UserID)
	if !ok {
		return m.done(ctx, id, Reply{Outcome: OutcomeIgnored})
	}
	text := strings.TrimSpace(in.Text)

	if in.Cancel || (!in.Pressed && text == menu.Cancel && acceptsText(conv.State)) {
		return m.done(ctx, id, m.cancel(ctx, id, &conv, in.Pressed))
	}
	if in.Pressed == acceptsText(conv.State) {
		return m.done(ctx, id, Reply{Outcome: OutcomeIgnored, State: conv.State})
	}

	var r Reply
	switch conv.State {
	case StateChooseRole:
		r = m.chooseRole(ctx, id, &conv, text, in.Progress)
	case StateStudentGroup:
		r = m.studentGroup(ctx, &conv, text)
	case StateStudentSubgroup:
		r = m.studentSubgroup(ctx, &conv, text)
	case StateStudentName:
		r = m.studentName(ctx, id, &conv, text)
	case StateTeacherSelect:
		r = m.teacherSelect(ctx, id, &conv, text)
	default:
		m.convs.Delete(id.UserID)
		r = Reply{Outcome: OutcomeIgnored}
	}
	if r.State == "" {
		r.State = conv.State
	}
	switch r.Outcome {
	case OutcomeAdvanced, OutcomeRepeat:
		m.convs.Put(id.UserID, conv)
	case OutcomeCompleted, OutcomeAborted, OutcomeCancelled:
		m.convs.Delete(id.UserID)
	}
	return m.done(ctx, id, r)
}

// Cancel handles an explicit cancel command outside the inline menus.
func (m *Machine) Cancel(ctx context.Context, id Identity) Reply {
	unlock := m.sessions.Lock(id.UserID)
	defer unlock()

	outcome := OutcomeIgnored
	if _, ok := m.convs.Get(id.UserID); ok {
		m.convs.Delete(id.UserID)
		outcome = OutcomeCancelled
	}
	r := Reply{Outcome: outcome, State: StateCancelled}
	kind := menu.Remove
	if rec, ok := m.sessions.Get(id.UserID); ok {
		kind = MainMenu(rec.Role)
	}
	r.add(Message{Text: textActionCanceled, Menu: kind})
	return m.done(ctx, id, r)
}

// ResetRole drops the session locally and on the backend and reopens role choice.
func (m *Machine) ResetRole(ctx context.Context, id Identity) Reply {
	unlock := m.sessions.Lock(id.UserID)
	defer unlock()

	if _, ok := m.hydrate(ctx, id); !ok {
		r := Reply{Outcome: OutcomeIgnored}
		r.add(Message{Text: textNoSession, Edit: true})
		return m.done(ctx, id, r)
	}
	if err := m.backend.DeleteUser(ctx, id.UserID); err != nil {
		m.syncFailed(ctx, "delete", err)
	}
	m.sessions.Delete(id.UserID)

	r := m.open(id)
	r.add(Message{Text: textRoleReset, Menu: menu.Roles, Edit: true})
	return m.done(ctx, id, r)
}

// KeepSession acknowledges the choice to continue with the current session.
func (m *Machine) KeepSession(ctx context.Context, id Identity) Reply {
	unlock := m.sessions.Lock(id.UserID)
	defer unlock()

	if _, ok := m.sessions.Get(id.UserID); !ok {
		r := Reply{Outcome: OutcomeIgnored}
		r.add(Message{Text: textNoSession, Edit: true})
		return m.done(ctx, id, r)
	}
	r := Reply{Outcome: OutcomeExisting}
	r.add(Message{Text: textKeepSession, Edit: true})
	return m.done(ctx, id, r)
}

// Logout forgets the local session only; the backend record stays.
func (m *Machine) Logout(ctx context.Context, id Identity) Reply {
	unlock := m.sessions.Lock(id.UserID)
	defer unlock()

	m.convs.Delete(id.UserID)
	r := Reply{Outcome: OutcomeIgnored}
	if _, ok := m.sessions.Get(id.UserID); !ok {
		r.add(Message{Text: textNoSession, Edit: true})
		return m.done(ctx, id, r)
	}
	m.sessions.Delete(id.UserID)
	r.Outcome = OutcomeCompleted
	r.add(Message{Text: textLoggedOut, Edit: true})
	return m.done(ctx, id, r)
}

func (m *Machine) open(id Identity) Reply {
	m.convs.Put(id.UserID, Conversation{State: StateChooseRole, ChatID: id.ChatID, StartedAt: m.now()})
	return Reply{Outcome: OutcomeStarted, State: StateChooseRole}
}

func (m *Machine) cancel(ctx context.Context, id Identity, conv *Conversation, pressed bool) Reply {
	m.convs.Delete(id.UserID)
	_ = conv.fire(ctx, evCancel)
	r := Reply{Outcome: OutcomeCancelled, State: StateCancelled}
	if pressed {
		r.add(Message{Text: textCancelled, Edit: true})
	} else {
		r.add(Message{Text: textCancelled, Menu: menu.Remove})
	}
	return r
}

func (m *Machine) chooseRole(ctx context.Context, id Identity, conv *Conversation, choice string, progress func(Message)) Reply {
	switch choice {
	case menu.RoleStudent:
		groups, err := m.backend.ListGroups(ctx)
		if err != nil || len(groups) == 0 {
			m.fetchFailed(ctx, "groups", err)
			r := Reply{Outcome: OutcomeAborted}
			r.add(Message{Text: textGroupsFailed, Edit: true})
			return r
		}
		if err := conv.fire(ctx, evPickStudent); err != nil {
			return Reply{Outcome: OutcomeIgnored}
		}
		conv.Role = session.RoleStudent
		conv.Groups = groups
		r := Reply{Outcome: OutcomeAdvanced}
		r.add(Message{Text: textPickedStudent, Edit: true})
		r.add(Message{Text: textPickGroup, Menu: menu.Groups, Choices: groupChoices(groups)})
		return r

	case menu.RoleTeacher:
		if progress != nil {
			progress(Message{Text: textTeachersLoad, Edit: true})
		}
		teachers, err := m.backend.ListTeachers(ctx)
		options := teacherChoices(teachers)
		if err != nil || len(options) == 0 {
			m.fetchFailed(ctx, "teachers", err)
			r := Reply{Outcome: OutcomeAborted}
			r.add(Message{Text: textTeachersFailed, Edit: true})
			return r
		}
		if err := conv.fire(ctx, evPickTeacher); err != nil {
			return Reply{Outcome: OutcomeIgnored}
		}
		conv.Role = session.RoleTeacher
		conv.Options = options
		r := Reply{Outcome: OutcomeAdvanced}
		r.add(Message{Text: textPickTeacher, Menu: menu.Teachers, Choices: options, Edit: true})
		return r
	}
	return Reply{Outcome: OutcomeIgnored}
}

func (m *Machine) studentGroup(ctx context.Context, conv *Conversation, text string) Reply {
	if !conv.hasGroup(text) {
		r := Reply{Outcome: OutcomeRepeat}
		r.add(Message{Text: textBadGroup, Menu: menu.Groups, Choices: groupChoices(conv.Groups)})
		return r
	}
	if err := conv.fire(ctx, evPickGroup); err != nil {
		return Reply{Outcome: OutcomeIgnored}
	}
	conv.Group = text
	r := Reply{Outcome: OutcomeAdvanced}
	r.add(Message{Text: textPickSubgroup, Menu: menu.Subgroups})
	return r
}

func (m *Machine) studentSubgroup(ctx context.Context, conv *Conversation, text string) Reply {
	sg, ok := subgroupOf(text)
	if !ok {
		r := Reply{Outcome: OutcomeRepeat}
		r.add(Message{Text: textBadSubgroup, Menu: menu.Subgroups})
		return r
	}
	if err := conv.fire(ctx, evPickSubgroup); err != nil {
		return Reply{Outcome: OutcomeIgnored}
	}
	conv.Subgroup = sg
	r := Reply{Outcome: OutcomeAdvanced}
	r.add(Message{Text: textAskName, Menu: menu.Remove})
	return r
}

func (m *Machine) studentName(ctx context.Context, id Identity, conv *Conversation, name string) Reply {
	if utf8.RuneCountInString(name) < minNameRunes {
		r := Reply{Outcome: OutcomeRepeat}
		r.add(Message{Text: textBadName})
		return r
	}
	rec := session.Record{
		Role:     session.RoleStudent,
		Name:     name,
		Group:    conv.Group,
		Subgroup: conv.Subgroup,
	}
	if !m.commit(ctx, id, conv, rec) {
		return Reply{Outcome: OutcomeAborted}
	}
	r := Reply{Outcome: OutcomeCompleted}
	r.add(Message{Text: studentDoneText(rec), Menu: menu.StudentMain})
	return r
}

func (m *Machine) teacherSelect(ctx context.Context, id Identity, conv *Conversation, teacherID string) Reply {
	opt, ok := conv.option(teacherID)
	if !ok {
		return Reply{Outcome: OutcomeIgnored}
	}
	rec := session.Record{Role: session.RoleTeacher, Name: opt.Label, TeacherID: opt.ID}
	if !m.commit(ctx, id, conv, rec) {
		return Reply{Outcome: OutcomeAborted}
	}
	r := Reply{Outcome: OutcomeCompleted}
	r.add(Message{Text: teacherDoneText(rec), Edit: true})
	r.add(Message{Text: textMainMenu, Menu: menu.TeacherMain})
	return r
}

// commit stores the finished record and syncs it to the backend. A failed
// sync is reported but the local session stays.
func (m *Machine) commit(ctx context.Context, id Identity, conv *Conversation, rec session.Record) bool {
	event := evEnterName
	if rec.Role == session.RoleTeacher {
		event = evSelectTeacher
	}
	rec.ChatID = id.ChatID
	rec.Username = id.Username
	rec.RegisteredAt = m.now()
	if !rec.Complete() {
		return false
	}
	if err := conv.fire(ctx, event); err != nil {
		return false
	}
	if !m.sessions.Put(id.UserID, rec) {
		return false
	}
	if err := m.backend.RegisterUser(ctx, registrationOf(id, rec)); err != nil {
		m.syncFailed(ctx, "register", err)
	}
	return true
}

// hydrate must run under the user lock.
func (m *Machine) hydrate(ctx context.Context, id Identity) (session.Record, bool) {
	if rec, ok := m.sessions.Get(id.UserID); ok {
		return rec, true
	}
	u, err := m.backend.FetchUser(ctx, id.UserID)
	if err != nil {
		if !errors.Is(err, backend.ErrNotFound) {
			logger.Warn(ctx, logger.CompRegistration, "session.hydrate",
				slog.String("status", "fail"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
		return session.Record{}, false
	}

	rec := session.Record{
		Role:         session.Role(u.Role),
		Name:         u.Name,
		ChatID:       id.ChatID,
		Username:     id.Username,
		RegisteredAt: m.now(),
	}
	switch rec.Role {
	case session.RoleStudent:
		rec.Group = u.GroupNumber
		rec.Subgroup = u.Subgroup
		if !session.ValidSubgroup(rec.Subgroup) {
			rec.Subgroup = session.SubgroupAll
		}
	case session.RoleTeacher:
		rec.TeacherID = string(u.TeacherID)
	}
	if !m.sessions.Put(id.UserID, rec) {
		logger.Warn(ctx, logger.CompRegistration, "session.hydrate",
			slog.String("status", "skip"),
			slog.String("role", u.Role),
			slog.String("cause", "incomplete"),
		)
		return session.Record{}, false
	}
	logger.Info(ctx, logger.CompRegistration, "session.hydrate",
		slog.String("status", "ok"),
		slog.String("role", u.Role),
		slog.Bool("teacher_linked", rec.TeacherID != ""),
	)

	if string(u.TelegramChatID) != strconv.FormatInt(id.ChatID, 10) {
		if err := m.backend.RegisterUser(ctx, registrationOf(id, rec)); err != nil {
			m.syncFailed(ctx, "chat_resync", err)
		}
	}
	return rec, true
}

func (m *Machine) done(ctx context.Context, id Identity, r Reply) Reply {
	m.onStep(r.State, r.Outcome)
	logger.Debug(ctx, logger.CompRegistration, "registration.step",
		slog.String("state", r.State),
		slog.String("outcome", r.Outcome),
		slog.Int("messages", len(r.Messages)),
		slog.Int64("user_id", id.UserID),
	)
	return r
}

func (m *Machine) syncFailed(ctx context.Context, op string, err error) {
	m.onSync(op)
	logger.Warn(ctx, logger.CompRegistration, "backend.sync",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
}

func (m *Machine) fetchFailed(ctx context.Context, what string, err error) {
	attrs := []slog.Attr{
		slog.String("status", "fail"),
		slog.String("op", what),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
	} else {
		attrs = append(attrs, slog.String("cause", "empty"))
	}
	logger.Warn(ctx, logger.CompRegistration, "menu.fetch", attrs...)
}

func registrationOf(id Identity, rec session.Record) backend.Registration {
	r := backend.Registration{
		TelegramID: strconv.FormatInt(id.UserID, 10),
		ChatID:     strconv.FormatInt(id.ChatID, 10),
		Role:       string(rec.Role),
		Name:       rec.Name,
	}
	switch rec.Role {
	case session.RoleStudent:
		r.GroupNumber = rec.Group
		r.Subgroup = rec.Subgroup
	case session.RoleTeacher:
		r.TeacherID = rec.TeacherID
	}
	return r
}

// MainMenu returns the reply keyboard of a role.
func MainMenu(r session.Role) menu.Kind {
	if r == session.RoleTeacher {
		return menu.TeacherMain
	}
	return menu.StudentMain
}

func groupChoices(groups []string) []menu.Choice {
	out := make([]menu.Choice, 0, len(groups))
	for _, g := range groups {
		out = append(out, menu.Choice{ID: g, Label: g})
	}
	return out
}

func teacherChoices(teachers []backend.Teacher) []menu.Choice {
	out := make([]menu.Choice, 0, len(teachers))
	for _, t := range teachers {
		if t.ID == "" || strings.TrimSpace(t.Name) == "" {
			continue
		}
		out = append(out, menu.Choice{ID: string(t.ID), Label: t.Name})
	}
	return out
}

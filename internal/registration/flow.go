package registration

import (
	"log/slog"

	"github.com/m3rciful/schedulebot/core/logger"
	"github.com/m3rciful/schedulebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/schedulebot/core/telegram/helpers"
	"github.com/m3rciful/schedulebot/internal/menu"

	tele "gopkg.in/telebot.v4"
)

// Flow binds a Machine to telebot updates.
type Flow struct {
	m *Machine
}

// NewFlow wraps m.
func NewFlow(m *Machine) *Flow {
	return &Flow{m: m}
}

// IdentityOf extracts the user and chat of an update.
func IdentityOf(c tele.Context) Identity {
	var id Identity
	if u := c.Sender(); u != nil {
		id.UserID = u.ID
		id.FirstName = u.FirstName
		id.Username = u.Username
	}
	if ch := c.Chat(); ch != nil {
		id.ChatID = ch.ID
	} else {
		id.ChatID = id.UserID
	}
	return id
}

// InProgress reports whether free text of userID belongs to the dialogue.
func (f *Flow) InProgress(userID int64) bool {
	return f.m.InProgress(userID)
}

// ManagerHandler feeds typed text to the dialogue.
func (f *Flow) ManagerHandler(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return f.render(c, f.m.Handle(ctx, IdentityOf(c), Input{Text: c.Text()}))
}

// Start handles /start.
func (f *Flow) Start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return f.render(c, f.m.Begin(ctx, IdentityOf(c)))
}

// CancelCommand handles /cancel.
func (f *Flow) CancelCommand(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return f.render(c, f.m.Cancel(ctx, IdentityOf(c)))
}

// OnPress feeds an inline role or teacher button to the dialogue.
func (f *Flow) OnPress(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	in := Input{
		Text:    callbacks.Payload(c),
		Pressed: true,
		Progress: func(msg Message) {
			if err := f.send(c, msg); err != nil {
				logger.Warn(ctx, logger.CompRegistration, "progress.send", slog.String("err", err.Error()))
			}
		},
	}
	return f.render(c, f.m.Handle(ctx, IdentityOf(c), in))
}

// OnCancel handles the inline cancel button.
func (f *Flow) OnCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return f.render(c, f.m.Handle(ctx, IdentityOf(c), Input{Pressed: true, Cancel: true}))
}

// OnChangeRole handles the role reset button.
func (f *Flow) OnChangeRole(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return f.render(c, f.m.ResetRole(ctx, IdentityOf(c)))
}

// OnKeepSession handles the continue button.
func (f *Flow) OnKeepSession(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return f.render(c, f.m.KeepSession(ctx, IdentityOf(c)))
}

// OnLogout handles the logout button.
func (f *Flow) OnLogout(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return f.render(c, f.m.Logout(ctx, IdentityOf(c)))
}

func (f *Flow) render(c tele.Context, r Reply) error {
	tghelpers.SetOutcome(c, r.Outcome)
	for _, msg := range r.Messages {
		if err := f.send(c, msg); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flow) send(c tele.Context, msg Message) error {
	markup := menu.Markup(msg.Menu, msg.Choices)
	if msg.Edit && c.Callback() != nil {
		// Edits accept inline keyboards only.
		if markup != nil && markup.InlineKeyboard == nil {
			markup = nil
		}
		return tghelpers.EditHTML(c, msg.Text, markup)
	}
	return tghelpers.SendHTML(c, msg.Text, markup)
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/schedulebot/core/logger"
	tghelpers "github.com/m3rciful/schedulebot/core/telegram/helpers"
	"github.com/m3rciful/schedulebot/internal/menu"
	"github.com/m3rciful/schedulebot/internal/metrics"
	"github.com/m3rciful/schedulebot/internal/notify"
	"github.com/m3rciful/schedulebot/internal/registration"
	"github.com/m3rciful/schedulebot/internal/schedule"
	"github.com/m3rciful/schedulebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

// Resolver finds the session behind an update.
type Resolver interface {
	Resolve(ctx context.Context, id registration.Identity) (session.Record, bool)
}

// Querier answers schedule queries.
type Querier interface {
	Query(ctx context.Context, rec session.Record, p schedule.Period) (schedule.Message, error)
}

// CycleRunner runs one delivery cycle on demand.
type CycleRunner interface {
	RunCycle(ctx context.Context) (notify.CycleStats, error)
}

// JournalReader is the read side of the delivery journal.
type JournalReader interface {
	Summary(ctx context.Context, since time.Time) ([]notify.StatusCount, error)
	Attempts(ctx context.Context, notificationID string) ([]notify.Attempt, error)
}

// screen shows a placeholder while a schedule loads and swaps it for the result.
type screen interface {
	Placeholder(c tele.Context, text string) (tele.Editable, error)
	Replace(c tele.Context, msg tele.Editable, text string) error
	Remove(c tele.Context, msg tele.Editable) error
}

// botScreen sends the placeholder synchronously so it can be edited later.
type botScreen struct{}

func (botScreen) Placeholder(c tele.Context, text string) (tele.Editable, error) {
	return c.Bot().Send(c.Recipient(), text)
}

func (botScreen) Replace(c tele.Context, msg tele.Editable, text string) error {
	return tghelpers.EditMessage(c, msg, text, nil)
}

func (botScreen) Remove(c tele.Context, msg tele.Editable) error {
	return tghelpers.DeleteMessage(c, msg)
}

// Handlers serves the commands outside the registration dialogue.
type Handlers struct {
	sessions Resolver
	schedule Querier
	screen   screen
	now      func() time.Time

	// set before the bot starts taking updates
	cycles  CycleRunner
	journal JournalReader
}

func (h *Handlers) resolve(c tele.Context) (session.Record, bool) {
	return h.sessions.Resolve(tghelpers.BuildContext(c), registration.IdentityOf(c))
}

// Schedule answers a period query. Long answers replace the placeholder with
// several messages.
func (h *Handlers) Schedule(p schedule.Period) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		rec, ok := h.resolve(c)
		if !ok {
			tghelpers.SetOutcome(c, "skipped")
			return tghelpers.SendText(c, textNotRegistered, nil)
		}

		placeholder, err := h.screen.Placeholder(c, schedule.TextLoading)
		if err != nil {
			return fmt.Errorf("schedule placeholder: %w", err)
		}
		msg, err := h.schedule.Query(ctx, rec, p)
		if err != nil {
			tghelpers.SetOutcome(c, "fail")
			return h.screen.Replace(c, placeholder, schedule.ErrorText(err))
		}

		tghelpers.SetOutcome(c, "ok")
		chunks := msg.Chunks()
		if len(chunks) == 1 {
			return h.screen.Replace(c, placeholder, chunks[0])
		}
		if err := h.screen.Remove(c, placeholder); err != nil {
			logger.Warn(ctx, logger.CompSchedule, "placeholder.delete", slog.String("err", err.Error()))
		}
		return tghelpers.SendChunks(c, msg.Text)
	}
}

// Profile shows the session with the change role and logout buttons.
func (h *Handlers) Profile(c tele.Context) error {
	rec, ok := h.resolve(c)
	if !ok {
		tghelpers.SetOutcome(c, "skipped")
		return tghelpers.SendText(c, textNotRegistered, nil)
	}
	return tghelpers.SendHTML(c, profileText(rec, c.Sender().ID), menu.Markup(menu.ProfileActions, nil))
}

func (h *Handlers) Help(c tele.Context) error {
	rec, _ := h.resolve(c)
	return tghelpers.SendHTML(c, helpText(rec.Role), nil)
}

// Fallback answers text that matched nothing.
func (h *Handlers) Fallback(c tele.Context) error {
	tghelpers.SetOutcome(c, "ignored")
	rec, ok := h.resolve(c)
	if !ok {
		return tghelpers.SendText(c, textNotRegistered, nil)
	}
	return tghelpers.SendText(c, textUseMenu, menu.Markup(registration.MainMenu(rec.Role), nil))
}

// StaleButton answers presses of buttons no handler knows, such as keyboards
// left over from an older release.
func (h *Handlers) StaleButton(c tele.Context) error {
	tghelpers.SetOutcome(c, "ignored")
	return tghelpers.SendText(c, textStaleButton, nil)
}

// Poll runs a delivery cycle right away and reports its numbers.
func (h *Handlers) Poll(c tele.Context) error {
	if h.cycles == nil {
		return tghelpers.SendText(c, textPollDisabled, nil)
	}
	stats, err := h.cycles.RunCycle(tghelpers.BuildContext(c))
	switch {
	case errors.Is(err, notify.ErrCycleInProgress):
		tghelpers.SetOutcome(c, "skipped")
		return tghelpers.SendText(c, textPollBusy, nil)
	case err != nil:
		tghelpers.SetOutcome(c, "fail")
		return tghelpers.SendText(c, fmt.Sprintf(textPollFailed, logger.SanitizeLimit(err.Error(), 200)), nil)
	}
	return tghelpers.SendHTML(c, pollText(stats), nil)
}

// Deliveries shows the journal summary of the last day, or the attempts of
// one notification when an id follows the command.
func (h *Handlers) Deliveries(c tele.Context) error {
	if h.journal == nil {
		return tghelpers.SendText(c, textJournalOff, nil)
	}
	ctx := tghelpers.BuildContext(c)
	if id := strings.TrimSpace(c.Message().Payload); id != "" {
		rows, err := h.journal.Attempts(ctx, id)
		if err != nil {
			return err
		}
		return tghelpers.SendHTML(c, attemptsText(id, rows), nil)
	}
	rows, err := h.journal.Summary(ctx, h.now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	return tghelpers.SendHTML(c, summaryText(rows), nil)
}

// Limited answers updates dropped by the rate limiter.
func (h *Handlers) Limited(c tele.Context) error {
	metrics.IncRateLimited()
	tghelpers.SetOutcome(c, "rate_limited")
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: textSlowDown})
	}
	return tghelpers.SendText(c, textSlowDown, nil)
}

func (h *Handlers) AdminReject(c tele.Context) error {
	tghelpers.SetOutcome(c, "skipped")
	return tghelpers.SendText(c, textAdminOnly, nil)
}

// OnError tells the user something went wrong. The error itself is logged by
// the runtime.
func (h *Handlers) OnError(err error, c tele.Context) {
	metrics.IncHandlerError()
	if c.Message() == nil && c.Callback() == nil {
		return
	}
	if serr := tghelpers.SendText(c, textFailure, nil); serr != nil {
		logger.Warn(tghelpers.BuildContext(c), logger.CompTelegram, "error.notify",
			slog.String("err", serr.Error()),
		)
	}
}

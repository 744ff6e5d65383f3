package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/schedulebot/core/logger"
	"github.com/m3rciful/schedulebot/core/telegram/format"
	"github.com/m3rciful/schedulebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the background sender. nil makes helpers send inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

func chatKey(c tele.Context) int64 {
	if ch := c.Chat(); ch != nil {
		return ch.ID
	}
	if u := c.Sender(); u != nil {
		return u.ID
	}
	return 0
}

// enqueue hands run to the dispatcher keyed by chat. A full queue makes the
// caller wait so messages to one chat keep their order. Without a dispatcher,
// or after it closed, run is called inline.
func enqueue(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, chatKey(c), action, endpoint, run)
	if errors.Is(err, sender.ErrQueueFull) {
		logger.Debug(ctx, "tg.sender", "queue.wait", slog.String("action", action))
		err = d.EnqueueWait(ctx, chatKey(c), action, endpoint, run)
	}
	if errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendHTML queues an HTML message with optional markup.
func SendHTML(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup}
	return enqueue(c, "send.html", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// SendText queues a plain text message with optional markup.
func SendText(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ReplyMarkup: markup}
	return enqueue(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// SendChunks splits HTML text at format.MessageLimit and queues the pieces in
// order on the same chat worker.
func SendChunks(c tele.Context, text string) error {
	for _, part := range format.Split(text, format.MessageLimit) {
		if err := SendHTML(c, part, nil); err != nil {
			return err
		}
	}
	return nil
}

// EditHTML queues an edit of the message behind the current callback.
func EditHTML(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup}
	return enqueue(c, "edit.html", "editMessageText", func() error {
		return c.Edit(text, opts)
	})
}

// EditMessage queues an edit of msg, a message the bot sent earlier in this chat.
func EditMessage(c tele.Context, msg tele.Editable, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup}
	return enqueue(c, "edit.message", "editMessageText", func() error {
		_, err := c.Bot().Edit(msg, text, opts)
		return err
	})
}

// DeleteMessage queues the removal of msg.
func DeleteMessage(c tele.Context, msg tele.Editable) error {
	return enqueue(c, "delete", "deleteMessage", func() error {
		return c.Bot().Delete(msg)
	})
}

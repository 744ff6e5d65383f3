package router

import (
	tg "github.com/m3rciful/schedulebot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// Conversation is a multi-step dialogue that claims free text while it runs.
type Conversation interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextRoutes routes plain text in priority order: a running conversation,
// then command aliases such as reply keyboard labels, then the fallback.
func TextRoutes(conv Conversation, reg *tg.Registry) []tg.Route {
	handler := func(c tele.Context) error {
		if u := c.Sender(); conv != nil && u != nil && conv.InProgress(u.ID) {
			return summarize(c, "conversation", func() error { return conv.ManagerHandler(c) })
		}
		if reg == nil {
			return nil
		}
		if name, cmd, ok := reg.LookupCommand(c.Text()); ok && !cmd.AdminOnly {
			return summarize(c, handlerName("", name), func() error { return cmd.Handler(c) })
		}
		if fb := reg.TextFallback(); fb != nil {
			return summarize(c, "fallback", func() error { return fb(c) })
		}
		return nil
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}

package notify

import (
	"context"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// chatRef addresses a chat by numeric id or @username.
type chatRef string

func (c chatRef) Recipient() string { return string(c) }

// BotSender delivers through the Bot API. Each notification gets exactly one
// attempt; retrying is left to the backend.
type BotSender struct {
	bot interface {
		Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	}
}

// NewBotSender wraps bot.
func NewBotSender(bot *tele.Bot) *BotSender {
	return &BotSender{bot: bot}
}

func (s *BotSender) Deliver(ctx context.Context, chatID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(chatRef(strings.TrimSpace(chatID)), text, &tele.SendOptions{ParseMode: tele.ModeHTML})
	return err
}

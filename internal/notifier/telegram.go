package notifier

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// TelegramSender delivers notifications to a fixed chat. Send-only: no
// poller is attached, the bot instance is used purely as an API client.
type TelegramSender struct {
	bot    *tele.Bot
	chatID int64
}

func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if chatID == 0 {
		return nil, errors.New("telegram chat id is required")
	}
	b, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		return nil, err
	}
	return &TelegramSender{bot: b, chatID: chatID}, nil
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) Send(_ context.Context, n Notification) error {
	text := n.Body
	if n.Subject != "" {
		text = n.Subject + "\n" + n.Body
	}
	_, err := t.bot.Send(&tele.Chat{ID: t.chatID}, text)
	return err
}

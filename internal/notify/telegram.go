package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender sends direct messages through the Telegram Bot API. A direct
// chat with a user shares the user's numeric id, so the target user id is
// used as the chat id.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender wraps an authorized bot client.
func NewTelegramSender(bot *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{bot: bot}
}

// SendMessage implements Sender. Telegram rejects the send when the user has
// blocked the bot or never started a private conversation; that error is
// returned as-is for the Dispatcher to log and drop.
func (s *TelegramSender) SendMessage(_ context.Context, userID int64, text string) error {
	_, err := s.bot.Send(tgbotapi.NewMessage(userID, text))
	return err
}

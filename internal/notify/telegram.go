package notify

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramSender описывает часть API бота, нужную для отправки сообщений. Её реализует *tgbotapi.BotAPI.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram отправляет уведомления в чат администраторов.
type Telegram struct {
	api    TelegramSender
	chatID int64
	logger *zap.Logger
}

// NewTelegram создаёт уведомитель, пишущий в указанный чат.
func NewTelegram(api TelegramSender, chatID int64, logger *zap.Logger) *Telegram {
	return &Telegram{api: api, chatID: chatID, logger: logger}
}

func (t *Telegram) Success(_ context.Context, msg string) { t.send("✅ " + msg) }

func (t *Telegram) Error(_ context.Context, msg string) { t.send("❌ " + msg) }

func (t *Telegram) send(text string) {
	m := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(m); err != nil {
		t.logger.Warn("telegram notification failed", zap.Int64("chat", t.chatID), zap.Error(err))
	}
}

package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// TelegramNotifier отправляет события в Telegram-чат врача.
// Врачей без chat ID обслуживает запасной нотификатор.
type TelegramNotifier struct {
	bot      *bot.Bot
	fallback Notifier
	logger   *zap.Logger
}

// NewTelegramNotifier создаёт клиента Telegram без обращения к getMe
func NewTelegramNotifier(token string, fallback Notifier, logger *zap.Logger, opts ...bot.Option) (*TelegramNotifier, error) {
	opts = append([]bot.Option{bot.WithSkipGetMe()}, opts...)

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:      b,
		fallback: fallback,
		logger:   logger,
	}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, e Event) error {
	if e.Doctor == nil || e.Doctor.TelegramChatID == nil {
		return n.fallback.Notify(ctx, e)
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    *e.Doctor.TelegramChatID,
		Text:      Message(e),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		n.logger.Warn("Failed to send telegram notification",
			zap.Int64("booking_id", e.Booking.ID),
			zap.Error(err),
		)
		return fmt.Errorf("send telegram message: %w", err)
	}

	return nil
}

package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/model"
)

// LogRefunder пишет выплаты возвратов в лог.
// Заменяет платёжного провайдера, пока он не подключён.
type LogRefunder struct {
	logger *zap.Logger
}

func NewLogRefunder(logger *zap.Logger) *LogRefunder {
	return &LogRefunder{logger: logger}
}

func (r *LogRefunder) Refund(_ context.Context, b *model.Booking, amountCents int64) error {
	r.logger.Info("Refund issued",
		zap.Int64("booking_id", b.ID),
		zap.Int64("patient_id", b.PatientID),
		zap.Int64("amount_cents", amountCents),
	)
	return nil
}

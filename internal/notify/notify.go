// Package notify доставляет врачам уведомления о жизненном цикле брони.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/model"
)

type Kind string

const (
	KindReserved         Kind = "reserved"
	KindConfirmed        Kind = "confirmed"
	KindAwaitingApproval Kind = "awaiting_approval"
	KindApproved         Kind = "approved"
	KindRejected         Kind = "rejected"
	KindCancelled        Kind = "cancelled"
	KindExpired          Kind = "expired"
	KindPaymentFailed    Kind = "payment_failed"
)

// Event описывает одно изменение брони
type Event struct {
	Kind        Kind
	Booking     *model.Booking
	Doctor      *model.Doctor
	RefundCents int64
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// LogNotifier пишет события в лог, используется когда Telegram не настроен
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, e Event) error {
	n.logger.Info("Booking notification",
		zap.String("kind", string(e.Kind)),
		zap.Int64("booking_id", e.Booking.ID),
		zap.Int64("doctor_id", e.Booking.DoctorID),
		zap.Int64("patient_id", e.Booking.PatientID),
		zap.String("status", string(e.Booking.Status)),
		zap.Int64("refund_cents", e.RefundCents),
	)
	return nil
}

var headlines = map[Kind]string{
	KindReserved:         "🕐 <b>Slot reserved</b>, waiting for payment",
	KindConfirmed:        "✅ <b>New appointment</b>",
	KindAwaitingApproval: "⏳ <b>New appointment request</b>, approval required",
	KindApproved:         "✅ <b>Appointment approved</b>",
	KindRejected:         "❌ <b>Appointment rejected</b>",
	KindCancelled:        "❌ <b>Appointment cancelled</b>",
	KindExpired:          "⌛ <b>Payment hold expired</b>, slot released",
	KindPaymentFailed:    "⚠️ <b>Payment failed</b>, slot released",
}

// Message собирает HTML-сообщение для чата
func Message(e Event) string {
	headline, ok := headlines[e.Kind]
	if !ok {
		headline = string(e.Kind)
	}

	b := e.Booking
	text := fmt.Sprintf(
		"%s\n\n"+
			"👤 Patient: %d\n"+
			"📅 Date: %s\n"+
			"🕐 Time: %s - %s\n"+
			"🏥 Type: %s",
		headline,
		b.PatientID,
		b.AppointmentDate.Format("02.01.2006"),
		b.StartTime.String()[:5],
		b.EndTime.String()[:5],
		b.ConsultationType,
	)

	if e.Kind == KindCancelled {
		text += fmt.Sprintf("\n💸 Refund: %d%% (%s)", b.RefundPercent, formatCents(e.RefundCents))
	}
	return text
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

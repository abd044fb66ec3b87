package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/availability"
	"github.com/Freeeeeet/medbook/internal/metrics"
	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/notify"
	"github.com/Freeeeeet/medbook/internal/refund"
	"github.com/Freeeeeet/medbook/internal/repository"
)

var bookingTracer = otel.Tracer("medbook/booking")

type BookingConfig struct {
	MinLeadTime    time.Duration // slots starting sooner than this are not bookable
	PaymentHoldTTL time.Duration // pending_payment holds older than this are released
}

// Actor - кто запрашивает отмену
type Actor string

const (
	ActorPatient Actor = "patient"
	ActorDoctor  Actor = "doctor"
)

// ReserveRequest - запрос пациента на удержание слота
type ReserveRequest struct {
	DoctorID         int64
	PatientID        int64
	Date             time.Time
	Start            model.TimeOfDay
	End              model.TimeOfDay
	ConsultationType model.ConsultationType
	IdempotencyKey   string
}

// Cancellation - результат CancelBooking
type Cancellation struct {
	Booking  *model.Booking `json:"booking"`
	Quote    refund.Quote   `json:"quote"`
	Refunded bool           `json:"refunded"`
}

type BookingService struct {
	doctors     DoctorStore
	rules       ScheduleRuleStore
	overrides   OverrideStore
	bookings    BookingStore
	idempotency IdempotencyStore
	refunder    Refunder
	notifier    notify.Notifier
	metrics     *metrics.BookingMetrics
	cfg         BookingConfig
	now         func() time.Time
	logger      *zap.Logger
}

type BookingOption func(*BookingService)

// WithClock подменяет time.Now
func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) { s.now = now }
}

func WithMetrics(m *metrics.BookingMetrics) BookingOption {
	return func(s *BookingService) { s.metrics = m }
}

func WithRefunder(r Refunder) BookingOption {
	return func(s *BookingService) { s.refunder = r }
}

func NewBookingService(
	stores Stores,
	notifier notify.Notifier,
	cfg BookingConfig,
	logger *zap.Logger,
	opts ...BookingOption,
) *BookingService {
	s := &BookingService{
		doctors:     stores.Doctors,
		rules:       stores.Rules,
		overrides:   stores.Overrides,
		bookings:    stores.Bookings,
		idempotency: stores.Idempotency,
		notifier:    notifier,
		cfg:         cfg,
		now:         time.Now,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeAvailableSlots возвращает слоты врача на дату для типа консультации.
// С includeUnavailable занятые и прошедшие слоты тоже попадают в ответ с IsAvailable=false.
func (s *BookingService) ComputeAvailableSlots(
	ctx context.Context,
	doctorID int64,
	date time.Time,
	consultationType model.ConsultationType,
	includeUnavailable bool,
) ([]model.Slot, error) {
	if !consultationType.Valid() {
		return nil, ErrInvalidConsultationType
	}

	started := time.Now()
	defer func() { s.metrics.ObserveSlotComputation(time.Since(started)) }()

	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	day, err := s.loadDay(ctx, doctor, date, consultationType)
	if err != nil {
		return nil, err
	}

	if includeUnavailable {
		return availability.Compute(day), nil
	}
	return availability.Available(day), nil
}

// ValidateAndReserve заново проверяет окно по свежему состоянию и держит его
// бронью pending_payment. Из параллельных запросов на пересекающиеся окна
// одного врача проходит ровно один, остальные получают ErrConflict.
func (s *BookingService) ValidateAndReserve(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.reserve", trace.WithAttributes(
		attribute.Int64("medbook.doctor_id", req.DoctorID),
		attribute.String("medbook.date", req.Date.Format(model.DateLayout)),
		attribute.String("medbook.start", req.Start.String()),
	))
	defer span.End()

	booking, replayed, err := s.reserve(ctx, req)
	switch {
	case err != nil:
		span.RecordError(err)
		s.metrics.ObserveReservation(reservationOutcome(err))
		return nil, err
	case replayed:
		s.metrics.ObserveReservation("replayed")
		return booking, nil
	}

	s.metrics.ObserveReservation("reserved")
	span.SetAttributes(attribute.Int64("medbook.booking_id", booking.ID))
	return booking, nil
}

// reserve возвращает (бронь, повтор запроса, ошибка)
func (s *BookingService) reserve(ctx context.Context, req ReserveRequest) (*model.Booking, bool, error) {
	booking, replayed, err := s.reserveSlot(ctx, req)
	if errors.Is(err, ErrConflict) && req.IdempotencyKey != "" {
		// Параллельный повтор с тем же ключом мог занять слот первым
		existing, replayErr := s.replay(ctx, req)
		if replayErr == nil && existing != nil {
			return existing, true, nil
		}
	}
	return booking, replayed, err
}

func (s *BookingService) reserveSlot(ctx context.Context, req ReserveRequest) (*model.Booking, bool, error) {
	if !req.ConsultationType.Bookable() {
		return nil, false, ErrInvalidConsultationType
	}

	if existing, err := s.replay(ctx, req); err != nil || existing != nil {
		return existing, existing != nil, err
	}

	doctor, err := s.getDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, false, err
	}

	day, err := s.loadDay(ctx, doctor, req.Date, req.ConsultationType)
	if err != nil {
		return nil, false, err
	}

	slot, ok := availability.Find(availability.Compute(day), req.Start, req.End)
	if !ok {
		// Окно может быть открыто для другого типа консультации
		day.ConsultationType = model.ConsultationBoth
		if _, other := availability.Find(availability.Compute(day), req.Start, req.End); other {
			return nil, false, ErrInvalidConsultationType
		}
		return nil, false, ErrNotOffered
	}

	if !slot.IsAvailable {
		if !model.At(day.Date, slot.Start, day.Location).After(day.Now.Add(day.MinLeadTime)) {
			return nil, false, ErrPastSlot
		}
		return nil, false, ErrConflict
	}

	booking := &model.Booking{
		DoctorID:         doctor.ID,
		PatientID:        req.PatientID,
		AppointmentDate:  day.Date,
		StartTime:        slot.Start,
		EndTime:          slot.End,
		ConsultationType: req.ConsultationType,
		Status:           model.BookingStatusPendingPayment,
		AmountCents:      doctor.ConsultationFeeCents,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		booking.IdempotencyKey = &key
	}

	if err := s.bookings.CreateIfFree(ctx, booking); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingOverlap), errors.Is(err, repository.ErrDuplicateRequest):
			return nil, false, ErrConflict
		}
		return nil, false, fmt.Errorf("create booking: %w", err)
	}

	s.cacheIdempotencyKey(ctx, req.IdempotencyKey, booking.ID)

	s.logger.Info("Slot reserved",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("doctor_id", booking.DoctorID),
		zap.Int64("patient_id", booking.PatientID),
		zap.String("date", booking.AppointmentDate.Format(model.DateLayout)),
		zap.String("start", booking.StartTime.String()),
		zap.String("consultation_type", string(booking.ConsultationType)),
	)

	s.notify(ctx, notify.KindReserved, booking, doctor, 0)
	return booking, false, nil
}

// replay ищет бронь, созданную ранее запросом с тем же ключом идемпотентности.
// Источник истины - колонка idempotency_key в базе, Redis только кэширует её.
func (s *BookingService) replay(ctx context.Context, req ReserveRequest) (*model.Booking, error) {
	if req.IdempotencyKey == "" {
		return nil, nil
	}

	if booking := s.replayCached(ctx, req); booking != nil {
		return booking, nil
	}

	booking, err := s.bookings.GetByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("get booking by idempotency key: %w", err)
	}
	if !sameRequester(booking, req) {
		return nil, nil
	}

	s.cacheIdempotencyKey(ctx, req.IdempotencyKey, booking.ID)
	return booking, nil
}

// replayCached проверяет кэш; любая ошибка Redis означает промах
func (s *BookingService) replayCached(ctx context.Context, req ReserveRequest) *model.Booking {
	if s.idempotency == nil {
		return nil
	}

	id, found, err := s.idempotency.Lookup(ctx, req.IdempotencyKey)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil || !sameRequester(booking, req) {
		return nil
	}
	return booking
}

func (s *BookingService) cacheIdempotencyKey(ctx context.Context, key string, bookingID int64) {
	if s.idempotency == nil || key == "" {
		return
	}
	if _, err := s.idempotency.Remember(ctx, key, bookingID); err != nil {
		s.logger.Warn("Failed to remember idempotency key",
			zap.Int64("booking_id", bookingID),
			zap.Error(err),
		)
	}
}

func sameRequester(booking *model.Booking, req ReserveRequest) bool {
	return booking != nil && booking.PatientID == req.PatientID && booking.DoctorID == req.DoctorID
}

// GetBooking получает бронирование по ID
func (s *BookingService) GetBooking(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// ListPatientBookings получает все бронирования пациента
func (s *BookingService) ListPatientBookings(ctx context.Context, patientID int64) ([]*model.Booking, error) {
	bookings, err := s.bookings.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list patient bookings: %w", err)
	}
	return bookings, nil
}

// HandlePaymentEvent применяет ответ платёжного провайдера к удержанному слоту.
// Успех подтверждает бронь или отправляет её врачу на одобрение. Неуспех
// освобождает слот. Повторный успех для уже оплаченной брони ничего не меняет.
func (s *BookingService) HandlePaymentEvent(ctx context.Context, bookingID int64, succeeded bool) (*model.Booking, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if succeeded && (booking.Status == model.BookingStatusConfirmed || booking.Status == model.BookingStatusPendingApproval) {
		return booking, nil
	}

	doctor, err := s.getDoctor(ctx, booking.DoctorID)
	if err != nil {
		return nil, err
	}

	next, kind := model.BookingStatusCancelledBySystem, notify.KindPaymentFailed
	if succeeded {
		next, kind = model.BookingStatusConfirmed, notify.KindConfirmed
		if doctor.RequiresBookingApproval {
			next, kind = model.BookingStatusPendingApproval, notify.KindAwaitingApproval
		}
	}

	if err := s.transition(ctx, booking, next); err != nil {
		return nil, err
	}

	s.logger.Info("Payment event applied",
		zap.Int64("booking_id", booking.ID),
		zap.Bool("succeeded", succeeded),
		zap.String("status", string(booking.Status)),
	)

	s.notify(ctx, kind, booking, doctor, 0)
	return booking, nil
}

// ApproveBooking одобряет бронирование, ожидающее решения врача
func (s *BookingService) ApproveBooking(ctx context.Context, bookingID, doctorID int64) (*model.Booking, error) {
	booking, doctor, err := s.doctorsBooking(ctx, bookingID, doctorID)
	if err != nil {
		return nil, err
	}

	if err := s.transition(ctx, booking, model.BookingStatusApproved); err != nil {
		return nil, err
	}

	s.logger.Info("Booking approved", zap.Int64("booking_id", bookingID))
	s.notify(ctx, notify.KindApproved, booking, doctor, 0)
	return booking, nil
}

// RejectBooking отклоняет бронирование и возвращает оплату полностью
func (s *BookingService) RejectBooking(ctx context.Context, bookingID, doctorID int64) (*Cancellation, error) {
	booking, doctor, err := s.doctorsBooking(ctx, bookingID, doctorID)
	if err != nil {
		return nil, err
	}

	quote := refund.NewQuote(doctor.CancellationPolicy, s.hoursUntil(booking, doctor), booking.AmountCents)
	quote.Percent = 100
	quote.RefundCents = refund.Amount(booking.AmountCents, 100)

	result, err := s.settle(ctx, booking, model.BookingStatusRejected, quote)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking rejected", zap.Int64("booking_id", bookingID))
	s.notify(ctx, notify.KindRejected, booking, doctor, quote.RefundCents)
	return result, nil
}

// CancelBooking отменяет бронь от имени пациента или врача.
// Пациенту возврат считается по политике врача, при отмене врачом возврат полный.
// Неоплаченный холд снимается без возврата.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, actor Actor, actorID int64) (*Cancellation, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.cancel", trace.WithAttributes(
		attribute.Int64("medbook.booking_id", bookingID),
		attribute.String("medbook.actor", string(actor)),
	))
	defer span.End()

	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var target model.BookingStatus
	switch actor {
	case ActorPatient:
		if booking.PatientID != actorID {
			return nil, ErrNotOwner
		}
		target = model.BookingStatusCancelledByPatient
	case ActorDoctor:
		if booking.DoctorID != actorID {
			return nil, ErrNotOwner
		}
		target = model.BookingStatusCancelledByDoctor
	default:
		return nil, fmt.Errorf("unknown actor %q", actor)
	}

	if !booking.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, target)
	}

	doctor, err := s.getDoctor(ctx, booking.DoctorID)
	if err != nil {
		return nil, err
	}

	paid := booking.AmountCents
	if booking.Status == model.BookingStatusPendingPayment {
		paid = 0
	}

	quote := refund.NewQuote(doctor.CancellationPolicy, s.hoursUntil(booking, doctor), paid)
	if actor == ActorDoctor {
		quote.Percent = 100
		quote.RefundCents = refund.Amount(paid, 100)
	}

	result, err := s.settle(ctx, booking, target, quote)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.String("actor", string(actor)),
		zap.Float64("hours_until", quote.HoursUntil),
		zap.Int("refund_percent", quote.Percent),
		zap.Int64("refund_cents", quote.RefundCents),
	)

	s.metrics.ObserveCancellation(string(actor), quote.Percent, quote.RefundCents)
	s.notify(ctx, notify.KindCancelled, booking, doctor, quote.RefundCents)
	return result, nil
}

// settle сохраняет отмену с решением о возврате и выплачивает возврат
func (s *BookingService) settle(ctx context.Context, booking *model.Booking, to model.BookingStatus, quote refund.Quote) (*Cancellation, error) {
	if !booking.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, to)
	}

	err := s.bookings.RecordCancellation(ctx, booking.ID, booking.Status, to, quote.Percent, quote.RefundCents)
	if err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, fmt.Errorf("%w: booking %d changed concurrently", ErrInvalidTransition, booking.ID)
		}
		return nil, fmt.Errorf("record cancellation: %w", err)
	}
	booking.Status = to
	booking.RefundPercent = quote.Percent
	booking.RefundCents = quote.RefundCents

	result := &Cancellation{Booking: booking, Quote: quote}
	if quote.RefundCents == 0 || s.refunder == nil {
		return result, nil
	}

	if err := s.refunder.Refund(ctx, booking, quote.RefundCents); err != nil {
		// Решение о возврате сохранено, выплату можно повторить по нему
		s.logger.Error("Refund failed",
			zap.Int64("booking_id", booking.ID),
			zap.Int64("refund_cents", quote.RefundCents),
			zap.Error(err),
		)
		return result, nil
	}

	if err := s.transition(ctx, booking, model.BookingStatusRefunded); err != nil {
		s.logger.Warn("Failed to mark booking refunded", zap.Int64("booking_id", booking.ID), zap.Error(err))
		return result, nil
	}
	result.Refunded = true
	return result, nil
}

// CompleteBooking отмечает приём состоявшимся
func (s *BookingService) CompleteBooking(ctx context.Context, bookingID, doctorID int64) (*model.Booking, error) {
	return s.finish(ctx, bookingID, doctorID, model.BookingStatusCompleted)
}

// MarkNoShow отмечает неявку пациента
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID, doctorID int64) (*model.Booking, error) {
	return s.finish(ctx, bookingID, doctorID, model.BookingStatusNoShow)
}

func (s *BookingService) finish(ctx context.Context, bookingID, doctorID int64, to model.BookingStatus) (*model.Booking, error) {
	booking, doctor, err := s.doctorsBooking(ctx, bookingID, doctorID)
	if err != nil {
		return nil, err
	}

	if s.now().Before(booking.StartsAt(doctor.Location())) {
		return nil, ErrNotStarted
	}

	if err := s.transition(ctx, booking, to); err != nil {
		return nil, err
	}

	s.logger.Info("Booking finished",
		zap.Int64("booking_id", bookingID),
		zap.String("status", string(to)),
	)
	return booking, nil
}

// ExpireStaleHolds снимает брони pending_payment старше TTL холда
func (s *BookingService) ExpireStaleHolds(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.PaymentHoldTTL)

	expired, err := s.bookings.ExpirePendingBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire pending bookings: %w", err)
	}

	for _, b := range expired {
		doctor, err := s.doctors.GetByID(ctx, b.DoctorID)
		if err != nil {
			s.logger.Warn("Failed to load doctor for expired hold", zap.Int64("booking_id", b.ID), zap.Error(err))
		}
		s.notify(ctx, notify.KindExpired, b, doctor, 0)
	}

	if len(expired) > 0 {
		s.logger.Info("Payment holds expired",
			zap.Int("count", len(expired)),
			zap.Time("cutoff", cutoff),
		)
	}
	s.metrics.ObserveExpiredHolds(len(expired))
	return len(expired), nil
}

func (s *BookingService) transition(ctx context.Context, booking *model.Booking, to model.BookingStatus) error {
	if !booking.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, to)
	}

	if err := s.bookings.UpdateStatus(ctx, booking.ID, booking.Status, to); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return fmt.Errorf("%w: booking %d changed concurrently", ErrInvalidTransition, booking.ID)
		}
		return fmt.Errorf("update booking status: %w", err)
	}

	booking.Status = to
	return nil
}

// doctorsBooking загружает бронь и проверяет, что она принадлежит врачу
func (s *BookingService) doctorsBooking(ctx context.Context, bookingID, doctorID int64) (*model.Booking, *model.Doctor, error) {
	booking, err := s.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if booking.DoctorID != doctorID {
		return nil, nil, ErrNotOwner
	}

	doctor, err := s.getDoctor(ctx, doctorID)
	if err != nil {
		return nil, nil, err
	}
	return booking, doctor, nil
}

func (s *BookingService) getDoctor(ctx context.Context, doctorID int64) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}

// loadDay читает из хранилища правила, исключения и брони врача на дату
func (s *BookingService) loadDay(ctx context.Context, doctor *model.Doctor, date time.Time, consultationType model.ConsultationType) (availability.Day, error) {
	date = model.DateOf(date)

	rules, err := s.rules.ListActiveForWeekday(ctx, doctor.ID, date.Weekday())
	if err != nil {
		return availability.Day{}, fmt.Errorf("get schedule rules: %w", err)
	}

	overrides, err := s.overrides.ListForDate(ctx, doctor.ID, date)
	if err != nil {
		return availability.Day{}, fmt.Errorf("get overrides: %w", err)
	}

	bookings, err := s.bookings.ListBlockingForDate(ctx, doctor.ID, date)
	if err != nil {
		return availability.Day{}, fmt.Errorf("get bookings: %w", err)
	}

	return availability.Day{
		Date:               date,
		Location:           doctor.Location(),
		ConsultationType:   consultationType,
		Rules:              rules,
		Overrides:          overrides,
		Bookings:           bookings,
		DefaultSlotMinutes: doctor.DefaultSlotMinutes,
		Now:                s.now(),
		MinLeadTime:        s.cfg.MinLeadTime,
	}, nil
}

func (s *BookingService) hoursUntil(booking *model.Booking, doctor *model.Doctor) float64 {
	return refund.HoursUntil(booking.StartsAt(doctor.Location()), s.now())
}

func (s *BookingService) notify(ctx context.Context, kind notify.Kind, booking *model.Booking, doctor *model.Doctor, refundCents int64) {
	if s.notifier == nil {
		return
	}

	err := s.notifier.Notify(ctx, notify.Event{
		Kind:        kind,
		Booking:     booking,
		Doctor:      doctor,
		RefundCents: refundCents,
	})
	if err != nil {
		s.logger.Warn("Failed to send notification",
			zap.Int64("booking_id", booking.ID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func reservationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrPastSlot):
		return "past"
	case errors.Is(err, ErrNotOffered):
		return "not_offered"
	case errors.Is(err, ErrInvalidConsultationType):
		return "invalid_consultation_type"
	case errors.Is(err, ErrDoctorNotFound):
		return "doctor_not_found"
	default:
		return "error"
	}
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/medbook/internal/model"
)

// Порты хранилища. internal/repository реализует их на Postgres и Redis,
// internal/repository/memstore - в памяти.

type DoctorStore interface {
	Create(ctx context.Context, d *model.Doctor) error
	GetByID(ctx context.Context, id int64) (*model.Doctor, error)
	List(ctx context.Context) ([]*model.Doctor, error)
	Update(ctx context.Context, d *model.Doctor) error
}

type ScheduleRuleStore interface {
	CreateGroup(ctx context.Context, rules []*model.ScheduleRule) error
	GetByID(ctx context.Context, id int64) (*model.ScheduleRule, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]*model.ScheduleRule, error)
	ListActiveForWeekday(ctx context.Context, doctorID int64, weekday time.Weekday) ([]*model.ScheduleRule, error)
	ListByGroupID(ctx context.Context, groupID uuid.UUID) ([]*model.ScheduleRule, error)
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	DeleteByGroupID(ctx context.Context, groupID uuid.UUID) error
}

type OverrideStore interface {
	Create(ctx context.Context, o *model.AvailabilityOverride) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilityOverride, error)
	ListForDate(ctx context.Context, doctorID int64, date time.Time) ([]*model.AvailabilityOverride, error)
	ListBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]*model.AvailabilityOverride, error)
	Delete(ctx context.Context, id int64) error
}

// BookingStore хранит брони. CreateIfFree атомарен: из двух параллельных вызовов
// на пересекающиеся окна одного врача успешен максимум один, второй возвращает
// repository.ErrBookingOverlap.
type BookingStore interface {
	CreateIfFree(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error)
	ListBlockingForDate(ctx context.Context, doctorID int64, date time.Time) ([]*model.Booking, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error
	RecordCancellation(ctx context.Context, id int64, from, to model.BookingStatus, percent int, refundCents int64) error
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]*model.Booking, error)
}

// IdempotencyStore кэширует, какую бронь создал ключ запроса.
// Источник истины - таблица bookings.
type IdempotencyStore interface {
	Lookup(ctx context.Context, key string) (bookingID int64, found bool, err error)
	Remember(ctx context.Context, key string, bookingID int64) (bool, error)
}

// Refunder возвращает деньги пациенту через платёжного провайдера
type Refunder interface {
	Refund(ctx context.Context, b *model.Booking, amountCents int64) error
}

// Stores группирует порты хранилища для сервисов
type Stores struct {
	Doctors     DoctorStore
	Rules       ScheduleRuleStore
	Overrides   OverrideStore
	Bookings    BookingStore
	Idempotency IdempotencyStore // optional
}

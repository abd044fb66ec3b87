package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/repository"
)

type Bookings struct {
	s *Store
}

// CreateIfFree checks for overlaps and inserts under the store's write lock
func (b *Bookings) CreateIfFree(_ context.Context, booking *model.Booking) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	for _, existing := range b.s.bookings {
		if existing.DoctorID != booking.DoctorID ||
			!model.SameDate(existing.AppointmentDate, booking.AppointmentDate) ||
			!existing.Status.IsBlocking() {
			continue
		}
		if existing.Overlaps(booking.StartTime, booking.EndTime) {
			return repository.ErrBookingOverlap
		}
	}

	if booking.IdempotencyKey != nil {
		for _, existing := range b.s.bookings {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *booking.IdempotencyKey {
				return repository.ErrDuplicateRequest
			}
		}
	}

	now := b.s.now()
	booking.ID = b.s.id()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	b.s.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func (b *Bookings) GetByID(_ context.Context, id int64) (*model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	booking, ok := b.s.bookings[id]
	if !ok {
		return nil, nil
	}
	booking = copyBooking(booking)
	return &booking, nil
}

func (b *Bookings) GetByIdempotencyKey(_ context.Context, key string) (*model.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	for _, booking := range b.s.bookings {
		if booking.IdempotencyKey != nil && *booking.IdempotencyKey == key {
			booking = copyBooking(booking)
			return &booking, nil
		}
	}
	return nil, nil
}

func (b *Bookings) ListBlockingForDate(_ context.Context, doctorID int64, date time.Time) ([]*model.Booking, error) {
	return b.filter(func(booking model.Booking) bool {
		return booking.DoctorID == doctorID &&
			model.SameDate(booking.AppointmentDate, date) &&
			booking.Status.IsBlocking()
	}, func(x, y *model.Booking) bool { return x.StartTime < y.StartTime }), nil
}

func (b *Bookings) ListByPatient(_ context.Context, patientID int64) ([]*model.Booking, error) {
	return b.filter(func(booking model.Booking) bool {
		return booking.PatientID == patientID
	}, func(x, y *model.Booking) bool {
		if !x.AppointmentDate.Equal(y.AppointmentDate) {
			return x.AppointmentDate.After(y.AppointmentDate)
		}
		return x.StartTime > y.StartTime
	}), nil
}

func (b *Bookings) UpdateStatus(_ context.Context, id int64, from, to model.BookingStatus) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	booking, ok := b.s.bookings[id]
	if !ok || booking.Status != from {
		return repository.ErrStatusChanged
	}
	booking.Status = to
	booking.UpdatedAt = b.s.now()
	b.s.bookings[id] = booking
	return nil
}

func (b *Bookings) RecordCancellation(_ context.Context, id int64, from, to model.BookingStatus, percent int, refundCents int64) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	booking, ok := b.s.bookings[id]
	if !ok || booking.Status != from {
		return repository.ErrStatusChanged
	}
	booking.Status = to
	booking.RefundPercent = percent
	booking.RefundCents = refundCents
	booking.UpdatedAt = b.s.now()
	b.s.bookings[id] = booking
	return nil
}

func (b *Bookings) ExpirePendingBefore(_ context.Context, cutoff time.Time) ([]*model.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	now := b.s.now()
	var expired []*model.Booking
	for id, booking := range b.s.bookings {
		if booking.Status != model.BookingStatusPendingPayment || !booking.CreatedAt.Before(cutoff) {
			continue
		}
		booking.Status = model.BookingStatusCancelledBySystem
		booking.UpdatedAt = now
		b.s.bookings[id] = booking

		out := copyBooking(booking)
		expired = append(expired, &out)
	}
	sortByID(expired, func(b *model.Booking) int64 { return b.ID })
	return expired, nil
}

func (b *Bookings) filter(keep func(model.Booking) bool, less func(x, y *model.Booking) bool) []*model.Booking {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	var out []*model.Booking
	for _, booking := range b.s.bookings {
		booking := booking
		if keep(booking) {
			booking = copyBooking(booking)
			out = append(out, &booking)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func copyBooking(b model.Booking) model.Booking {
	if b.IdempotencyKey != nil {
		key := *b.IdempotencyKey
		b.IdempotencyKey = &key
	}
	return b
}

// Idempotency is the in-memory counterpart of repository.IdempotencyStore, keys never expire
type Idempotency struct {
	s *Store
}

func (i *Idempotency) Lookup(_ context.Context, key string) (int64, bool, error) {
	i.s.mu.RLock()
	defer i.s.mu.RUnlock()

	id, ok := i.s.keys[key]
	return id, ok, nil
}

func (i *Idempotency) Remember(_ context.Context, key string, bookingID int64) (bool, error) {
	i.s.mu.Lock()
	defer i.s.mu.Unlock()

	if _, ok := i.s.keys[key]; ok {
		return false, nil
	}
	i.s.keys[key] = bookingID
	return true, nil
}

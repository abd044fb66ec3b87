package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/notify"
	"github.com/Freeeeeet/medbook/internal/repository/memstore"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeRefunder struct {
	mu      sync.Mutex
	err     error
	refunds map[int64]int64
}

func (r *fakeRefunder) Refund(_ context.Context, b *model.Booking, amountCents int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if r.refunds == nil {
		r.refunds = make(map[int64]int64)
	}
	r.refunds[b.ID] += amountCents
	return nil
}

type fixture struct {
	now      time.Time
	store    *memstore.Store
	stores   Stores
	bookings *BookingService
	schedule *ScheduleService
	notifier *recordingNotifier
	refunder *fakeRefunder
	doctor   *model.Doctor
	monday   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		// Sunday morning before the Monday under test
		now:      time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		notifier: &recordingNotifier{},
		refunder: &fakeRefunder{},
	}
	clock := func() time.Time { return f.now }

	f.store = memstore.NewWithClock(clock)
	f.stores = Stores{
		Doctors:     f.store.Doctors(),
		Rules:       f.store.Rules(),
		Overrides:   f.store.Overrides(),
		Bookings:    f.store.Bookings(),
		Idempotency: f.store.Idempotency(),
	}

	logger := zap.NewNop()
	f.bookings = NewBookingService(f.stores, f.notifier,
		BookingConfig{PaymentHoldTTL: 15 * time.Minute},
		logger,
		WithClock(clock),
		WithRefunder(f.refunder),
	)
	f.schedule = NewScheduleService(f.stores, logger)

	doctor, err := NewDoctorService(f.stores.Doctors, logger).RegisterDoctor(context.Background(), &model.Doctor{
		FullName:             "Dr. Ada",
		CancellationPolicy:   model.PolicyModerate,
		DefaultSlotMinutes:   30,
		ConsultationFeeCents: 10000,
		Timezone:             "UTC",
	})
	require.NoError(t, err)
	f.doctor = doctor

	f.monday, err = model.ParseDate("2026-03-02")
	require.NoError(t, err)

	f.addRule(t, model.ConsultationBoth)
	return f
}

// addRule opens Monday 09:00-12:00 in 30 minute slots
func (f *fixture) addRule(t *testing.T, consultationType model.ConsultationType) {
	t.Helper()
	_, _, err := f.schedule.CreateRuleGroup(context.Background(), RuleGroupRequest{
		DoctorID:            f.doctor.ID,
		Weekdays:            []int{int(time.Monday)},
		StartTime:           model.NewTimeOfDay(9, 0, 0),
		EndTime:             model.NewTimeOfDay(12, 0, 0),
		SlotDurationMinutes: 30,
		ConsultationType:    consultationType,
	})
	require.NoError(t, err)
}

func (f *fixture) request(hour, minute int) ReserveRequest {
	start := model.NewTimeOfDay(hour, minute, 0)
	return ReserveRequest{
		DoctorID:         f.doctor.ID,
		PatientID:        42,
		Date:             f.monday,
		Start:            start,
		End:              start.Add(30 * time.Minute),
		ConsultationType: model.ConsultationInPerson,
	}
}

func (f *fixture) reservePaid(t *testing.T, hour, minute int) *model.Booking {
	t.Helper()
	ctx := context.Background()
	b, err := f.bookings.ValidateAndReserve(ctx, f.request(hour, minute))
	require.NoError(t, err)
	b, err = f.bookings.HandlePaymentEvent(ctx, b.ID, true)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusConfirmed, b.Status)
	return b
}

func TestComputeAvailableSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	slots, err := f.bookings.ComputeAvailableSlots(ctx, f.doctor.ID, f.monday, model.ConsultationInPerson, false)
	require.NoError(t, err)
	require.Len(t, slots, 6)
	assert.Equal(t, "09:00:00", slots[0].Start.String())
	assert.Equal(t, "12:00:00", slots[5].End.String())

	f.reservePaid(t, 10, 0)

	slots, err = f.bookings.ComputeAvailableSlots(ctx, f.doctor.ID, f.monday, model.ConsultationInPerson, false)
	require.NoError(t, err)
	require.Len(t, slots, 5)
	for _, s := range slots {
		assert.NotEqual(t, model.NewTimeOfDay(10, 0, 0), s.Start)
	}

	all, err := f.bookings.ComputeAvailableSlots(ctx, f.doctor.ID, f.monday, model.ConsultationInPerson, true)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.False(t, all[2].IsAvailable)
}

func TestComputeAvailableSlots_BlockedDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.schedule.CreateOverride(ctx, OverrideRequest{DoctorID: f.doctor.ID, Date: f.monday, IsBlocked: true, Reason: "conference"})
	require.NoError(t, err)

	slots, err := f.bookings.ComputeAvailableSlots(ctx, f.doctor.ID, f.monday, model.ConsultationInPerson, true)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestComputeAvailableSlots_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bookings.ComputeAvailableSlots(ctx, 999, f.monday, model.ConsultationVideo, false)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = f.bookings.ComputeAvailableSlots(ctx, f.doctor.ID, f.monday, "phone", false)
	assert.ErrorIs(t, err, ErrInvalidConsultationType)
}

func TestValidateAndReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bookings.ValidateAndReserve(ctx, f.request(9, 30))
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, model.BookingStatusPendingPayment, b.Status)
	assert.Equal(t, int64(10000), b.AmountCents)
	assert.Equal(t, []notify.Kind{notify.KindReserved}, f.notifier.kinds())

	// a pending_payment hold blocks the slot
	_, err = f.bookings.ValidateAndReserve(ctx, f.request(9, 30))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestValidateAndReserve_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	misaligned := f.request(9, 15)
	_, err := f.bookings.ValidateAndReserve(ctx, misaligned)
	assert.ErrorIs(t, err, ErrNotOffered)

	outside := f.request(13, 0)
	_, err = f.bookings.ValidateAndReserve(ctx, outside)
	assert.ErrorIs(t, err, ErrNotOffered)

	long := f.request(9, 0)
	long.End = model.NewTimeOfDay(10, 0, 0)
	_, err = f.bookings.ValidateAndReserve(ctx, long)
	assert.ErrorIs(t, err, ErrNotOffered)

	both := f.request(9, 0)
	both.ConsultationType = model.ConsultationBoth
	_, err = f.bookings.ValidateAndReserve(ctx, both)
	assert.ErrorIs(t, err, ErrInvalidConsultationType)

	unknown := f.request(9, 0)
	unknown.DoctorID = 999
	_, err = f.bookings.ValidateAndReserve(ctx, unknown)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestValidateAndReserve_Past(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)

	_, err := f.bookings.ValidateAndReserve(context.Background(), f.request(10, 0))
	assert.ErrorIs(t, err, ErrPastSlot)

	_, err = f.bookings.ValidateAndReserve(context.Background(), f.request(10, 30))
	assert.NoError(t, err)
}

func TestValidateAndReserve_WrongConsultationType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Monday evening is video only
	_, _, err := f.schedule.CreateRuleGroup(ctx, RuleGroupRequest{
		DoctorID:            f.doctor.ID,
		Weekdays:            []int{int(time.Monday)},
		StartTime:           model.NewTimeOfDay(18, 0, 0),
		EndTime:             model.NewTimeOfDay(19, 0, 0),
		SlotDurationMinutes: 30,
		ConsultationType:    model.ConsultationVideo,
	})
	require.NoError(t, err)

	_, err = f.bookings.ValidateAndReserve(ctx, f.request(18, 0))
	assert.ErrorIs(t, err, ErrInvalidConsultationType)

	video := f.request(18, 0)
	video.ConsultationType = model.ConsultationVideo
	_, err = f.bookings.ValidateAndReserve(ctx, video)
	assert.NoError(t, err)
}

func TestValidateAndReserve_ConcurrentRequestsBookOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const patients = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < patients; i++ {
		wg.Add(1)
		go func(patientID int64) {
			defer wg.Done()
			req := f.request(11, 0)
			req.PatientID = patientID
			_, err := f.bookings.ValidateAndReserve(ctx, req)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, patients-1, conflicts)

	blocking, err := f.stores.Bookings.ListBlockingForDate(ctx, f.doctor.ID, f.monday)
	require.NoError(t, err)
	assert.Len(t, blocking, 1)
}

func TestValidateAndReserve_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.request(9, 0)
	req.IdempotencyKey = "checkout-1"

	first, err := f.bookings.ValidateAndReserve(ctx, req)
	require.NoError(t, err)

	retry, err := f.bookings.ValidateAndReserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)

	// another patient cannot reuse the key to steal the booking
	other := req
	other.PatientID = 7
	_, err = f.bookings.ValidateAndReserve(ctx, other)
	assert.ErrorIs(t, err, ErrConflict)
}

type brokenIdempotency struct {
	remembers int
}

func (b *brokenIdempotency) Lookup(context.Context, string) (int64, bool, error) {
	return 0, false, errors.New("redis: connection refused")
}

func (b *brokenIdempotency) Remember(context.Context, string, int64) (bool, error) {
	b.remembers++
	return false, errors.New("redis: connection refused")
}

// withIdempotency rebuilds the booking service over another idempotency cache
func (f *fixture) withIdempotency(cache IdempotencyStore) {
	stores := f.stores
	stores.Idempotency = cache
	f.bookings = NewBookingService(stores, f.notifier,
		BookingConfig{PaymentHoldTTL: 15 * time.Minute},
		zap.NewNop(),
		WithClock(func() time.Time { return f.now }),
		WithRefunder(f.refunder),
	)
}

func TestValidateAndReserve_IdempotencyKeyWithoutCache(t *testing.T) {
	tests := []struct {
		name  string
		cache IdempotencyStore
	}{
		{"no cache", nil},
		{"cache unavailable", &brokenIdempotency{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.withIdempotency(tt.cache)
			ctx := context.Background()

			req := f.request(9, 0)
			req.IdempotencyKey = "checkout-2"

			first, err := f.bookings.ValidateAndReserve(ctx, req)
			require.NoError(t, err)

			retry, err := f.bookings.ValidateAndReserve(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, first.ID, retry.ID)

			other := req
			other.PatientID = 7
			_, err = f.bookings.ValidateAndReserve(ctx, other)
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
}

func TestValidateAndReserve_IdempotencyKeyWarmsCache(t *testing.T) {
	f := newFixture(t)
	f.withIdempotency(nil)
	ctx := context.Background()

	req := f.request(9, 30)
	req.IdempotencyKey = "checkout-3"
	first, err := f.bookings.ValidateAndReserve(ctx, req)
	require.NoError(t, err)

	// the key was written while the cache was down
	cache := f.store.Idempotency()
	f.withIdempotency(cache)
	retry, err := f.bookings.ValidateAndReserve(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, retry.ID)

	id, found, err := cache.Lookup(ctx, "checkout-3")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, first.ID, id)
}

func TestValidateAndReserve_ConcurrentRetriesShareOneBooking(t *testing.T) {
	f := newFixture(t)
	f.withIdempotency(nil)
	ctx := context.Background()

	const retries = 8
	ids := make([]int64, retries)
	var wg sync.WaitGroup
	for i := 0; i < retries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := f.request(10, 30)
			req.IdempotencyKey = "checkout-4"
			b, err := f.bookings.ValidateAndReserve(ctx, req)
			if err != nil {
				t.Errorf("retry %d: %v", i, err)
				return
			}
			ids[i] = b.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	blocking, err := f.stores.Bookings.ListBlockingForDate(ctx, f.doctor.ID, f.monday)
	require.NoError(t, err)
	assert.Len(t, blocking, 1)
}

func TestHandlePaymentEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bookings.ValidateAndReserve(ctx, f.request(9, 0))
	require.NoError(t, err)

	paid, err := f.bookings.HandlePaymentEvent(ctx, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, paid.Status)

	// webhook replays are harmless
	again, err := f.bookings.HandlePaymentEvent(ctx, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, again.Status)

	_, err = f.bookings.HandlePaymentEvent(ctx, b.ID, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.bookings.HandlePaymentEvent(ctx, 999, true)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestHandlePaymentEvent_FailureReleasesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bookings.ValidateAndReserve(ctx, f.request(9, 0))
	require.NoError(t, err)

	failed, err := f.bookings.HandlePaymentEvent(ctx, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelledBySystem, failed.Status)

	req := f.request(9, 0)
	req.PatientID = 43
	_, err = f.bookings.ValidateAndReserve(ctx, req)
	assert.NoError(t, err)
}

func TestHandlePaymentEvent_ApprovalRequired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.doctor.RequiresBookingApproval = true
	require.NoError(t, f.stores.Doctors.Update(ctx, f.doctor))

	b, err := f.bookings.ValidateAndReserve(ctx, f.request(9, 0))
	require.NoError(t, err)

	pending, err := f.bookings.HandlePaymentEvent(ctx, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingApproval, pending.Status)

	_, err = f.bookings.ApproveBooking(ctx, b.ID, f.doctor.ID+1)
	assert.ErrorIs(t, err, ErrNotOwner)

	approved, err := f.bookings.ApproveBooking(ctx, b.ID, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusApproved, approved.Status)
	assert.Contains(t, f.notifier.kinds(), notify.KindAwaitingApproval)
}

func TestRejectBooking_RefundsInFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.doctor.RequiresBookingApproval = true
	require.NoError(t, f.stores.Doctors.Update(ctx, f.doctor))

	b, err := f.bookings.ValidateAndReserve(ctx, f.request(9, 0))
	require.NoError(t, err)
	_, err = f.bookings.HandlePaymentEvent(ctx, b.ID, true)
	require.NoError(t, err)

	result, err := f.bookings.RejectBooking(ctx, b.ID, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Quote.Percent)
	assert.Equal(t, int64(10000), result.Quote.RefundCents)
	assert.True(t, result.Refunded)
	assert.Equal(t, model.BookingStatusRefunded, result.Booking.Status)
}

func TestCancelBooking_PatientModeratePolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 30 hours before Monday 10:00
	f.now = time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	b := f.reservePaid(t, 10, 0)

	result, err := f.bookings.CancelBooking(ctx, b.ID, ActorPatient, 42)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, result.Quote.HoursUntil, 1e-9)
	assert.Equal(t, 50, result.Quote.Percent)
	assert.Equal(t, int64(5000), result.Quote.RefundCents)
	assert.True(t, result.Refunded)
	assert.Equal(t, model.BookingStatusRefunded, result.Booking.Status)
	assert.Equal(t, int64(5000), f.refunder.refunds[b.ID])

	stored, err := f.bookings.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stored.RefundPercent)
	assert.Equal(t, int64(5000), stored.RefundCents)

	// the slot is free again
	slots, err := f.bookings.ComputeAvailableSlots(ctx, f.doctor.ID, f.monday, model.ConsultationInPerson, false)
	require.NoError(t, err)
	assert.Len(t, slots, 6)
}

func TestCancelBooking_LateCancellationRefundsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.now = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	b := f.reservePaid(t, 10, 0)

	result, err := f.bookings.CancelBooking(ctx, b.ID, ActorPatient, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Quote.Percent)
	assert.False(t, result.Refunded)
	assert.Equal(t, model.BookingStatusCancelledByPatient, result.Booking.Status)
	assert.Empty(t, f.refunder.refunds)
}

func TestCancelBooking_DoctorRefundsInFull(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := f.reservePaid(t, 10, 0)

	_, err := f.bookings.CancelBooking(ctx, b.ID, ActorDoctor, f.doctor.ID+1)
	assert.ErrorIs(t, err, ErrNotOwner)

	result, err := f.bookings.CancelBooking(ctx, b.ID, ActorDoctor, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, result.Quote.Percent)
	assert.Equal(t, int64(10000), result.Quote.RefundCents)
	assert.True(t, result.Refunded)
}

func TestCancelBooking_UnpaidHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.bookings.ValidateAndReserve(ctx, f.request(9, 0))
	require.NoError(t, err)

	result, err := f.bookings.CancelBooking(ctx, b.ID, ActorPatient, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Quote.RefundCents)
	assert.False(t, result.Refunded)
	assert.Equal(t, model.BookingStatusCancelledByPatient, result.Booking.Status)

	_, err = f.bookings.CancelBooking(ctx, b.ID, ActorPatient, 42)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCancelBooking_RefundFailureKeepsDecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.refunder.err = errors.New("provider down")

	b := f.reservePaid(t, 10, 0)

	// 26 hours ahead on the moderate tier
	result, err := f.bookings.CancelBooking(ctx, b.ID, ActorPatient, 42)
	require.NoError(t, err)
	assert.False(t, result.Refunded)
	assert.Equal(t, 50, result.Quote.Percent)

	stored, err := f.bookings.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelledByPatient, stored.Status)
	assert.Equal(t, int64(5000), stored.RefundCents)
}

func TestCompleteAndNoShow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.reservePaid(t, 9, 0)
	second := f.reservePaid(t, 9, 30)

	_, err := f.bookings.CompleteBooking(ctx, first.ID, f.doctor.ID)
	assert.ErrorIs(t, err, ErrNotStarted)

	f.now = time.Date(2026, 3, 2, 9, 45, 0, 0, time.UTC)

	done, err := f.bookings.CompleteBooking(ctx, first.ID, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, done.Status)

	missed, err := f.bookings.MarkNoShow(ctx, second.ID, f.doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusNoShow, missed.Status)

	_, err = f.bookings.CancelBooking(ctx, first.ID, ActorPatient, 42)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestExpireStaleHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale, err := f.bookings.ValidateAndReserve(ctx, f.request(9, 0))
	require.NoError(t, err)
	f.reservePaid(t, 9, 30)

	f.now = f.now.Add(10 * time.Minute)
	fresh, err := f.bookings.ValidateAndReserve(ctx, f.request(10, 0))
	require.NoError(t, err)

	f.now = f.now.Add(6 * time.Minute)
	n, err := f.bookings.ExpireStaleHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.bookings.GetBooking(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelledBySystem, got.Status)

	got, err = f.bookings.GetBooking(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPendingPayment, got.Status)
	assert.Contains(t, f.notifier.kinds(), notify.KindExpired)

	slots, err := f.bookings.ComputeAvailableSlots(ctx, f.doctor.ID, f.monday, model.ConsultationInPerson, false)
	require.NoError(t, err)
	assert.Len(t, slots, 4)
}

func TestListPatientBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.reservePaid(t, 9, 0)
	f.reservePaid(t, 11, 0)

	bookings, err := f.bookings.ListPatientBookings(ctx, 42)
	require.NoError(t, err)
	require.Len(t, bookings, 2)
	assert.Equal(t, model.NewTimeOfDay(11, 0, 0), bookings[0].StartTime)
}

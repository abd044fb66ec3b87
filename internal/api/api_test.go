package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/metrics"
	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/notify"
	"github.com/Freeeeeet/medbook/internal/repository/memstore"
	"github.com/Freeeeeet/medbook/internal/service"
)

type testServer struct {
	t      *testing.T
	router http.Handler

	mu  sync.Mutex
	now time.Time
}

// Sunday 08:00 UTC, the day before the Monday under test
var testNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ts := &testServer{t: t, now: testNow}
	clock := func() time.Time {
		ts.mu.Lock()
		defer ts.mu.Unlock()
		return ts.now
	}

	logger := zap.NewNop()
	store := memstore.NewWithClock(clock)
	stores := service.Stores{
		Doctors:     store.Doctors(),
		Rules:       store.Rules(),
		Overrides:   store.Overrides(),
		Bookings:    store.Bookings(),
		Idempotency: store.Idempotency(),
	}

	reg := prometheus.NewRegistry()
	bookings := service.NewBookingService(stores, notify.NewLogNotifier(logger), service.BookingConfig{
		PaymentHoldTTL: 15 * time.Minute,
	}, logger,
		service.WithClock(clock),
		service.WithMetrics(metrics.NewBookingMetrics(reg)),
	)

	ts.router = NewRouter(Config{
		Bookings:       bookings,
		Schedule:       service.NewScheduleService(stores, logger),
		Doctors:        service.NewDoctorService(store.Doctors(), logger),
		Logger:         logger,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return ts
}

func (ts *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}

// seedDoctor registers a moderate-policy doctor working Mondays 09:00-12:00 in 30 minute slots
func (ts *testServer) seedDoctor(requiresApproval bool) int64 {
	ts.t.Helper()

	rr := ts.do(http.MethodPost, "/v1/doctors", map[string]any{
		"full_name":                 "Dr. House",
		"cancellation_policy":       "moderate",
		"consultation_fee_cents":    10000,
		"requires_booking_approval": requiresApproval,
	})
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	doctor := decode[model.Doctor](ts.t, rr)

	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/doctors/%d/rules", doctor.ID), map[string]any{
		"weekdays":              []int{1},
		"start_time":            "09:00",
		"end_time":              "12:00",
		"slot_duration_minutes": 30,
		"consultation_type":     "both",
	})
	require.Equal(ts.t, http.StatusCreated, rr.Code, rr.Body.String())
	return doctor.ID
}

func (ts *testServer) reserve(doctorID, patientID int64, start, end string, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	return ts.do(http.MethodPost, fmt.Sprintf("/v1/doctors/%d/reservations", doctorID), map[string]any{
		"patient_id":        patientID,
		"date":              "2026-03-02",
		"start":             start,
		"end":               end,
		"consultation_type": "in_person",
	}, headers...)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestListSlots(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	rr := ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/slots?date=2026-03-02&consultation_type=video", doctorID), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	slots := decode[[]map[string]any](t, rr)
	require.Len(t, slots, 6)
	assert.Equal(t, "09:00:00", slots[0]["slot_start"])
	assert.Equal(t, "09:30:00", slots[0]["slot_end"])
	assert.Equal(t, true, slots[0]["is_available"])
	assert.Equal(t, "11:30:00", slots[5]["slot_start"])

	// Tuesday has no rules
	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/slots?date=2026-03-03", doctorID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestListSlots_BadInput(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	rr := ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/slots?date=02.03.2026", doctorID), nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodGet, "/v1/doctors/abc/slots?date=2026-03-02", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodGet, "/v1/doctors/999/slots?date=2026-03-02", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReserve(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	rr := ts.reserve(doctorID, 42, "10:00", "10:30")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	booking := decode[model.Booking](t, rr)
	assert.Equal(t, model.BookingStatusPendingPayment, booking.Status)
	assert.Equal(t, int64(10000), booking.AmountCents)

	rr = ts.reserve(doctorID, 43, "10:00", "10:30")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "conflict", decode[errorResponse](t, rr).Error)

	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/slots?date=2026-03-02&consultation_type=in_person", doctorID), nil)
	assert.Len(t, decode[[]model.Slot](t, rr), 5)
}

func TestReserve_Rejections(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	tests := []struct {
		name   string
		start  string
		end    string
		status int
		code   string
	}{
		{"misaligned start", "09:10", "09:40", http.StatusUnprocessableEntity, "not_offered"},
		{"outside working hours", "13:00", "13:30", http.StatusUnprocessableEntity, "not_offered"},
		{"end before start", "10:30", "10:00", http.StatusBadRequest, "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.reserve(doctorID, 42, tt.start, tt.end)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decode[errorResponse](t, rr).Error)
		})
	}
}

func TestReserve_PastSlot(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	ts.mu.Lock()
	ts.now = time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)
	ts.mu.Unlock()

	rr := ts.reserve(doctorID, 42, "10:00", "10:30")
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "past", decode[errorResponse](t, rr).Error)
}

func TestReserve_IdempotencyKey(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	first := ts.reserve(doctorID, 42, "09:00", "09:30", "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := ts.reserve(doctorID, 42, "09:00", "09:30", "Idempotency-Key", "retry-1")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	assert.Equal(t, decode[model.Booking](t, first).ID, decode[model.Booking](t, second).ID)
}

func TestPaymentAndCancel(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	booking := decode[model.Booking](t, ts.reserve(doctorID, 42, "10:00", "10:30"))

	rr := ts.do(http.MethodPost, "/v1/payments/events", map[string]any{
		"booking_id": booking.ID,
		"status":     "succeeded",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.BookingStatusConfirmed, decode[model.Booking](t, rr).Status)

	// Someone else's booking
	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", booking.ID), map[string]any{
		"actor":    "patient",
		"actor_id": 99,
	})
	require.Equal(t, http.StatusForbidden, rr.Code)

	// 26 hours ahead on the moderate tier
	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", booking.ID), map[string]any{
		"actor":    "patient",
		"actor_id": 42,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	cancellation := decode[service.Cancellation](t, rr)
	assert.Equal(t, 50, cancellation.Quote.Percent)
	assert.Equal(t, int64(5000), cancellation.Quote.RefundCents)
	assert.InDelta(t, 26.0, cancellation.Quote.HoursUntil, 0.001)
	assert.Equal(t, model.BookingStatusCancelledByPatient, cancellation.Booking.Status)

	// The slot is free again
	rr = ts.reserve(doctorID, 43, "10:00", "10:30")
	assert.Equal(t, http.StatusCreated, rr.Code)

	// Second cancel is not a valid transition
	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/cancel", booking.ID), map[string]any{
		"actor":    "patient",
		"actor_id": 42,
	})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "invalid_transition", decode[errorResponse](t, rr).Error)
}

func TestApprovalFlow(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(true)

	booking := decode[model.Booking](t, ts.reserve(doctorID, 42, "11:00", "11:30"))
	rr := ts.do(http.MethodPost, "/v1/payments/events", map[string]any{
		"booking_id": booking.ID,
		"status":     "succeeded",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.BookingStatusPendingApproval, decode[model.Booking](t, rr).Status)

	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/approve", booking.ID), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/approve", booking.ID), map[string]any{"doctor_id": doctorID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.BookingStatusApproved, decode[model.Booking](t, rr).Status)

	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/bookings/%d", booking.ID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.BookingStatusApproved, decode[model.Booking](t, rr).Status)

	// The appointment has not happened yet
	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/bookings/%d/complete", booking.ID), map[string]any{"doctor_id": doctorID})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestPaymentEvent_Validation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/v1/payments/events", map[string]any{"booking_id": 1, "status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, "/v1/payments/events", map[string]any{"booking_id": 1, "status": "failed"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRefundQuote(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/v1/refunds/quote?policy=moderate&hours=30&total_cents=10000", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	quote := decode[map[string]any](t, rr)
	assert.Equal(t, float64(50), quote["refund_percent"])
	assert.Equal(t, float64(5000), quote["refund_cents"])

	rr = ts.do(http.MethodGet, "/v1/refunds/quote?policy=lenient&hours=30&total_cents=10000", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	for _, hours := range []string{"NaN", "Inf", "-Inf", "1e400", "soon"} {
		rr = ts.do(http.MethodGet, "/v1/refunds/quote?policy=moderate&hours="+hours+"&total_cents=10000", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "hours=%s", hours)
	}

	// A negative lead time is a valid input and refunds nothing
	rr = ts.do(http.MethodGet, "/v1/refunds/quote?policy=moderate&hours=-2&total_cents=10000", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(0), decode[map[string]any](t, rr)["refund_percent"])
}

func TestOverrides(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	rr := ts.do(http.MethodPost, fmt.Sprintf("/v1/doctors/%d/overrides", doctorID), map[string]any{
		"date":       "2026-03-02",
		"is_blocked": true,
		"reason":     "conference",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	override := decode[model.AvailabilityOverride](t, rr)

	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/slots?date=2026-03-02", doctorID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/overrides?date=2026-03-02", doctorID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.AvailabilityOverride](t, rr), 1)

	// Another doctor cannot remove it
	otherID := ts.seedDoctor(false)
	rr = ts.do(http.MethodDelete, fmt.Sprintf("/v1/doctors/%d/overrides/%d", otherID, override.ID), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(http.MethodDelete, fmt.Sprintf("/v1/doctors/%d/overrides/%d", doctorID, override.ID), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/slots?date=2026-03-02", doctorID), nil)
	assert.Len(t, decode[[]model.Slot](t, rr), 6)
}

func TestRuleGroups(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	rr := ts.do(http.MethodPost, fmt.Sprintf("/v1/doctors/%d/rules", doctorID), map[string]any{
		"weekdays":              []int{2, 4},
		"start_time":            "14:00",
		"end_time":              "13:00",
		"slot_duration_minutes": 30,
		"consultation_type":     "video",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(http.MethodPost, fmt.Sprintf("/v1/doctors/%d/rules", doctorID), map[string]any{
		"weekdays":              []int{2, 4},
		"start_time":            "14:00",
		"end_time":              "16:00",
		"slot_duration_minutes": 60,
		"consultation_type":     "video",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	group := decode[ruleGroupResponse](t, rr)
	require.Len(t, group.Rules, 2)

	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/rules", doctorID), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.ScheduleRule](t, rr), 3)

	rr = ts.do(http.MethodDelete, fmt.Sprintf("/v1/doctors/%d/rule-groups/%s", doctorID, group.GroupID), nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(http.MethodGet, fmt.Sprintf("/v1/doctors/%d/rules", doctorID), nil)
	assert.Len(t, decode[[]model.ScheduleRule](t, rr), 1)
}

func TestDoctors(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/v1/doctors", map[string]any{
		"full_name":           "Dr. Who",
		"cancellation_policy": "lenient",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	doctorID := ts.seedDoctor(false)

	rr = ts.do(http.MethodPut, fmt.Sprintf("/v1/doctors/%d", doctorID), map[string]any{
		"full_name":              "Dr. House",
		"cancellation_policy":    "strict",
		"default_slot_minutes":   20,
		"consultation_fee_cents": 15000,
		"timezone":               "UTC",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.PolicyStrict, decode[model.Doctor](t, rr).CancellationPolicy)

	rr = ts.do(http.MethodGet, "/v1/doctors", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Doctor](t, rr), 1)

	rr = ts.do(http.MethodGet, "/v1/doctors/404", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatientBookingsAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	doctorID := ts.seedDoctor(false)

	require.Equal(t, http.StatusCreated, ts.reserve(doctorID, 42, "09:00", "09:30").Code)
	require.Equal(t, http.StatusCreated, ts.reserve(doctorID, 42, "11:00", "11:30").Code)
	require.Equal(t, http.StatusConflict, ts.reserve(doctorID, 43, "09:00", "09:30").Code)

	rr := ts.do(http.MethodGet, "/v1/patients/42/bookings", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Booking](t, rr), 2)

	rr = ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `medbook_booking_reservations_total{outcome="conflict"} 1`)
	assert.Contains(t, rr.Body.String(), `medbook_booking_reservations_total{outcome="reserved"} 2`)
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters and histograms for the booking flows.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	reservations    *prometheus.CounterVec
	cancellations   *prometheus.CounterVec
	refundedCents   prometheus.Counter
	expiredHolds    prometheus.Counter
	slotComputation prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome",
		}, []string{"outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "cancellations_total",
			Help:      "Cancelled bookings by actor and refund percent",
		}, []string{"actor", "refund_percent"}),
		refundedCents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "refunded_cents_total",
			Help:      "Sum of refunded amounts in cents",
		}),
		expiredHolds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbook",
			Subsystem: "booking",
			Name:      "expired_holds_total",
			Help:      "Payment holds released by the sweeper",
		}),
		slotComputation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medbook",
			Subsystem: "slots",
			Name:      "compute_seconds",
			Help:      "Latency of loading state and computing a day of slots",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reservations, m.cancellations, m.refundedCents, m.expiredHolds, m.slotComputation)
	return m
}

// ObserveReservation counts one reserve attempt; outcome is "reserved", "replayed" or an error kind
func (m *BookingMetrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveCancellation(actor string, percent int, refundCents int64) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(actor, percentLabel(percent)).Inc()
	if refundCents > 0 {
		m.refundedCents.Add(float64(refundCents))
	}
}

func (m *BookingMetrics) ObserveExpiredHolds(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.expiredHolds.Add(float64(n))
}

func (m *BookingMetrics) ObserveSlotComputation(d time.Duration) {
	if m == nil {
		return
	}
	m.slotComputation.Observe(d.Seconds())
}

func percentLabel(p int) string {
	switch {
	case p >= 100:
		return "100"
	case p <= 0:
		return "0"
	case p == 50:
		return "50"
	default:
		return "partial"
	}
}

package model

import "time"

type BookingStatus string

const (
	BookingStatusPendingPayment     BookingStatus = "pending_payment"  // slot held until payment is captured
	BookingStatusPendingApproval    BookingStatus = "pending_approval" // paid, waiting for the doctor
	BookingStatusConfirmed          BookingStatus = "confirmed"
	BookingStatusApproved           BookingStatus = "approved"
	BookingStatusRejected           BookingStatus = "rejected"
	BookingStatusCancelledByPatient BookingStatus = "cancelled_by_patient"
	BookingStatusCancelledByDoctor  BookingStatus = "cancelled_by_doctor"
	BookingStatusCancelledBySystem  BookingStatus = "cancelled_by_system" // payment failed or hold expired
	BookingStatusCompleted          BookingStatus = "completed"
	BookingStatusNoShow             BookingStatus = "no_show"
	BookingStatusRefunded           BookingStatus = "refunded"
)

// blockingStatuses occupy the booked window
var blockingStatuses = []BookingStatus{
	BookingStatusPendingPayment,
	BookingStatusPendingApproval,
	BookingStatusConfirmed,
	BookingStatusApproved,
	BookingStatusCompleted,
}

var transitions = map[BookingStatus][]BookingStatus{
	BookingStatusPendingPayment: {
		BookingStatusConfirmed,
		BookingStatusPendingApproval,
		BookingStatusCancelledByPatient,
		BookingStatusCancelledBySystem,
	},
	BookingStatusPendingApproval: {
		BookingStatusApproved,
		BookingStatusRejected,
		BookingStatusCancelledByPatient,
		BookingStatusCancelledByDoctor,
	},
	BookingStatusConfirmed: {
		BookingStatusCancelledByPatient,
		BookingStatusCancelledByDoctor,
		BookingStatusCompleted,
		BookingStatusNoShow,
	},
	BookingStatusApproved: {
		BookingStatusCancelledByPatient,
		BookingStatusCancelledByDoctor,
		BookingStatusCompleted,
		BookingStatusNoShow,
	},
	BookingStatusCancelledByPatient: {BookingStatusRefunded},
	BookingStatusCancelledByDoctor:  {BookingStatusRefunded},
	BookingStatusRejected:           {BookingStatusRefunded},
}

// IsBlocking reports whether a booking in status s prevents other bookings of its window
func (s BookingStatus) IsBlocking() bool {
	for _, b := range blockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BlockingStatusNames returns the blocking set as plain strings for SQL parameters
func BlockingStatusNames() []string {
	names := make([]string, 0, len(blockingStatuses))
	for _, s := range blockingStatuses {
		names = append(names, string(s))
	}
	return names
}

type Booking struct {
	ID               int64            `json:"id"`
	DoctorID         int64            `json:"doctor_id"`
	PatientID        int64            `json:"patient_id"`
	AppointmentDate  time.Time        `json:"appointment_date"`
	StartTime        TimeOfDay        `json:"start_time"`
	EndTime          TimeOfDay        `json:"end_time"`
	ConsultationType ConsultationType `json:"consultation_type"`
	Status           BookingStatus    `json:"status"`
	AmountCents      int64            `json:"amount_cents"`
	RefundPercent    int              `json:"refund_percent"`
	RefundCents      int64            `json:"refund_cents"`
	IdempotencyKey   *string          `json:"-"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Overlaps reports whether the booking's [start, end) intersects [start, end)
func (b *Booking) Overlaps(start, end TimeOfDay) bool {
	return b.StartTime < end && start < b.EndTime
}

// StartsAt returns the appointment start in loc
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	return At(b.AppointmentDate, b.StartTime, loc)
}

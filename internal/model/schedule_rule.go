package model

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationType string

const (
	ConsultationInPerson ConsultationType = "in_person"
	ConsultationVideo    ConsultationType = "video"
	ConsultationBoth     ConsultationType = "both"
)

// Valid reports whether c is one of the known consultation types
func (c ConsultationType) Valid() bool {
	switch c {
	case ConsultationInPerson, ConsultationVideo, ConsultationBoth:
		return true
	}
	return false
}

// Bookable reports whether a patient can request c for a booking.
// "both" only describes what a rule offers.
func (c ConsultationType) Bookable() bool {
	return c == ConsultationInPerson || c == ConsultationVideo
}

// Offers reports whether a rule of type c serves a request of type req.
// A "both" request matches every rule.
func (c ConsultationType) Offers(req ConsultationType) bool {
	return c == ConsultationBoth || req == ConsultationBoth || c == req
}

// ScheduleRule is one recurring weekly availability window of a doctor
type ScheduleRule struct {
	ID                  int64            `json:"id"`
	GroupID             uuid.UUID        `json:"group_id"` // rules created together share a group
	DoctorID            int64            `json:"doctor_id"`
	DayOfWeek           int              `json:"day_of_week"` // 0 = Sunday, 6 = Saturday
	StartTime           TimeOfDay        `json:"start_time"`
	EndTime             TimeOfDay        `json:"end_time"`
	SlotDurationMinutes int              `json:"slot_duration_minutes"`
	ConsultationType    ConsultationType `json:"consultation_type"`
	IsActive            bool             `json:"is_active"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// SlotDuration returns the rule slot length
func (r *ScheduleRule) SlotDuration() time.Duration {
	return time.Duration(r.SlotDurationMinutes) * time.Minute
}

// AppliesTo reports whether the rule generates windows on weekday for a request of type req
func (r *ScheduleRule) AppliesTo(weekday time.Weekday, req ConsultationType) bool {
	return r.IsActive && r.DayOfWeek == int(weekday) && r.ConsultationType.Offers(req)
}

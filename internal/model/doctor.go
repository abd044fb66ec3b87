package model

import "time"

type CancellationPolicy string

const (
	PolicyFlexible CancellationPolicy = "flexible"
	PolicyModerate CancellationPolicy = "moderate"
	PolicyStrict   CancellationPolicy = "strict"
)

// Valid reports whether p is a known policy tier
func (p CancellationPolicy) Valid() bool {
	return p == PolicyFlexible || p == PolicyModerate || p == PolicyStrict
}

type Doctor struct {
	ID                      int64              `json:"id"`
	FullName                string             `json:"full_name"`
	CancellationPolicy      CancellationPolicy `json:"cancellation_policy"`
	DefaultSlotMinutes      int                `json:"default_slot_minutes"` // used for ad-hoc override windows
	ConsultationFeeCents    int64              `json:"consultation_fee_cents"`
	RequiresBookingApproval bool               `json:"requires_booking_approval"`
	Timezone                string             `json:"timezone"`
	TelegramChatID          *int64             `json:"telegram_chat_id,omitempty"` // nil - no chat notifications
	CreatedAt               time.Time          `json:"created_at"`
}

// Location resolves the doctor's timezone, falling back to UTC
func (d *Doctor) Location() *time.Location {
	if d.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Package refund implements the cancellation policy ladders.
package refund

import (
	"time"

	"github.com/Freeeeeet/medbook/internal/model"
)

// step is one rung of a policy ladder: cancelling more than After hours ahead refunds Percent
type step struct {
	After   float64
	Percent int
}

// ladders are ordered from the longest notice down. Cutoffs are hard, no interpolation.
var ladders = map[model.CancellationPolicy][]step{
	model.PolicyFlexible: {{After: 24, Percent: 100}},
	model.PolicyModerate: {{After: 48, Percent: 100}, {After: 24, Percent: 50}},
	model.PolicyStrict:   {{After: 72, Percent: 100}},
}

// Percent returns the refund percentage (0-100) for cancelling hoursUntil hours
// before the appointment. Negative hours mean the appointment already started.
func Percent(policy model.CancellationPolicy, hoursUntil float64) int {
	for _, s := range ladders[policy] {
		if hoursUntil > s.After {
			return s.Percent
		}
	}
	return 0
}

// Amount applies percent to totalCents, rounding half up to whole cents
func Amount(totalCents int64, percent int) int64 {
	if totalCents <= 0 || percent <= 0 {
		return 0
	}
	if percent > 100 {
		percent = 100
	}
	return (totalCents*int64(percent) + 50) / 100
}

// HoursUntil returns the fractional hours from now until appointment
func HoursUntil(appointment, now time.Time) float64 {
	return appointment.Sub(now).Hours()
}

// Quote is a computed refund for a paid amount
type Quote struct {
	Policy      model.CancellationPolicy `json:"policy"`
	HoursUntil  float64                  `json:"hours_until_appointment"`
	Percent     int                      `json:"refund_percent"`
	TotalCents  int64                    `json:"total_cents"`
	RefundCents int64                    `json:"refund_cents"`
}

// NewQuote evaluates policy for a payment of totalCents
func NewQuote(policy model.CancellationPolicy, hoursUntil float64, totalCents int64) Quote {
	percent := Percent(policy, hoursUntil)
	return Quote{
		Policy:      policy,
		HoursUntil:  hoursUntil,
		Percent:     percent,
		TotalCents:  totalCents,
		RefundCents: Amount(totalCents, percent),
	}
}

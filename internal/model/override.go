package model

import "time"

// AvailabilityOverride is a one-off exception to the weekly schedule for a single date.
// A blocked override without a range closes the whole day; a blocked range is carved out;
// an unblocked range adds an ad-hoc window.
type AvailabilityOverride struct {
	ID        int64      `json:"id"`
	DoctorID  int64      `json:"doctor_id"`
	Date      time.Time  `json:"date"`
	IsBlocked bool       `json:"is_blocked"`
	StartTime *TimeOfDay `json:"start_time,omitempty"`
	EndTime   *TimeOfDay `json:"end_time,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// HasRange reports whether the override carries a time range
func (o *AvailabilityOverride) HasRange() bool {
	return o.StartTime != nil && o.EndTime != nil
}

// BlocksWholeDay reports whether the override closes the entire date
func (o *AvailabilityOverride) BlocksWholeDay() bool {
	return o.IsBlocked && !o.HasRange()
}

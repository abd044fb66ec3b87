package model

// Slot is a fixed-length bookable window on a given date
type Slot struct {
	Start       TimeOfDay `json:"slot_start"`
	End         TimeOfDay `json:"slot_end"`
	IsAvailable bool      `json:"is_available"`
}

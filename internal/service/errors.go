package service

import "errors"

var (
	ErrConflict                = errors.New("slot is already booked")
	ErrPastSlot                = errors.New("slot is in the past")
	ErrNotOffered              = errors.New("slot is not offered")
	ErrInvalidConsultationType = errors.New("consultation type is not offered for this slot")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrDoctorNotFound          = errors.New("doctor not found")
	ErrInvalidTransition       = errors.New("booking status transition not allowed")
	ErrInvalidSchedule         = errors.New("invalid schedule")
	ErrInvalidDoctor           = errors.New("invalid doctor")
	ErrRuleNotFound            = errors.New("schedule rule not found")
	ErrOverrideNotFound        = errors.New("availability override not found")
	ErrNotOwner                = errors.New("booking belongs to someone else")
	ErrNotStarted              = errors.New("appointment has not started yet")
)

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time in seconds since midnight.
// 24:00:00 is allowed so a window can end at midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// EndOfDay is midnight at the end of the day
const EndOfDay TimeOfDay = secondsPerDay

// NewTimeOfDay builds a TimeOfDay from hours, minutes and seconds
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60 + second)
}

// ParseTimeOfDay accepts "HH:MM" and "HH:MM:SS"
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}

	var h, m, sec int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil || len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if len(parts) == 3 {
		if _, err := fmt.Sscanf(parts[2], "%d", &sec); err != nil || len(parts[2]) != 2 {
			return 0, fmt.Errorf("invalid second in %q", s)
		}
	}

	if m < 0 || m > 59 || sec < 0 || sec > 59 || h < 0 || h > 24 {
		return 0, fmt.Errorf("time of day out of range: %q", s)
	}

	t := NewTimeOfDay(h, m, sec)
	if t > EndOfDay {
		return 0, fmt.Errorf("time of day out of range: %q", s)
	}
	return t, nil
}

// Valid reports whether t lies within [00:00:00, 24:00:00]
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= EndOfDay
}

// Add shifts t by d, truncated to whole seconds
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Second)
}

// Sub returns the duration between two times of day
func (t TimeOfDay) Sub(u TimeOfDay) time.Duration {
	return time.Duration(t-u) * time.Second
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(t)/3600, int(t)%3600/60, int(t)%60)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DateLayout is the ISO calendar date format used on the wire
const DateLayout = "2006-01-02"

// ParseDate parses an ISO date into midnight UTC
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// DateOf strips the clock part of t, keeping its calendar day
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate compares calendar days ignoring clock and location
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// At combines a calendar day and a wall-clock time in loc
func At(date time.Time, t TimeOfDay, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/3600, int(t)%3600/60, int(t)%60, 0, loc)
}

// Package availability turns a doctor's weekly rules, date overrides and existing
// bookings into the bookable slots of one date. It performs no I/O: callers load
// fresh state and pass it in, so the same inputs always produce the same slots.
package availability

import (
	"sort"
	"time"

	"github.com/Freeeeeet/medbook/internal/model"
)

// Day is everything the engine needs to lay out one date
type Day struct {
	Date             time.Time // calendar day, clock part ignored
	Location         *time.Location
	ConsultationType model.ConsultationType

	Rules     []*model.ScheduleRule
	Overrides []*model.AvailabilityOverride
	Bookings  []*model.Booking

	// DefaultSlotMinutes slices ad-hoc override windows, which carry no length of their own
	DefaultSlotMinutes int

	Now         time.Time
	MinLeadTime time.Duration
}

// Compute returns every slot generated for the day in ascending order.
// Slots that overlap a blocking booking or start before Now+MinLeadTime
// are kept with IsAvailable=false so callers can render them greyed out.
func Compute(d Day) []model.Slot {
	var blocks, adHoc []window
	for _, o := range d.Overrides {
		if !model.SameDate(o.Date, d.Date) {
			continue
		}
		if o.BlocksWholeDay() {
			return nil
		}
		if !o.HasRange() {
			continue
		}

		w := window{start: *o.StartTime, end: *o.EndTime}
		if w.empty() {
			continue
		}
		if o.IsBlocked {
			blocks = append(blocks, w)
		} else {
			adHoc = append(adHoc, w)
		}
	}

	// Rules with different slot lengths cannot share a grid, so windows are unioned per length
	byLength := make(map[int][]window)
	weekday := d.Date.Weekday()
	for _, r := range d.Rules {
		if !r.AppliesTo(weekday, d.ConsultationType) || r.SlotDurationMinutes <= 0 {
			continue
		}
		w := window{start: r.StartTime, end: r.EndTime}
		if w.empty() {
			continue
		}
		byLength[r.SlotDurationMinutes] = append(byLength[r.SlotDurationMinutes], w)
	}
	if len(adHoc) > 0 && d.DefaultSlotMinutes > 0 {
		byLength[d.DefaultSlotMinutes] = append(byLength[d.DefaultSlotMinutes], adHoc...)
	}

	var slots []model.Slot
	for minutes, ws := range byLength {
		for _, b := range blocks {
			ws = subtract(ws, b)
		}
		for _, w := range union(ws) {
			slots = append(slots, partition(w, minutes)...)
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start != slots[j].Start {
			return slots[i].Start < slots[j].Start
		}
		return slots[i].End < slots[j].End
	})
	slots = dropOverlapping(slots)

	cutoff := d.Now.Add(d.MinLeadTime)
	for i := range slots {
		slots[i].IsAvailable = model.At(d.Date, slots[i].Start, d.Location).After(cutoff) &&
			!booked(slots[i], d.Date, d.Bookings)
	}

	return slots
}

// Available returns only the slots a patient can still book
func Available(d Day) []model.Slot {
	all := Compute(d)
	free := make([]model.Slot, 0, len(all))
	for _, s := range all {
		if s.IsAvailable {
			free = append(free, s)
		}
	}
	return free
}

// Find looks up the slot exactly matching [start, end)
func Find(slots []model.Slot, start, end model.TimeOfDay) (model.Slot, bool) {
	for _, s := range slots {
		if s.Start == start && s.End == end {
			return s, true
		}
	}
	return model.Slot{}, false
}

// dropOverlapping keeps the earliest of any slots that overlap, input must be sorted
func dropOverlapping(sorted []model.Slot) []model.Slot {
	out := sorted[:0]
	for _, s := range sorted {
		if len(out) > 0 && s.Start < out[len(out)-1].End {
			continue
		}
		out = append(out, s)
	}
	return out
}

func booked(s model.Slot, date time.Time, bookings []*model.Booking) bool {
	for _, b := range bookings {
		if !model.SameDate(b.AppointmentDate, date) || !b.Status.IsBlocking() {
			continue
		}
		if b.Overlaps(s.Start, s.End) {
			return true
		}
	}
	return false
}

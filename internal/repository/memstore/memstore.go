// Package memstore keeps doctors, schedules and bookings in process memory.
// It backs tests and single-instance demo runs (USE_MEMORY_STORE).
package memstore

import (
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/medbook/internal/model"
)

// Store holds all tables behind one lock, which makes CreateIfFree atomic
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID    int64
	doctors   map[int64]model.Doctor
	rules     map[int64]model.ScheduleRule
	overrides map[int64]model.AvailabilityOverride
	bookings  map[int64]model.Booking
	keys      map[string]int64 // idempotency keys
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock uses now to stamp created_at and updated_at
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		now:       now,
		doctors:   make(map[int64]model.Doctor),
		rules:     make(map[int64]model.ScheduleRule),
		overrides: make(map[int64]model.AvailabilityOverride),
		bookings:  make(map[int64]model.Booking),
		keys:      make(map[string]int64),
	}
}

func (s *Store) Doctors() *Doctors { return &Doctors{s: s} }

func (s *Store) Rules() *Rules { return &Rules{s: s} }

func (s *Store) Overrides() *Overrides { return &Overrides{s: s} }

func (s *Store) Bookings() *Bookings { return &Bookings{s: s} }

func (s *Store) Idempotency() *Idempotency { return &Idempotency{s: s} }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func sortByID[T any](items []*T, id func(*T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}

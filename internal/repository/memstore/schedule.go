package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Freeeeeet/medbook/internal/model"
)

type Rules struct {
	s *Store
}

func (r *Rules) CreateGroup(_ context.Context, rules []*model.ScheduleRule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, rule := range rules {
		rule.ID = r.s.id()
		rule.CreatedAt = now
		rule.UpdatedAt = now
		r.s.rules[rule.ID] = *rule
	}
	return nil
}

func (r *Rules) GetByID(_ context.Context, id int64) (*model.ScheduleRule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rule, ok := r.s.rules[id]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (r *Rules) ListByDoctor(_ context.Context, doctorID int64) ([]*model.ScheduleRule, error) {
	return r.filter(func(rule model.ScheduleRule) bool { return rule.DoctorID == doctorID }), nil
}

func (r *Rules) ListActiveForWeekday(_ context.Context, doctorID int64, weekday time.Weekday) ([]*model.ScheduleRule, error) {
	return r.filter(func(rule model.ScheduleRule) bool {
		return rule.DoctorID == doctorID && rule.IsActive && rule.DayOfWeek == int(weekday)
	}), nil
}

func (r *Rules) ListByGroupID(_ context.Context, groupID uuid.UUID) ([]*model.ScheduleRule, error) {
	return r.filter(func(rule model.ScheduleRule) bool { return rule.GroupID == groupID }), nil
}

func (r *Rules) Deactivate(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rule, ok := r.s.rules[id]; ok {
		rule.IsActive = false
		rule.UpdatedAt = r.s.now()
		r.s.rules[id] = rule
	}
	return nil
}

func (r *Rules) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.rules, id)
	return nil
}

func (r *Rules) DeleteByGroupID(_ context.Context, groupID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, rule := range r.s.rules {
		if rule.GroupID == groupID {
			delete(r.s.rules, id)
		}
	}
	return nil
}

func (r *Rules) filter(keep func(model.ScheduleRule) bool) []*model.ScheduleRule {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.ScheduleRule
	for _, rule := range r.s.rules {
		rule := rule
		if keep(rule) {
			out = append(out, &rule)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

type Overrides struct {
	s *Store
}

func (o *Overrides) Create(_ context.Context, ov *model.AvailabilityOverride) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	ov.ID = o.s.id()
	ov.CreatedAt = o.s.now()
	o.s.overrides[ov.ID] = copyOverride(*ov)
	return nil
}

func (o *Overrides) GetByID(_ context.Context, id int64) (*model.AvailabilityOverride, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	ov, ok := o.s.overrides[id]
	if !ok {
		return nil, nil
	}
	ov = copyOverride(ov)
	return &ov, nil
}

func (o *Overrides) ListForDate(ctx context.Context, doctorID int64, date time.Time) ([]*model.AvailabilityOverride, error) {
	return o.ListBetween(ctx, doctorID, date, date)
}

func (o *Overrides) ListBetween(_ context.Context, doctorID int64, from, to time.Time) ([]*model.AvailabilityOverride, error) {
	o.s.mu.RLock()
	defer o.s.mu.RUnlock()

	from, to = model.DateOf(from), model.DateOf(to)

	var out []*model.AvailabilityOverride
	for _, ov := range o.s.overrides {
		day := model.DateOf(ov.Date)
		if ov.DoctorID != doctorID || day.Before(from) || day.After(to) {
			continue
		}
		ov := copyOverride(ov)
		out = append(out, &ov)
	}
	sortByID(out, func(ov *model.AvailabilityOverride) int64 { return ov.ID })
	return out, nil
}

func (o *Overrides) Delete(_ context.Context, id int64) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()

	delete(o.s.overrides, id)
	return nil
}

func copyOverride(ov model.AvailabilityOverride) model.AvailabilityOverride {
	if ov.StartTime != nil {
		start := *ov.StartTime
		ov.StartTime = &start
	}
	if ov.EndTime != nil {
		end := *ov.EndTime
		ov.EndTime = &end
	}
	return ov
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/model"
)

// RuleGroupRequest - одно окно времени, повторяемое по нескольким дням недели
type RuleGroupRequest struct {
	DoctorID            int64
	Weekdays            []int // 0 = Sunday
	StartTime           model.TimeOfDay
	EndTime             model.TimeOfDay
	SlotDurationMinutes int
	ConsultationType    model.ConsultationType
}

// OverrideRequest закрывает дату (или её часть) либо открывает дополнительные часы
type OverrideRequest struct {
	DoctorID  int64
	Date      time.Time
	IsBlocked bool
	StartTime *model.TimeOfDay
	EndTime   *model.TimeOfDay
	Reason    string
}

// ScheduleService управляет недельными правилами врачей и исключениями по датам
type ScheduleService struct {
	doctors   DoctorStore
	rules     ScheduleRuleStore
	overrides OverrideStore
	logger    *zap.Logger
}

func NewScheduleService(stores Stores, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{
		doctors:   stores.Doctors,
		rules:     stores.Rules,
		overrides: stores.Overrides,
		logger:    logger,
	}
}

// CreateRuleGroup создаёт правила на несколько дней недели с общим group_id
func (s *ScheduleService) CreateRuleGroup(ctx context.Context, req RuleGroupRequest) (uuid.UUID, []*model.ScheduleRule, error) {
	if err := validateRuleGroup(req); err != nil {
		return uuid.Nil, nil, err
	}

	if err := s.ensureDoctor(ctx, req.DoctorID); err != nil {
		return uuid.Nil, nil, err
	}

	// Генерируем общий group_id для всей группы
	groupID := uuid.New()

	seen := make(map[int]bool, len(req.Weekdays))
	rules := make([]*model.ScheduleRule, 0, len(req.Weekdays))
	for _, weekday := range req.Weekdays {
		if seen[weekday] {
			continue
		}
		seen[weekday] = true

		rules = append(rules, &model.ScheduleRule{
			GroupID:             groupID,
			DoctorID:            req.DoctorID,
			DayOfWeek:           weekday,
			StartTime:           req.StartTime,
			EndTime:             req.EndTime,
			SlotDurationMinutes: req.SlotDurationMinutes,
			ConsultationType:    req.ConsultationType,
			IsActive:            true,
		})
	}

	if err := s.rules.CreateGroup(ctx, rules); err != nil {
		return uuid.Nil, nil, fmt.Errorf("create schedule rules: %w", err)
	}

	s.logger.Info("Schedule rule group created",
		zap.String("group_id", groupID.String()),
		zap.Int64("doctor_id", req.DoctorID),
		zap.Int("weekdays_count", len(rules)),
		zap.String("start", req.StartTime.String()),
		zap.String("end", req.EndTime.String()),
	)

	return groupID, rules, nil
}

func validateRuleGroup(req RuleGroupRequest) error {
	if len(req.Weekdays) == 0 {
		return fmt.Errorf("%w: at least one weekday is required", ErrInvalidSchedule)
	}
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidSchedule, d)
		}
	}
	if !req.StartTime.Valid() || !req.EndTime.Valid() || req.StartTime >= req.EndTime {
		return fmt.Errorf("%w: start must be before end", ErrInvalidSchedule)
	}
	if req.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive", ErrInvalidSchedule)
	}
	if time.Duration(req.SlotDurationMinutes)*time.Minute > req.EndTime.Sub(req.StartTime) {
		return fmt.Errorf("%w: slot duration exceeds the window", ErrInvalidSchedule)
	}
	if !req.ConsultationType.Valid() {
		return fmt.Errorf("%w: unknown consultation type %q", ErrInvalidSchedule, req.ConsultationType)
	}
	return nil
}

// ListRules возвращает все правила врача
func (s *ScheduleService) ListRules(ctx context.Context, doctorID int64) ([]*model.ScheduleRule, error) {
	rules, err := s.rules.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list schedule rules: %w", err)
	}
	return rules, nil
}

// DeactivateRule деактивирует правило, оставляя его в истории
func (s *ScheduleService) DeactivateRule(ctx context.Context, doctorID, ruleID int64) error {
	if _, err := s.ownedRule(ctx, doctorID, ruleID); err != nil {
		return err
	}

	if err := s.rules.Deactivate(ctx, ruleID); err != nil {
		return fmt.Errorf("deactivate schedule rule: %w", err)
	}

	s.logger.Info("Schedule rule deactivated",
		zap.Int64("rule_id", ruleID),
		zap.Int64("doctor_id", doctorID),
	)
	return nil
}

// DeleteRule удаляет правило
func (s *ScheduleService) DeleteRule(ctx context.Context, doctorID, ruleID int64) error {
	if _, err := s.ownedRule(ctx, doctorID, ruleID); err != nil {
		return err
	}

	if err := s.rules.Delete(ctx, ruleID); err != nil {
		return fmt.Errorf("delete schedule rule: %w", err)
	}

	s.logger.Info("Schedule rule deleted",
		zap.Int64("rule_id", ruleID),
		zap.Int64("doctor_id", doctorID),
	)
	return nil
}

// DeleteRuleGroup удаляет всю группу правил
func (s *ScheduleService) DeleteRuleGroup(ctx context.Context, doctorID int64, groupID uuid.UUID) error {
	// Проверяем что группа принадлежит врачу
	rules, err := s.rules.ListByGroupID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("get schedule rules by group_id: %w", err)
	}
	if len(rules) == 0 {
		return ErrRuleNotFound
	}
	if rules[0].DoctorID != doctorID {
		return ErrNotOwner
	}

	if err := s.rules.DeleteByGroupID(ctx, groupID); err != nil {
		return fmt.Errorf("delete schedule rule group: %w", err)
	}

	s.logger.Info("Schedule rule group deleted",
		zap.String("group_id", groupID.String()),
		zap.Int64("doctor_id", doctorID),
	)
	return nil
}

func (s *ScheduleService) ownedRule(ctx context.Context, doctorID, ruleID int64) (*model.ScheduleRule, error) {
	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule rule: %w", err)
	}
	if rule == nil {
		return nil, ErrRuleNotFound
	}
	if rule.DoctorID != doctorID {
		return nil, ErrNotOwner
	}
	return rule, nil
}

// CreateOverride сохраняет исключение на дату. Блокировка без диапазона закрывает весь день.
func (s *ScheduleService) CreateOverride(ctx context.Context, req OverrideRequest) (*model.AvailabilityOverride, error) {
	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, fmt.Errorf("%w: start and end must be set together", ErrInvalidSchedule)
	}
	if req.StartTime != nil {
		if !req.StartTime.Valid() || !req.EndTime.Valid() || *req.StartTime >= *req.EndTime {
			return nil, fmt.Errorf("%w: start must be before end", ErrInvalidSchedule)
		}
	} else if !req.IsBlocked {
		return nil, fmt.Errorf("%w: extra hours need a time range", ErrInvalidSchedule)
	}

	if err := s.ensureDoctor(ctx, req.DoctorID); err != nil {
		return nil, err
	}

	o := &model.AvailabilityOverride{
		DoctorID:  req.DoctorID,
		Date:      model.DateOf(req.Date),
		IsBlocked: req.IsBlocked,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	}
	if err := s.overrides.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create override: %w", err)
	}

	s.logger.Info("Availability override created",
		zap.Int64("override_id", o.ID),
		zap.Int64("doctor_id", o.DoctorID),
		zap.String("date", o.Date.Format(model.DateLayout)),
		zap.Bool("blocked", o.IsBlocked),
	)
	return o, nil
}

// ListOverrides возвращает исключения за [from, to]
func (s *ScheduleService) ListOverrides(ctx context.Context, doctorID int64, from, to time.Time) ([]*model.AvailabilityOverride, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before start", ErrInvalidSchedule)
	}

	overrides, err := s.overrides.ListBetween(ctx, doctorID, model.DateOf(from), model.DateOf(to))
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return overrides, nil
}

// DeleteOverride удаляет исключение врача
func (s *ScheduleService) DeleteOverride(ctx context.Context, doctorID, overrideID int64) error {
	o, err := s.overrides.GetByID(ctx, overrideID)
	if err != nil {
		return fmt.Errorf("get override: %w", err)
	}
	if o == nil {
		return ErrOverrideNotFound
	}
	if o.DoctorID != doctorID {
		return ErrNotOwner
	}

	if err := s.overrides.Delete(ctx, overrideID); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}

	s.logger.Info("Availability override deleted",
		zap.Int64("override_id", overrideID),
		zap.Int64("doctor_id", doctorID),
	)
	return nil
}

func (s *ScheduleService) ensureDoctor(ctx context.Context, doctorID int64) error {
	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("get doctor: %w", err)
	}
	if doctor == nil {
		return ErrDoctorNotFound
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/repository/base"
)

const ruleColumns = `id, group_id, doctor_id, day_of_week, start_sec, end_sec, slot_duration_minutes,
	consultation_type, is_active, created_at, updated_at`

// ScheduleRuleRepository управляет недельными правилами расписания в базе данных
type ScheduleRuleRepository struct {
	*base.Repository
	logger *zap.Logger
}

// NewScheduleRuleRepository создаёт новый репозиторий
func NewScheduleRuleRepository(db base.DB, logger *zap.Logger) *ScheduleRuleRepository {
	return &ScheduleRuleRepository{
		Repository: base.NewRepository(db),
		logger:     logger,
	}
}

// CreateGroup вставляет все правила группы в одной транзакции
func (r *ScheduleRuleRepository) CreateGroup(ctx context.Context, rules []*model.ScheduleRule) error {
	query := `
		INSERT INTO schedule_rules (group_id, doctor_id, day_of_week, start_sec, end_sec,
			slot_duration_minutes, consultation_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	return r.InTx(ctx, func(tx pgx.Tx) error {
		for _, rule := range rules {
			err := tx.QueryRow(ctx, query,
				rule.GroupID,
				rule.DoctorID,
				rule.DayOfWeek,
				int(rule.StartTime),
				int(rule.EndTime),
				rule.SlotDurationMinutes,
				string(rule.ConsultationType),
				rule.IsActive,
			).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
			if err != nil {
				return fmt.Errorf("create schedule rule: %w", err)
			}
		}

		r.logger.Debug("Schedule rules inserted",
			zap.Int("count", len(rules)),
		)
		return nil
	})
}

// GetByID получает правило по ID
func (r *ScheduleRuleRepository) GetByID(ctx context.Context, id int64) (*model.ScheduleRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM schedule_rules WHERE id = $1`

	rule, err := scanRule(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule rule by id: %w", err)
	}

	return rule, nil
}

// ListByDoctor получает все правила врача
func (r *ScheduleRuleRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]*model.ScheduleRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM schedule_rules
		WHERE doctor_id = $1
		ORDER BY day_of_week, start_sec
	`

	rows, err := r.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("get schedule rules by doctor: %w", err)
	}
	return collectRules(rows)
}

// ListActiveForWeekday возвращает активные правила врача на день недели
func (r *ScheduleRuleRepository) ListActiveForWeekday(ctx context.Context, doctorID int64, weekday time.Weekday) ([]*model.ScheduleRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM schedule_rules
		WHERE doctor_id = $1 AND day_of_week = $2 AND is_active = true
		ORDER BY start_sec
	`

	rows, err := r.Query(ctx, query, doctorID, int(weekday))
	if err != nil {
		return nil, fmt.Errorf("get schedule rules for weekday: %w", err)
	}
	return collectRules(rows)
}

// ListByGroupID получает все правила группы
func (r *ScheduleRuleRepository) ListByGroupID(ctx context.Context, groupID uuid.UUID) ([]*model.ScheduleRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM schedule_rules
		WHERE group_id = $1
		ORDER BY day_of_week, start_sec
	`

	rows, err := r.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("get schedule rules by group_id: %w", err)
	}
	return collectRules(rows)
}

// Deactivate деактивирует правило
func (r *ScheduleRuleRepository) Deactivate(ctx context.Context, id int64) error {
	query := `UPDATE schedule_rules SET is_active = false, updated_at = now() WHERE id = $1`

	if _, err := r.ExecAffected(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate schedule rule: %w", err)
	}

	return nil
}

// Delete удаляет правило
func (r *ScheduleRuleRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM schedule_rules WHERE id = $1`

	if _, err := r.ExecAffected(ctx, query, id); err != nil {
		return fmt.Errorf("delete schedule rule: %w", err)
	}

	return nil
}

// DeleteByGroupID удаляет все правила группы
func (r *ScheduleRuleRepository) DeleteByGroupID(ctx context.Context, groupID uuid.UUID) error {
	query := `DELETE FROM schedule_rules WHERE group_id = $1`

	if _, err := r.ExecAffected(ctx, query, groupID); err != nil {
		return fmt.Errorf("delete schedule rules by group_id: %w", err)
	}

	return nil
}

func scanRule(row pgx.Row) (*model.ScheduleRule, error) {
	var (
		rule             model.ScheduleRule
		startSec, endSec int
		consultation     string
	)

	err := row.Scan(
		&rule.ID,
		&rule.GroupID,
		&rule.DoctorID,
		&rule.DayOfWeek,
		&startSec,
		&endSec,
		&rule.SlotDurationMinutes,
		&consultation,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.StartTime = model.TimeOfDay(startSec)
	rule.EndTime = model.TimeOfDay(endSec)
	rule.ConsultationType = model.ConsultationType(consultation)
	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]*model.ScheduleRule, error) {
	defer rows.Close()

	var rules []*model.ScheduleRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule rules: %w", err)
	}

	return rules, nil
}

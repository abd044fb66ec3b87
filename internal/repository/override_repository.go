package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/repository/base"
)

const overrideColumns = `id, doctor_id, override_date, is_blocked, start_sec, end_sec, reason, created_at`

type OverrideRepository struct {
	*base.Repository
}

func NewOverrideRepository(db base.DB) *OverrideRepository {
	return &OverrideRepository{Repository: base.NewRepository(db)}
}

// Create создаёт исключение из расписания на дату
func (r *OverrideRepository) Create(ctx context.Context, o *model.AvailabilityOverride) error {
	query := `
		INSERT INTO availability_overrides (doctor_id, override_date, is_blocked, start_sec, end_sec, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		o.DoctorID,
		o.Date,
		o.IsBlocked,
		secondsOrNil(o.StartTime),
		secondsOrNil(o.EndTime),
		o.Reason,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create override: %w", err)
	}

	return nil
}

// GetByID получает исключение по ID
func (r *OverrideRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilityOverride, error) {
	query := `SELECT ` + overrideColumns + ` FROM availability_overrides WHERE id = $1`

	o, err := scanOverride(r.QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override by id: %w", err)
	}

	return o, nil
}

// ListForDate возвращает все исключения врача на дату
func (r *OverrideRepository) ListForDate(ctx context.Context, doctorID int64, date time.Time) ([]*model.AvailabilityOverride, error) {
	query := `
		SELECT ` + overrideColumns + `
		FROM availability_overrides
		WHERE doctor_id = $1 AND override_date = $2
		ORDER BY start_sec NULLS FIRST
	`

	rows, err := r.Query(ctx, query, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("get overrides for date: %w", err)
	}
	return collectOverrides(rows)
}

// ListBetween возвращает исключения врача за период [from, to]
func (r *OverrideRepository) ListBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]*model.AvailabilityOverride, error) {
	query := `
		SELECT ` + overrideColumns + `
		FROM availability_overrides
		WHERE doctor_id = $1 AND override_date BETWEEN $2 AND $3
		ORDER BY override_date, start_sec NULLS FIRST
	`

	rows, err := r.Query(ctx, query, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get overrides between dates: %w", err)
	}
	return collectOverrides(rows)
}

// Delete удаляет исключение
func (r *OverrideRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM availability_overrides WHERE id = $1`

	if _, err := r.ExecAffected(ctx, query, id); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}

	return nil
}

func scanOverride(row pgx.Row) (*model.AvailabilityOverride, error) {
	var (
		o                model.AvailabilityOverride
		startSec, endSec *int
	)

	err := row.Scan(
		&o.ID,
		&o.DoctorID,
		&o.Date,
		&o.IsBlocked,
		&startSec,
		&endSec,
		&o.Reason,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.StartTime = timeOfDayOrNil(startSec)
	o.EndTime = timeOfDayOrNil(endSec)
	return &o, nil
}

func collectOverrides(rows pgx.Rows) ([]*model.AvailabilityOverride, error) {
	defer rows.Close()

	var overrides []*model.AvailabilityOverride
	for rows.Next() {
		o, err := scanOverride(rows)
		if err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}

	return overrides, nil
}

func secondsOrNil(t *model.TimeOfDay) *int {
	if t == nil {
		return nil
	}
	sec := int(*t)
	return &sec
}

func timeOfDayOrNil(sec *int) *model.TimeOfDay {
	if sec == nil {
		return nil
	}
	t := model.TimeOfDay(*sec)
	return &t
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/repository/base"
)

const doctorColumns = `id, full_name, cancellation_policy, default_slot_minutes, consultation_fee_cents,
	requires_booking_approval, timezone, telegram_chat_id, created_at`

type DoctorRepository struct {
	*base.Repository
}

func NewDoctorRepository(db base.DB) *DoctorRepository {
	return &DoctorRepository{Repository: base.NewRepository(db)}
}

// Create создаёт нового врача
func (r *DoctorRepository) Create(ctx context.Context, d *model.Doctor) error {
	query := `
		INSERT INTO doctors (full_name, cancellation_policy, default_slot_minutes, consultation_fee_cents,
			requires_booking_approval, timezone, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.QueryRow(ctx, query,
		d.FullName,
		string(d.CancellationPolicy),
		d.DefaultSlotMinutes,
		d.ConsultationFeeCents,
		d.RequiresBookingApproval,
		d.Timezone,
		d.TelegramChatID,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}

	return nil
}

// GetByID получает врача по ID
func (r *DoctorRepository) GetByID(ctx context.Context, id int64) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	d, err := scanDoctor(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil // Врач не найден
		}
		return nil, fmt.Errorf("get doctor by id: %w", err)
	}

	return d, nil
}

// List возвращает всех врачей
func (r *DoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors ORDER BY full_name`

	rows, err := r.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []*model.Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctors: %w", err)
	}

	return doctors, nil
}

// Update обновляет настройки врача
func (r *DoctorRepository) Update(ctx context.Context, d *model.Doctor) error {
	query := `
		UPDATE doctors
		SET full_name = $1, cancellation_policy = $2, default_slot_minutes = $3, consultation_fee_cents = $4,
			requires_booking_approval = $5, timezone = $6, telegram_chat_id = $7
		WHERE id = $8
	`

	_, err := r.ExecAffected(ctx, query,
		d.FullName,
		string(d.CancellationPolicy),
		d.DefaultSlotMinutes,
		d.ConsultationFeeCents,
		d.RequiresBookingApproval,
		d.Timezone,
		d.TelegramChatID,
		d.ID,
	)
	if err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}

	return nil
}

func scanDoctor(row pgx.Row) (*model.Doctor, error) {
	var (
		d      model.Doctor
		policy string
	)

	err := row.Scan(
		&d.ID,
		&d.FullName,
		&policy,
		&d.DefaultSlotMinutes,
		&d.ConsultationFeeCents,
		&d.RequiresBookingApproval,
		&d.Timezone,
		&d.TelegramChatID,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.CancellationPolicy = model.CancellationPolicy(policy)
	return &d, nil
}

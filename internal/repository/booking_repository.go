package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/repository/base"
)

var (
	// ErrBookingOverlap - окно уже частично занято блокирующей бронью
	ErrBookingOverlap = errors.New("booking overlaps an existing booking")
	// ErrStatusChanged - условное обновление статуса не нашло строку
	ErrStatusChanged = errors.New("booking status changed concurrently")
	// ErrDuplicateRequest - ключ идемпотентности уже использован
	ErrDuplicateRequest = errors.New("idempotency key already used")
)

const bookingColumns = `id, doctor_id, patient_id, appointment_date, start_sec, end_sec, consultation_type,
	status, amount_cents, refund_percent, refund_cents, idempotency_key, created_at, updated_at`

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(db base.DB) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(db)}
}

// CreateIfFree вставляет b, если его не перекрывает блокирующая бронь того же врача.
// Проверка и вставка идут в одной транзакции под advisory lock на пару (врач, дата),
// ограничение bookings_no_overlap страхует на уровне базы.
func (r *BookingRepository) CreateIfFree(ctx context.Context, b *model.Booking) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, dayLockKey(b.DoctorID, b.AppointmentDate)); err != nil {
			return fmt.Errorf("lock doctor day: %w", err)
		}

		query := `
			SELECT EXISTS(
				SELECT 1 FROM bookings
				WHERE doctor_id = $1
				  AND appointment_date = $2
				  AND start_sec < $4
				  AND end_sec > $3
				  AND status = ANY($5)
			)
		`

		var taken bool
		err := tx.QueryRow(ctx, query,
			b.DoctorID,
			b.AppointmentDate,
			int(b.StartTime),
			int(b.EndTime),
			model.BlockingStatusNames(),
		).Scan(&taken)
		if err != nil {
			return fmt.Errorf("check booking overlap: %w", err)
		}
		if taken {
			return ErrBookingOverlap
		}

		insert := `
			INSERT INTO bookings (doctor_id, patient_id, appointment_date, start_sec, end_sec,
				consultation_type, status, amount_cents, idempotency_key)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at
		`

		err = tx.QueryRow(ctx, insert,
			b.DoctorID,
			b.PatientID,
			b.AppointmentDate,
			int(b.StartTime),
			int(b.EndTime),
			string(b.ConsultationType),
			string(b.Status),
			b.AmountCents,
			b.IdempotencyKey,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			if base.HasCode(err, base.CodeExclusionViolation) {
				return ErrBookingOverlap
			}
			if base.HasCode(err, base.CodeUniqueViolation) {
				return ErrDuplicateRequest
			}
			return fmt.Errorf("insert booking: %w", err)
		}

		return nil
	})
}

// GetByID получает бронирование по ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return booking, nil
}

// GetByIdempotencyKey возвращает бронь, созданную с ключом key, или nil
func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE idempotency_key = $1`

	booking, err := scanBooking(r.QueryRow(ctx, query, key))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by idempotency key: %w", err)
	}

	return booking, nil
}

// ListBlockingForDate возвращает брони, занимающие время врача в дату date
func (r *BookingRepository) ListBlockingForDate(ctx context.Context, doctorID int64, date time.Time) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE doctor_id = $1 AND appointment_date = $2 AND status = ANY($3)
		ORDER BY start_sec
	`

	rows, err := r.Query(ctx, query, doctorID, date, model.BlockingStatusNames())
	if err != nil {
		return nil, fmt.Errorf("get blocking bookings: %w", err)
	}
	return collectBookings(rows)
}

// ListByPatient получает все бронирования пациента
func (r *BookingRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE patient_id = $1
		ORDER BY appointment_date DESC, start_sec DESC
	`

	rows, err := r.Query(ctx, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("get bookings by patient: %w", err)
	}
	return collectBookings(rows)
}

// UpdateStatus переводит бронь из статуса from в статус to.
// Если бронь уже не в статусе from, возвращает ErrStatusChanged.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, from, to model.BookingStatus) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	affected, err := r.ExecAffected(ctx, query, string(to), id, string(from))
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if affected == 0 {
		return ErrStatusChanged
	}

	return nil
}

// RecordCancellation сохраняет отмену вместе с решением о возврате
func (r *BookingRepository) RecordCancellation(ctx context.Context, id int64, from, to model.BookingStatus, percent int, refundCents int64) error {
	query := `
		UPDATE bookings
		SET status = $1, refund_percent = $2, refund_cents = $3, updated_at = now()
		WHERE id = $4 AND status = $5
	`

	affected, err := r.ExecAffected(ctx, query, string(to), percent, refundCents, id, string(from))
	if err != nil {
		return fmt.Errorf("record cancellation: %w", err)
	}
	if affected == 0 {
		return ErrStatusChanged
	}

	return nil
}

// ExpirePendingBefore снимает холды, созданные до cutoff, и возвращает их
func (r *BookingRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) ([]*model.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = now()
		WHERE status = $2 AND created_at < $3
		RETURNING ` + bookingColumns

	rows, err := r.Query(ctx, query,
		string(model.BookingStatusCancelledBySystem),
		string(model.BookingStatusPendingPayment),
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("expire pending bookings: %w", err)
	}
	return collectBookings(rows)
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var (
		b                model.Booking
		startSec, endSec int
		consultation     string
		status           string
	)

	err := row.Scan(
		&b.ID,
		&b.DoctorID,
		&b.PatientID,
		&b.AppointmentDate,
		&startSec,
		&endSec,
		&consultation,
		&status,
		&b.AmountCents,
		&b.RefundPercent,
		&b.RefundCents,
		&b.IdempotencyKey,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.StartTime = model.TimeOfDay(startSec)
	b.EndTime = model.TimeOfDay(endSec)
	b.ConsultationType = model.ConsultationType(consultation)
	b.Status = model.BookingStatus(status)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]*model.Booking, error) {
	defer rows.Close()

	var bookings []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}

	return bookings, nil
}

// dayLockKey строит стабильный ключ advisory lock для пары (врач, дата)
func dayLockKey(doctorID int64, date time.Time) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "booking:%d:%s", doctorID, date.Format(model.DateLayout))
	return int64(h.Sum64())
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/model"
)

type DoctorService struct {
	doctors DoctorStore
	logger  *zap.Logger
}

func NewDoctorService(doctors DoctorStore, logger *zap.Logger) *DoctorService {
	return &DoctorService{
		doctors: doctors,
		logger:  logger,
	}
}

// RegisterDoctor создаёт врача с настройками по умолчанию для пустых полей
func (s *DoctorService) RegisterDoctor(ctx context.Context, d *model.Doctor) (*model.Doctor, error) {
	if d.CancellationPolicy == "" {
		d.CancellationPolicy = model.PolicyModerate
	}
	if d.DefaultSlotMinutes == 0 {
		d.DefaultSlotMinutes = 30
	}
	if d.Timezone == "" {
		d.Timezone = "UTC"
	}
	if err := validateDoctor(d); err != nil {
		return nil, err
	}

	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create doctor: %w", err)
	}

	s.logger.Info("Doctor registered",
		zap.Int64("doctor_id", d.ID),
		zap.String("policy", string(d.CancellationPolicy)),
	)
	return d, nil
}

// GetDoctor получает врача по ID
func (s *DoctorService) GetDoctor(ctx context.Context, id int64) (*model.Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	if d == nil {
		return nil, ErrDoctorNotFound
	}
	return d, nil
}

// ListDoctors возвращает всех врачей
func (s *DoctorService) ListDoctors(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// UpdateDoctor обновляет настройки врача
func (s *DoctorService) UpdateDoctor(ctx context.Context, d *model.Doctor) error {
	if _, err := s.GetDoctor(ctx, d.ID); err != nil {
		return err
	}
	if err := validateDoctor(d); err != nil {
		return err
	}

	if err := s.doctors.Update(ctx, d); err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}

	s.logger.Info("Doctor updated", zap.Int64("doctor_id", d.ID))
	return nil
}

func validateDoctor(d *model.Doctor) error {
	if d.FullName == "" {
		return fmt.Errorf("%w: full name is required", ErrInvalidDoctor)
	}
	if !d.CancellationPolicy.Valid() {
		return fmt.Errorf("%w: unknown cancellation policy %q", ErrInvalidDoctor, d.CancellationPolicy)
	}
	if d.DefaultSlotMinutes <= 0 {
		return fmt.Errorf("%w: default slot length must be positive", ErrInvalidDoctor)
	}
	if d.ConsultationFeeCents < 0 {
		return fmt.Errorf("%w: fee must not be negative", ErrInvalidDoctor)
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidDoctor, d.Timezone)
	}
	return nil
}

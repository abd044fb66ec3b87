package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HoldExpirer снимает холды pending_payment с истёкшим окном оплаты
type HoldExpirer interface {
	ExpireStaleHolds(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	expirer  HoldExpirer
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(expirer HoldExpirer, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		expirer:  expirer,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler", zap.Duration("hold_sweep_interval", s.interval))

	s.wg.Add(1)
	go s.runHoldSweepTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// runHoldSweepTask периодически освобождает неоплаченные брони
func (s *Scheduler) runHoldSweepTask(ctx context.Context) {
	defer s.wg.Done()

	// Первый запуск сразу при старте
	s.sweepHolds(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepHolds(ctx)
		case <-s.stopChan:
			s.logger.Info("Hold sweep task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Hold sweep task cancelled")
			return
		}
	}
}

func (s *Scheduler) sweepHolds(ctx context.Context) {
	expired, err := s.expirer.ExpireStaleHolds(ctx)
	if err != nil {
		s.logger.Error("Failed to expire stale holds", zap.Error(err))
		return
	}

	if expired > 0 {
		s.logger.Info("Stale holds released", zap.Int("count", expired))
	}
}

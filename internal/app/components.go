package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/config"
	"github.com/Freeeeeet/medbook/internal/metrics"
	"github.com/Freeeeeet/medbook/internal/notify"
	"github.com/Freeeeeet/medbook/internal/repository"
	"github.com/Freeeeeet/medbook/internal/repository/memstore"
	"github.com/Freeeeeet/medbook/internal/service"
)

// Components хранит собранные сервисы одного процесса
type Components struct {
	Pool     *pgxpool.Pool // nil with the memory store
	Bookings *service.BookingService
	Schedule *service.ScheduleService
	Doctors  *service.DoctorService

	closers []func()
}

// Build собирает хранилища, уведомления и сервисы по cfg.
// Метрики регистрируются в reg, если он не nil.
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) (*Components, error) {
	c := &Components{}

	stores, err := c.stores(ctx, cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}

	opts := []service.BookingOption{service.WithRefunder(NewLogRefunder(logger))}
	if reg != nil {
		opts = append(opts, service.WithMetrics(metrics.NewBookingMetrics(reg)))
	}

	c.Bookings = service.NewBookingService(stores, notifier, service.BookingConfig{
		MinLeadTime:    cfg.MinLeadTime,
		PaymentHoldTTL: cfg.PaymentHoldTTL,
	}, logger, opts...)
	c.Schedule = service.NewScheduleService(stores, logger)
	c.Doctors = service.NewDoctorService(stores.Doctors, logger)

	return c, nil
}

func (c *Components) stores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Stores, error) {
	if cfg.UseMemoryStore {
		logger.Warn("Using in-memory store, data is lost on restart")
		store := memstore.New()
		return service.Stores{
			Doctors:     store.Doctors(),
			Rules:       store.Rules(),
			Overrides:   store.Overrides(),
			Bookings:    store.Bookings(),
			Idempotency: store.Idempotency(),
		}, nil
	}

	pool, err := NewPool(ctx, cfg.GetDBDSN())
	if err != nil {
		return service.Stores{}, err
	}
	c.Pool = pool
	c.closers = append(c.closers, pool.Close)

	stores := service.Stores{
		Doctors:   repository.NewDoctorRepository(pool),
		Rules:     repository.NewScheduleRuleRepository(pool, logger),
		Overrides: repository.NewOverrideRepository(pool),
		Bookings:  repository.NewBookingRepository(pool),
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return service.Stores{}, fmt.Errorf("ping redis: %w", err)
		}
		c.closers = append(c.closers, func() { _ = client.Close() })
		stores.Idempotency = repository.NewIdempotencyStore(client, cfg.IdempotencyTTL)
	}

	return stores, nil
}

func newNotifier(cfg *config.Config, logger *zap.Logger) (notify.Notifier, error) {
	logNotifier := notify.NewLogNotifier(logger)
	if cfg.TelegramToken == "" {
		return logNotifier, nil
	}

	tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, logNotifier, logger)
	if err != nil {
		return nil, fmt.Errorf("create telegram notifier: %w", err)
	}
	return tg, nil
}

// Close закрывает соединения в обратном порядке
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment       string        `mapstructure:"ENV"`
	DBDSN             string        `mapstructure:"DB_DSN"`
	HTTPAddr          string        `mapstructure:"HTTP_ADDR"`
	RedisAddr         string        `mapstructure:"REDIS_ADDR"`
	TelegramToken     string        `mapstructure:"TELEGRAM_TOKEN"`
	MinLeadTime       time.Duration `mapstructure:"MIN_LEAD_TIME"`
	PaymentHoldTTL    time.Duration `mapstructure:"PAYMENT_HOLD_TTL"`
	HoldSweepInterval time.Duration `mapstructure:"HOLD_SWEEP_INTERVAL"`
	IdempotencyTTL    time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	UseMemoryStore    bool          `mapstructure:"USE_MEMORY_STORE"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	} else {
		log.Println("Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		Environment:   getEnv("ENV", "development"),
		DBDSN:         os.Getenv("DB_DSN"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
	}

	var err error
	if cfg.MinLeadTime, err = getDuration("MIN_LEAD_TIME", 0); err != nil {
		return nil, err
	}
	if cfg.PaymentHoldTTL, err = getDuration("PAYMENT_HOLD_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HoldSweepInterval, err = getDuration("HOLD_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UseMemoryStore, err = getBool("USE_MEMORY_STORE", false); err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" && !cfg.UseMemoryStore {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.MinLeadTime < 0 {
		return nil, fmt.Errorf("MIN_LEAD_TIME must not be negative")
	}
	if cfg.PaymentHoldTTL <= 0 || cfg.HoldSweepInterval <= 0 {
		return nil, fmt.Errorf("PAYMENT_HOLD_TTL and HOLD_SWEEP_INTERVAL must be positive")
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// IsProduction сообщает, включено ли продакшн-логирование
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "medbook:reserve:"

// IdempotencyStore кэширует в Redis, какую бронь создал ключ запроса
type IdempotencyStore struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{redis: client, ttl: ttl}
}

// Lookup возвращает ID брони по ключу; found=false, если ключ неизвестен
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (bookingID int64, found bool, err error) {
	bookingID, err = s.redis.Get(ctx, idempotencyKeyPrefix+key).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup idempotency key: %w", err)
	}

	return bookingID, true, nil
}

// Remember сохраняет bookingID под ключом, если ключ ещё свободен
func (s *IdempotencyStore) Remember(ctx context.Context, key string, bookingID int64) (bool, error) {
	stored, err := s.redis.SetNX(ctx, idempotencyKeyPrefix+key, bookingID, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("remember idempotency key: %w", err)
	}

	return stored, nil
}

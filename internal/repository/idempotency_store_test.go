package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIdempotencyStore(t *testing.T) (*IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewIdempotencyStore(client, time.Hour), mr
}

func TestIdempotencyStore_RememberAndLookup(t *testing.T) {
	store, _ := newTestIdempotencyStore(t)
	ctx := context.Background()

	_, found, err := store.Lookup(ctx, "req-1")
	require.NoError(t, err)
	assert.False(t, found)

	stored, err := store.Remember(ctx, "req-1", 55)
	require.NoError(t, err)
	assert.True(t, stored)

	id, found, err := store.Lookup(ctx, "req-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(55), id)

	stored, err = store.Remember(ctx, "req-1", 56)
	require.NoError(t, err)
	assert.False(t, stored, "first writer keeps the key")

	id, _, err = store.Lookup(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, int64(55), id)
}

func TestIdempotencyStore_Expires(t *testing.T) {
	store, mr := newTestIdempotencyStore(t)
	ctx := context.Background()

	_, err := store.Remember(ctx, "req-2", 7)
	require.NoError(t, err)
	assert.True(t, mr.Exists(idempotencyKeyPrefix+"req-2"))

	mr.FastForward(2 * time.Hour)

	_, found, err := store.Lookup(ctx, "req-2")
	require.NoError(t, err)
	assert.False(t, found)
}

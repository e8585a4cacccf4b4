package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	defer client.Close()
	store := NewRedisIdempotencyStore(client, "test", time.Hour)
	ctx := context.Background()

	rec, hit, err := store.GetOrLock(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, rec)

	rec, hit, err = store.GetOrLock(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, rec.Processing)

	require.NoError(t, store.Save(ctx, "k1", 200, []byte(`{"ok":true}`)))
	rec, hit, err = store.GetOrLock(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.False(t, rec.Processing)
	assert.Equal(t, 200, rec.Status)
	assert.JSONEq(t, `{"ok":true}`, string(rec.Body))

	require.NoError(t, store.Unlock(ctx, "k1"))
	_, hit, err = store.GetOrLock(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, hit)

	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists("test:idem:k1"))
}

func TestInMemIdempotencyStore(t *testing.T) {
	store := NewInMemIdempotencyStore(time.Hour)
	ctx := context.Background()

	_, hit, _ := store.GetOrLock(ctx, "k")
	assert.False(t, hit)
	rec, hit, _ := store.GetOrLock(ctx, "k")
	assert.True(t, hit)
	assert.True(t, rec.Processing)

	require.NoError(t, store.Save(ctx, "k", 201, []byte("x")))
	rec, _, _ = store.GetOrLock(ctx, "k")
	assert.Equal(t, 201, rec.Status)
}

func TestInMemIdempotencyStore_EvictsExpiredKeys(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewInMemIdempotencyStore(10 * time.Minute)
	store.now = func() time.Time { return now }
	store.lastEvict = now
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, _, err := store.GetOrLock(ctx, fmt.Sprintf("client-key-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 100, store.Len())

	now = now.Add(11 * time.Minute)
	_, hit, err := store.GetOrLock(ctx, "client-key-0")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, store.Len())
}

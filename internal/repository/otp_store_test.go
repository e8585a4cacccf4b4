package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisOTPStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := &RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	defer client.Close()
	store := NewRedisOTPStore(client, "test")
	ctx := context.Background()

	expires := time.Now().Add(5 * time.Minute).Truncate(time.Millisecond).UTC()
	require.NoError(t, store.Save(ctx, &model.OTPCode{Phone: "+233241234567", CodeHash: "abc", ExpiresAt: expires}))

	got, err := store.Get(ctx, "+233241234567")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.CodeHash)
	assert.Equal(t, 0, got.Attempts)
	assert.True(t, got.ExpiresAt.Equal(expires))

	n, err := store.IncrementAttempts(ctx, "+233241234567")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Delete(ctx, "+233241234567"))
	_, err = store.Get(ctx, "+233241234567")
	assert.ErrorIs(t, err, ErrOTPNotFound)

	// an attempt after expiry must not resurrect the hash
	_, err = store.IncrementAttempts(ctx, "+233241234567")
	assert.ErrorIs(t, err, ErrOTPNotFound)
	assert.False(t, mr.Exists("test:otp:+233241234567"))
}

func TestMemoryOTPStore_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewMemoryOTPStore(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &model.OTPCode{Phone: "p", CodeHash: "h", ExpiresAt: now.Add(time.Minute)}))
	_, err := store.Get(ctx, "p")
	require.NoError(t, err)

	n, err := store.IncrementAttempts(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	now = now.Add(time.Minute)
	_, err = store.IncrementAttempts(ctx, "p")
	assert.ErrorIs(t, err, ErrOTPNotFound)
	_, err = store.Get(ctx, "p")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestMemoryMerchantRepo(t *testing.T) {
	repo := NewMemoryMerchantRepo()
	ctx := context.Background()

	_, err := repo.Get(ctx, "m-1")
	assert.ErrorIs(t, err, ErrMerchantNotFound)

	require.NoError(t, repo.Upsert(ctx, &model.Merchant{ID: "m-1", Status: model.MerchantActive}))
	m, err := repo.Get(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, model.MerchantActive, m.Status)
}

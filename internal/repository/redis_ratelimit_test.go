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

func newTestRedisRepo(t *testing.T) (*RedisRateLimitRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := &RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRateLimitRepo(client, "test", 5), mr
}

func appendNow(key model.RateLimitKey) model.RateLimitMutation {
	return func(rec *model.RateLimitRecord, now time.Time) (*model.RateLimitRecord, error) {
		next := &model.RateLimitRecord{
			Key:          key.Key,
			FunctionName: key.FunctionName,
			Identifier:   key.Identifier,
			CreatedAt:    now,
		}
		if rec != nil {
			next.Requests = rec.Requests
			next.CreatedAt = rec.CreatedAt
		}
		next.Requests = append(next.Requests, now)
		next.UpdatedAt = now
		return next, nil
	}
}

func TestRedisRateLimitRepo_UpdateAndGet(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	mr.SetTime(start)

	key := model.RateLimitKey{Key: "otp_send__233241234567", FunctionName: "otp_send", Identifier: "+233241234567"}
	require.NoError(t, repo.Update(ctx, key, appendNow(key)))
	mr.SetTime(start.Add(time.Minute))
	require.NoError(t, repo.Update(ctx, key, appendNow(key)))

	rec, now, err := repo.Get(ctx, key.Key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Requests, 2)
	assert.True(t, rec.CreatedAt.Equal(start))
	assert.True(t, rec.UpdatedAt.Equal(start.Add(time.Minute)))
	assert.True(t, now.Equal(start.Add(time.Minute)))

	score, err := mr.ZScore("test:ratelimit:_index", key.Key)
	require.NoError(t, err)
	assert.Equal(t, float64(start.Add(time.Minute).UnixMilli()), score)
}

func TestRedisRateLimitRepo_NilMutationWritesNothing(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	ctx := context.Background()

	key := model.RateLimitKey{Key: "login_u1"}
	err := repo.Update(ctx, key, func(*model.RateLimitRecord, time.Time) (*model.RateLimitRecord, error) {
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:ratelimit:login_u1"))
}

func TestRedisRateLimitRepo_Delete(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	ctx := context.Background()

	key := model.RateLimitKey{Key: "login_u1"}
	require.NoError(t, repo.Update(ctx, key, appendNow(key)))
	require.NoError(t, repo.Delete(ctx, key.Key))
	require.NoError(t, repo.Delete(ctx, key.Key))

	rec, _, err := repo.Get(ctx, key.Key)
	require.NoError(t, err)
	assert.Nil(t, rec)
	members, _ := mr.ZMembers("test:ratelimit:_index")
	assert.Empty(t, members)
}

func TestRedisRateLimitRepo_DeleteStale(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mr.SetTime(start)
	for _, k := range []string{"api_read_a", "api_read_b", "api_read_c"} {
		key := model.RateLimitKey{Key: k}
		require.NoError(t, repo.Update(ctx, key, appendNow(key)))
	}
	mr.SetTime(start.Add(23 * time.Hour))
	fresh := model.RateLimitKey{Key: "api_read_b"}
	require.NoError(t, repo.Update(ctx, fresh, appendNow(fresh)))

	mr.SetTime(start.Add(25 * time.Hour))
	batch, err := repo.DeleteStale(ctx, 24*time.Hour, 1)
	require.NoError(t, err)
	assert.Equal(t, model.SweepBatch{Scanned: 1, Deleted: 1}, batch)

	batch, err = repo.DeleteStale(ctx, 24*time.Hour, 500)
	require.NoError(t, err)
	assert.Equal(t, model.SweepBatch{Scanned: 1, Deleted: 1}, batch)

	list, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "api_read_b", list[0].Key)
}

func TestRedisRateLimitRepo_DeleteStaleCountsOrphans(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mr.SetTime(start)
	key := model.RateLimitKey{Key: "login_live"}
	require.NoError(t, repo.Update(ctx, key, appendNow(key)))
	// index entries whose record is already gone
	_, err := mr.ZAdd("test:ratelimit:_index", float64(start.Add(-time.Hour).UnixMilli()), "login_orphan_1")
	require.NoError(t, err)
	_, err = mr.ZAdd("test:ratelimit:_index", float64(start.Add(-time.Hour).UnixMilli()), "login_orphan_2")
	require.NoError(t, err)

	mr.SetTime(start.Add(25 * time.Hour))
	batch, err := repo.DeleteStale(ctx, 24*time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, batch.Scanned)
	assert.Equal(t, 0, batch.Deleted)

	batch, err = repo.DeleteStale(ctx, 24*time.Hour, 2)
	require.NoError(t, err)
	assert.Equal(t, model.SweepBatch{Scanned: 1, Deleted: 1}, batch)

	members, _ := mr.ZMembers("test:ratelimit:_index")
	assert.Empty(t, members)
}

func TestRedisRateLimitRepo_List(t *testing.T) {
	repo, _ := newTestRedisRepo(t)
	ctx := context.Background()

	for _, k := range []string{"otp_send_1", "otp_send_2", "login_1"} {
		key := model.RateLimitKey{Key: k}
		require.NoError(t, repo.Update(ctx, key, appendNow(key)))
	}

	list, err := repo.List(ctx, "otp_send", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "otp_send_1", list[0].Key)

	list, err = repo.List(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRedisRateLimitRepo_StoreDown(t *testing.T) {
	repo, mr := newTestRedisRepo(t)
	mr.Close()

	key := model.RateLimitKey{Key: "login_u1"}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, repo.Update(ctx, key, appendNow(key)))
}

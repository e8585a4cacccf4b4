package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisMaxRetries = 5
	contentionBackoffBase  = 2 * time.Millisecond
	contentionBackoffMax   = 50 * time.Millisecond
)

// RedisRateLimitRepo stores one JSON document per key plus a sorted set
// indexing keys by updatedAt (unix ms) for the stale sweep.
type RedisRateLimitRepo struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

func NewRedisRateLimitRepo(client *RedisClient, keyPrefix string, maxRetries int) *RedisRateLimitRepo {
	if keyPrefix == "" {
		keyPrefix = "quickpay"
	}
	if maxRetries <= 0 {
		maxRetries = defaultRedisMaxRetries
	}
	return &RedisRateLimitRepo{
		client:     client.Client,
		prefix:     keyPrefix + ":ratelimit:",
		maxRetries: maxRetries,
	}
}

func (r *RedisRateLimitRepo) recordKey(key string) string {
	return r.prefix + key
}

func (r *RedisRateLimitRepo) indexKey() string {
	return r.prefix + "_index"
}

// Update runs fn inside WATCH/MULTI/EXEC, retrying when another writer touched the key.
// It returns ErrStoreContention only once ctx expires while the key is still contended.
func (r *RedisRateLimitRepo) Update(ctx context.Context, key model.RateLimitKey, fn model.RateLimitMutation) error {
	rk := r.recordKey(key.Key)

	txf := func(tx *redis.Tx) error {
		now, err := tx.Time(ctx).Result()
		if err != nil {
			return err
		}
		current, err := loadRecord(ctx, tx, rk)
		if err != nil {
			return err
		}

		next, err := fn(current, now)
		if err != nil || next == nil {
			return err
		}
		payload, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, payload, 0)
			pipe.ZAdd(ctx, r.indexKey(), redis.Z{
				Score:  float64(next.UpdatedAt.UnixMilli()),
				Member: key.Key,
			})
			return nil
		})
		return err
	}

	// maxRetries immediate attempts, then jittered backoff until ctx is done.
	backoff := contentionBackoffBase
	for attempt := 1; ; attempt++ {
		err := r.client.Watch(ctx, txf, rk)
		if err == nil {
			return nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			if attempt > 1 && ctx.Err() != nil {
				return ErrStoreContention
			}
			return err
		}
		if attempt < r.maxRetries {
			continue
		}

		timer := time.NewTimer(backoff/2 + time.Duration(rand.Int63n(int64(backoff))))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ErrStoreContention
		case <-timer.C:
		}
		backoff = min(backoff*2, contentionBackoffMax)
	}
}

func (r *RedisRateLimitRepo) Get(ctx context.Context, key string) (*model.RateLimitRecord, time.Time, error) {
	now, err := r.client.Time(ctx).Result()
	if err != nil {
		return nil, time.Time{}, err
	}
	rec, err := loadRecord(ctx, r.client, r.recordKey(key))
	if err != nil {
		return nil, time.Time{}, err
	}
	return rec, now, nil
}

func (r *RedisRateLimitRepo) Delete(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.recordKey(key))
		pipe.ZRem(ctx, r.indexKey(), key)
		return nil
	})
	return err
}

// DeleteStale picks the oldest index entries below the cutoff and deletes each
// one under WATCH, re-checking updatedAt so a record refreshed mid-sweep survives.
func (r *RedisRateLimitRepo) DeleteStale(ctx context.Context, olderThan time.Duration, limit int) (model.SweepBatch, error) {
	now, err := r.client.Time(ctx).Result()
	if err != nil {
		return model.SweepBatch{}, err
	}
	cutoff := now.Add(-olderThan)

	candidates, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return model.SweepBatch{}, err
	}

	batch := model.SweepBatch{Scanned: len(candidates)}
	for _, key := range candidates {
		rk := r.recordKey(key)
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			rec, err := loadRecord(ctx, tx, rk)
			if err != nil {
				return err
			}
			if rec != nil && !rec.UpdatedAt.Before(cutoff) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, rk)
				pipe.ZRem(ctx, r.indexKey(), key)
				return nil
			})
			if err == nil && rec != nil {
				batch.Deleted++
			}
			return err
		}, rk)
		if errors.Is(err, redis.TxFailedErr) {
			// refreshed by a live check while we looked at it
			continue
		}
		if err != nil {
			return batch, err
		}
	}
	return batch, nil
}

func (r *RedisRateLimitRepo) List(ctx context.Context, prefix string, limit int) ([]*model.RateLimitRecord, error) {
	keys, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	out := make([]*model.RateLimitRecord, 0)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rec, err := loadRecord(ctx, r.client, r.recordKey(key))
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func loadRecord(ctx context.Context, c stringGetter, rk string) (*model.RateLimitRecord, error) {
	raw, err := c.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec model.RateLimitRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode rate limit record %s: %w", rk, err)
	}
	return &rec, nil
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/redis/go-redis/v9"
)

const defaultIdempotencyTTL = 24 * time.Hour

// RedisIdempotencyStore holds idempotency records with a TTL; SET NX is the lock.
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisIdempotencyStore(client *RedisClient, keyPrefix string, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	if keyPrefix == "" {
		keyPrefix = "quickpay"
	}
	return &RedisIdempotencyStore{
		client: client.Client,
		ttl:    ttl,
		prefix: keyPrefix + ":idem:",
	}
}

func (s *RedisIdempotencyStore) GetOrLock(ctx context.Context, key string) (*model.IdempotencyRecord, bool, error) {
	payload, err := json.Marshal(model.IdempotencyRecord{
		CreatedAt:  time.Now().UTC(),
		Processing: true,
	})
	if err != nil {
		return nil, false, err
	}
	locked, err := s.client.SetNX(ctx, s.prefix+key, payload, s.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if locked {
		return nil, false, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; treat as in progress and let the client retry
		return &model.IdempotencyRecord{Processing: true}, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec model.IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, err
	}
	return &rec, true, nil
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, status int, body []byte) error {
	payload, err := json.Marshal(model.IdempotencyRecord{
		Status:    status,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+key, payload, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// InMemIdempotencyStore is used when redis is not configured. Expired keys are
// evicted on a full scan at most once per evictEvery.
type InMemIdempotencyStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	evictEvery time.Duration
	lastEvict  time.Time
	now        func() time.Time
	records    map[string]*model.IdempotencyRecord
}

func NewInMemIdempotencyStore(ttl time.Duration) *InMemIdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &InMemIdempotencyStore{
		ttl:        ttl,
		evictEvery: min(ttl, time.Minute),
		lastEvict:  time.Now(),
		now:        time.Now,
		records:    make(map[string]*model.IdempotencyRecord),
	}
}

func (s *InMemIdempotencyStore) GetOrLock(ctx context.Context, key string) (*model.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evictExpiredLocked(now)

	if rec, ok := s.records[key]; ok {
		if now.Sub(rec.CreatedAt) < s.ttl {
			cp := *rec
			return &cp, true, nil
		}
		delete(s.records, key)
	}
	s.records[key] = &model.IdempotencyRecord{
		Processing: true,
		CreatedAt:  now,
	}
	return nil, false, nil
}

func (s *InMemIdempotencyStore) evictExpiredLocked(now time.Time) {
	if now.Sub(s.lastEvict) < s.evictEvery {
		return
	}
	s.lastEvict = now
	for key, rec := range s.records {
		if now.Sub(rec.CreatedAt) >= s.ttl {
			delete(s.records, key)
		}
	}
}

// Len reports how many keys are held, expired ones included until evicted.
func (s *InMemIdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *InMemIdempotencyStore) Save(ctx context.Context, key string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = &model.IdempotencyRecord{
		Status:    status,
		Body:      append([]byte(nil), body...),
		CreatedAt: s.now(),
	}
	return nil
}

func (s *InMemIdempotencyStore) Unlock(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

package repository

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/redis/go-redis/v9"
)

// RedisOTPStore keeps each pending code in a hash that expires with the code.
type RedisOTPStore struct {
	client *redis.Client
	prefix string
}

func NewRedisOTPStore(client *RedisClient, keyPrefix string) *RedisOTPStore {
	if keyPrefix == "" {
		keyPrefix = "quickpay"
	}
	return &RedisOTPStore{client: client.Client, prefix: keyPrefix + ":otp:"}
}

func (s *RedisOTPStore) Save(ctx context.Context, code *model.OTPCode) error {
	key := s.prefix + code.Phone
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", code.CodeHash,
			"attempts", code.Attempts,
			"expires_at", code.ExpiresAt.UnixMilli(),
		)
		pipe.PExpireAt(ctx, key, code.ExpiresAt)
		return nil
	})
	return err
}

func (s *RedisOTPStore) Get(ctx context.Context, phone string) (*model.OTPCode, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+phone).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrOTPNotFound
	}
	attempts, _ := strconv.Atoi(fields["attempts"])
	expiresMs, _ := strconv.ParseInt(fields["expires_at"], 10, 64)
	return &model.OTPCode{
		Phone:     phone,
		CodeHash:  fields["code_hash"],
		Attempts:  attempts,
		ExpiresAt: time.UnixMilli(expiresMs).UTC(),
	}, nil
}

// incrementAttemptsScript bumps the counter only while the hash exists, so an
// attempt racing the expiry never recreates the key without a TTL.
var incrementAttemptsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

func (s *RedisOTPStore) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	n, err := incrementAttemptsScript.Run(ctx, s.client, []string{s.prefix + phone}).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrOTPNotFound
	}
	return n, nil
}

func (s *RedisOTPStore) Delete(ctx context.Context, phone string) error {
	return s.client.Del(ctx, s.prefix+phone).Err()
}

// MemoryOTPStore is the single-instance fallback.
type MemoryOTPStore struct {
	mu    sync.Mutex
	codes map[string]*model.OTPCode
	now   func() time.Time
}

func NewMemoryOTPStore(now func() time.Time) *MemoryOTPStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryOTPStore{codes: make(map[string]*model.OTPCode), now: now}
}

func (s *MemoryOTPStore) Save(ctx context.Context, code *model.OTPCode) error {
	cp := *code
	s.mu.Lock()
	s.codes[code.Phone] = &cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryOTPStore) Get(ctx context.Context, phone string) (*model.OTPCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok {
		return nil, ErrOTPNotFound
	}
	if !s.now().Before(code.ExpiresAt) {
		delete(s.codes, phone)
		return nil, ErrOTPNotFound
	}
	cp := *code
	return &cp, nil
}

func (s *MemoryOTPStore) IncrementAttempts(ctx context.Context, phone string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[phone]
	if !ok || !s.now().Before(code.ExpiresAt) {
		delete(s.codes, phone)
		return 0, ErrOTPNotFound
	}
	code.Attempts++
	return code.Attempts, nil
}

func (s *MemoryOTPStore) Delete(ctx context.Context, phone string) error {
	s.mu.Lock()
	delete(s.codes, phone)
	s.mu.Unlock()
	return nil
}

package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/syncutil"
)

// MemoryRateLimitStore keeps records in process memory. Suitable for a single
// instance or tests; counts are not shared between replicas.
type MemoryRateLimitStore struct {
	keyLocks syncutil.ShardedMutex

	mu      sync.RWMutex
	records map[string]*model.RateLimitRecord
	now     func() time.Time
}

type MemoryStoreOption func(*MemoryRateLimitStore)

// WithClock replaces the store clock, mostly for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryRateLimitStore) { s.now = now }
}

func NewMemoryRateLimitStore(opts ...MemoryStoreOption) *MemoryRateLimitStore {
	s := &MemoryRateLimitStore{
		records: make(map[string]*model.RateLimitRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryRateLimitStore) Update(ctx context.Context, key model.RateLimitKey, fn model.RateLimitMutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.keyLocks.Lock(key.Key)
	defer unlock()

	s.mu.RLock()
	current := cloneRecord(s.records[key.Key])
	s.mu.RUnlock()

	next, err := fn(current, s.now())
	if err != nil || next == nil {
		return err
	}

	s.mu.Lock()
	s.records[key.Key] = cloneRecord(next)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRateLimitStore) Get(ctx context.Context, key string) (*model.RateLimitRecord, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecord(s.records[key]), s.now(), nil
}

func (s *MemoryRateLimitStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := s.keyLocks.Lock(key)
	defer unlock()

	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryRateLimitStore) DeleteStale(ctx context.Context, olderThan time.Duration, limit int) (model.SweepBatch, error) {
	if err := ctx.Err(); err != nil {
		return model.SweepBatch{}, err
	}
	cutoff := s.now().Add(-olderThan)

	s.mu.RLock()
	stale := make([]*model.RateLimitRecord, 0)
	for _, rec := range s.records {
		if rec.UpdatedAt.Before(cutoff) {
			stale = append(stale, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(stale, func(i, j int) bool { return stale[i].UpdatedAt.Before(stale[j].UpdatedAt) })
	if len(stale) > limit {
		stale = stale[:limit]
	}

	batch := model.SweepBatch{Scanned: len(stale)}
	for _, candidate := range stale {
		unlock := s.keyLocks.Lock(candidate.Key)
		s.mu.Lock()
		// a concurrent Update may have refreshed the record since the scan
		if rec, ok := s.records[candidate.Key]; ok && rec.UpdatedAt.Before(cutoff) {
			delete(s.records, candidate.Key)
			batch.Deleted++
		}
		s.mu.Unlock()
		unlock()
	}
	return batch, nil
}

func (s *MemoryRateLimitStore) List(ctx context.Context, prefix string, limit int) ([]*model.RateLimitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]*model.RateLimitRecord, 0)
	for key, rec := range s.records {
		if strings.HasPrefix(key, prefix) {
			out = append(out, cloneRecord(rec))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneRecord(rec *model.RateLimitRecord) *model.RateLimitRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	cp.Requests = append([]time.Time(nil), rec.Requests...)
	return &cp
}

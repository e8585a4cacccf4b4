package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/metrics"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/repository"
	"golang.org/x/time/rate"
)

// ErrStoreContention is returned by a store when a hot key stayed contended
// until the store deadline.
var ErrStoreContention = repository.ErrStoreContention

// contentionRetryAfter is the retry hint given when a check is denied for contention.
const contentionRetryAfter = time.Second

// RateLimitStore is the backing store contract: a point read, an atomic
// read-modify-write per key, a point delete and an age-ordered bulk delete.
type RateLimitStore interface {
	Update(ctx context.Context, key model.RateLimitKey, fn model.RateLimitMutation) error
	// Get returns the record (nil when absent) together with the store's current time.
	Get(ctx context.Context, key string) (*model.RateLimitRecord, time.Time, error)
	Delete(ctx context.Context, key string) error
	// DeleteStale removes at most limit records whose UpdatedAt is older than
	// olderThan, measured on the store's clock, oldest first.
	DeleteStale(ctx context.Context, olderThan time.Duration, limit int) (model.SweepBatch, error)
	List(ctx context.Context, prefix string, limit int) ([]*model.RateLimitRecord, error)
}

const (
	DefaultStoreTimeout    = 3 * time.Second
	DefaultStaleAfter      = 24 * time.Hour
	DefaultSweepBatchSize  = 500
	DefaultSweepMaxBatches = 20
)

type RateLimiterOptions struct {
	StoreTimeout       time.Duration
	StaleAfter         time.Duration
	SweepBatchSize     int
	SweepMaxBatches    int
	SweepBatchesPerSec float64
	Now                func() time.Time // fallback clock, only used when the store cannot answer
}

// RateLimiter enforces a sliding window per (function, identifier).
type RateLimiter struct {
	store      RateLimitStore
	opts       RateLimiterOptions
	sweepPacer *rate.Limiter
}

func NewRateLimiter(store RateLimitStore, opts RateLimiterOptions) *RateLimiter {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.SweepBatchSize <= 0 || opts.SweepBatchSize > DefaultSweepBatchSize {
		opts.SweepBatchSize = DefaultSweepBatchSize
	}
	if opts.SweepMaxBatches <= 0 {
		opts.SweepMaxBatches = DefaultSweepMaxBatches
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	pace := rate.Inf
	if opts.SweepBatchesPerSec > 0 {
		pace = rate.Limit(opts.SweepBatchesPerSec)
	}
	return &RateLimiter{
		store:      store,
		opts:       opts,
		sweepPacer: rate.NewLimiter(pace, 1),
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// StorageKey combines function and identifier into a key safe for any backend.
func StorageKey(functionName, identifier string) string {
	return unsafeKeyChars.ReplaceAllString(functionName+"_"+identifier, "_")
}

func validateConfig(cfg model.RateLimitConfig) error {
	if cfg.MaxRequests <= 0 {
		return fmt.Errorf("max requests must be positive, got %d", cfg.MaxRequests)
	}
	if cfg.Window <= 0 {
		return fmt.Errorf("window must be positive, got %s", cfg.Window)
	}
	return nil
}

// Check counts one request against the window. Store failures fail open,
// except contention: a key still contended at the deadline is denied.
func (l *RateLimiter) Check(ctx context.Context, functionName, identifier string, cfg model.RateLimitConfig) model.RateLimitResult {
	if cfg.Skip != nil && cfg.Skip(ctx) {
		metrics.RateLimitDecisions.WithLabelValues(functionName, "skipped").Inc()
		return l.openResult(cfg)
	}
	if err := validateConfig(cfg); err != nil {
		logger.Error("invalid rate limit config, allowing request", "function", functionName, "error", err)
		return l.openResult(cfg)
	}

	key := model.RateLimitKey{
		Key:          StorageKey(functionName, identifier),
		FunctionName: functionName,
		Identifier:   identifier,
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()

	var result model.RateLimitResult
	err := l.store.Update(ctx, key, func(rec *model.RateLimitRecord, now time.Time) (*model.RateLimitRecord, error) {
		active := activeRequests(rec, now, cfg.Window)
		count := len(active)
		allowed := count < cfg.MaxRequests

		result = model.RateLimitResult{Allowed: allowed}
		if !allowed {
			result.Remaining = 0
			result.ResetAt = resetAt(active, now, cfg.Window)
			return nil, nil
		}

		active = append(active, now)
		result.Remaining = max(0, cfg.MaxRequests-count-1)
		result.ResetAt = resetAt(active, now, cfg.Window)

		next := &model.RateLimitRecord{
			Key:          key.Key,
			FunctionName: functionName,
			Identifier:   identifier,
			Requests:     active,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if rec != nil && !rec.CreatedAt.IsZero() {
			next.CreatedAt = rec.CreatedAt
		}
		return next, nil
	})
	if errors.Is(err, ErrStoreContention) {
		metrics.RateLimitDecisions.WithLabelValues(functionName, "contended").Inc()
		logger.Warn("rate limit key contended past deadline, denying",
			"function", functionName,
			"key", key.Key,
		)
		return model.RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   l.opts.Now().Add(contentionRetryAfter),
		}
	}
	if err != nil {
		metrics.RateLimitFailOpen.WithLabelValues(functionName).Inc()
		logger.Warn("rate limit store unavailable, failing open",
			"function", functionName,
			"key", key.Key,
			"error", err,
		)
		return l.openResult(cfg)
	}

	if result.Allowed {
		metrics.RateLimitDecisions.WithLabelValues(functionName, "allowed").Inc()
	} else {
		metrics.RateLimitDecisions.WithLabelValues(functionName, "denied").Inc()
	}
	return result
}

// Guard runs Check and converts a denial into a RATE_LIMITED AppError.
// Protected work must only run when Guard returns nil.
func (l *RateLimiter) Guard(ctx context.Context, functionName, identifier string, cfg model.RateLimitConfig) (model.RateLimitResult, error) {
	res := l.Check(ctx, functionName, identifier, cfg)
	if !res.Allowed {
		logger.Info("rate limit exceeded",
			"function", functionName,
			"identifier", identifier,
			"reset_at", res.ResetAt,
		)
		return res, apperrors.NewRateLimited(cfg.Message, res.ResetAt)
	}
	return res, nil
}

// Status is a read-only view of the current window; it never writes.
func (l *RateLimiter) Status(ctx context.Context, functionName, identifier string, cfg model.RateLimitConfig) model.RateLimitResult {
	if err := validateConfig(cfg); err != nil {
		return l.openResult(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()

	rec, now, err := l.store.Get(ctx, StorageKey(functionName, identifier))
	if err != nil {
		logger.Warn("rate limit status lookup failed", "function", functionName, "error", err)
		return l.openResult(cfg)
	}

	active := activeRequests(rec, now, cfg.Window)
	count := len(active)
	return model.RateLimitResult{
		Allowed:   count < cfg.MaxRequests,
		Remaining: max(0, cfg.MaxRequests-count),
		ResetAt:   resetAt(active, now, cfg.Window),
	}
}

// Reset deletes the record. It is idempotent and reports failure instead of returning it.
func (l *RateLimiter) Reset(ctx context.Context, functionName, identifier string) bool {
	ctx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()

	key := StorageKey(functionName, identifier)
	if err := l.store.Delete(ctx, key); err != nil {
		logger.Error("rate limit reset failed", "key", key, "error", err)
		return false
	}
	logger.Info("rate limit reset", "key", key)
	return true
}

// Sweep deletes records idle for longer than StaleAfter, one bounded batch at a
// time, until a batch scans fewer candidates than its size or SweepMaxBatches is reached.
func (l *RateLimiter) Sweep(ctx context.Context) (int, error) {
	total := 0
	for i := 0; i < l.opts.SweepMaxBatches; i++ {
		if err := l.sweepPacer.Wait(ctx); err != nil {
			return total, err
		}

		batchCtx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
		batch, err := l.store.DeleteStale(batchCtx, l.opts.StaleAfter, l.opts.SweepBatchSize)
		cancel()

		total += batch.Deleted
		metrics.RateLimitSwept.Add(float64(batch.Deleted))
		if err != nil {
			return total, fmt.Errorf("sweep batch %d: %w", i, err)
		}
		if batch.Scanned < l.opts.SweepBatchSize {
			break
		}
	}
	if total > 0 {
		logger.Info("rate limit sweep finished", "deleted", total)
	}
	return total, nil
}

// List exposes stored records for administration.
func (l *RateLimiter) List(ctx context.Context, prefix string, limit int) ([]*model.RateLimitRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, l.opts.StoreTimeout)
	defer cancel()
	return l.store.List(ctx, prefix, limit)
}

func (l *RateLimiter) openResult(cfg model.RateLimitConfig) model.RateLimitResult {
	return model.RateLimitResult{
		Allowed:   true,
		Remaining: max(0, cfg.MaxRequests),
		ResetAt:   l.opts.Now().Add(cfg.Window),
	}
}

// activeRequests keeps timestamps strictly newer than now-window, preserving order.
func activeRequests(rec *model.RateLimitRecord, now time.Time, window time.Duration) []time.Time {
	if rec == nil || len(rec.Requests) == 0 {
		return []time.Time{}
	}
	windowStart := now.Add(-window)
	active := make([]time.Time, 0, len(rec.Requests))
	for _, ts := range rec.Requests {
		if ts.After(windowStart) {
			active = append(active, ts)
		}
	}
	return active
}

func resetAt(active []time.Time, now time.Time, window time.Duration) time.Time {
	if len(active) == 0 {
		return now.Add(window)
	}
	return active[0].Add(window)
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
)

// Sweeper periodically removes stale rate limit records and expired audit rows.
// It runs on its own goroutine, independent of live checks.
type Sweeper struct {
	limiter        *RateLimiter
	audit          *AuditService
	interval       time.Duration
	auditRetention time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSweeper(limiter *RateLimiter, audit *AuditService, interval, auditRetention time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		limiter:        limiter,
		audit:          audit,
		interval:       interval,
		auditRetention: auditRetention,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.runLoop()
}

// Stop cancels any in-flight sweep and waits for the loop to exit.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Sweeper) runLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// RunOnce performs one sweep pass; errors are logged, never returned.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if s.limiter != nil {
		deleted, err := s.limiter.Sweep(ctx)
		if err != nil {
			logger.Error("rate limit sweep failed", "deleted", deleted, "error", err)
		}
	}
	if s.audit != nil && s.auditRetention > 0 {
		n, err := s.audit.Cleanup(ctx, s.auditRetention)
		if err != nil {
			logger.Error("audit cleanup failed", "error", err)
		} else if n > 0 {
			logger.Info("audit cleanup finished", "deleted", n)
		}
	}
}

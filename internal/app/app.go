package app

import (
	"context"
	"fmt"
	"time"

	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/handler"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/middleware"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/repository"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
	"gorm.io/gorm"
)

// App holds the wired services for the server and the admin CLI.
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *repository.RedisClient
	Limiter     *service.RateLimiter
	Presets     *service.Presets
	OTP         *service.OTPService
	Risk        *service.RiskService
	Audit       *service.AuditService
	Sweeper     *service.Sweeper
	Idempotency middleware.IdempotencyStore
}

// New connects the configured backends. Redis and Postgres are optional for
// everything except the rate limit backend that names them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.Redis.Addr != "" {
		client, err := repository.NewRedisClient(cfg)
		if err != nil {
			if cfg.RateLimit.Backend == "redis" {
				return nil, fmt.Errorf("connect redis: %w", err)
			}
			logger.Error("⚠️ Failed to connect to Redis, falling back to memory", "error", err)
		} else {
			logger.Info("✅ Connected to Redis")
			a.Redis = client
		}
	}

	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg)
		if err != nil {
			if cfg.RateLimit.Backend == "postgres" {
				a.Close()
				return nil, fmt.Errorf("connect postgres: %w", err)
			}
			logger.Error("⚠️ Failed to connect to DB, falling back to memory", "error", err)
		} else {
			logger.Info("✅ Connected to PostgreSQL")
			a.DB = db
			if cfg.Database.AutoMigrate {
				if err := repository.Migrate(ctx, db); err != nil {
					a.Close()
					return nil, err
				}
			}
		}
	}

	var store service.RateLimitStore
	switch cfg.RateLimit.Backend {
	case "redis":
		store = repository.NewRedisRateLimitRepo(a.Redis, cfg.Redis.KeyPrefix, cfg.RateLimit.MaxRetries)
	case "postgres":
		store = repository.NewPostgresRateLimitRepo(a.DB)
	default:
		store = service.NewMemoryRateLimitStore()
	}
	logger.Info("rate limit store selected", "backend", cfg.RateLimit.Backend)

	a.Presets = service.NewPresets(cfg.RateLimit.Presets)
	a.Limiter = service.NewRateLimiter(store, service.RateLimiterOptions{
		StoreTimeout:       time.Duration(cfg.RateLimit.StoreTimeoutMs) * time.Millisecond,
		StaleAfter:         time.Duration(cfg.RateLimit.StaleAfterHours) * time.Hour,
		SweepBatchSize:     cfg.RateLimit.SweepBatchSize,
		SweepMaxBatches:    cfg.RateLimit.SweepMaxBatches,
		SweepBatchesPerSec: cfg.RateLimit.SweepBatchesPerSec,
	})

	// Audit persistence (Postgres > Redis > local file only)
	var auditRepo service.AuditRepo
	switch {
	case a.DB != nil:
		auditRepo = repository.NewPostgresAuditRepo(a.DB)
	case a.Redis != nil:
		auditRepo = repository.NewRedisAuditRepo(a.Redis, cfg.Redis.KeyPrefix, cfg.Redis.AuditListKey, cfg.Redis.AuditListMax)
	}
	audit, err := service.NewAuditService(cfg.Audit.LogDir, cfg.Audit.BufferSize, auditRepo)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init audit service: %w", err)
	}
	a.Audit = audit

	var merchants service.MerchantRepo = repository.NewMemoryMerchantRepo()
	if a.DB != nil {
		merchants = repository.NewPostgresMerchantRepo(a.DB)
	}
	a.Risk = service.NewRiskService(service.NewRiskScorer(), merchants)

	var codes service.OTPCodeStore = repository.NewMemoryOTPStore(nil)
	a.Idempotency = repository.NewInMemIdempotencyStore(0)
	if a.Redis != nil {
		codes = repository.NewRedisOTPStore(a.Redis, cfg.Redis.KeyPrefix)
		a.Idempotency = repository.NewRedisIdempotencyStore(a.Redis, cfg.Redis.KeyPrefix, 0)
	}
	a.OTP = service.NewOTPService(a.Limiter, a.Presets, service.LogOTPSender{}, codes, service.OTPOptions{
		Length:      cfg.OTP.Length,
		TTL:         time.Duration(cfg.OTP.TTLSeconds) * time.Second,
		MaxAttempts: cfg.OTP.MaxAttempts,
	})

	a.Sweeper = service.NewSweeper(
		a.Limiter,
		a.Audit,
		time.Duration(cfg.RateLimit.SweepIntervalMinute)*time.Minute,
		time.Duration(cfg.Database.AuditRetentionDays)*24*time.Hour,
	)
	return a, nil
}

func (a *App) Deps() handler.Deps {
	return handler.Deps{
		Limiter:     a.Limiter,
		Presets:     a.Presets,
		OTP:         a.OTP,
		Risk:        a.Risk,
		Audit:       a.Audit,
		Idempotency: a.Idempotency,
		Health:      a.healthChecks(),
	}
}

func (a *App) healthChecks() map[string]handler.HealthCheck {
	checks := make(map[string]handler.HealthCheck)
	if a.Redis != nil {
		checks["redis"] = a.Redis.Ping
	}
	if a.DB != nil {
		db := a.DB
		checks["postgres"] = func(ctx context.Context) error { return repository.PingDB(ctx, db) }
	}
	return checks
}

// Close releases connections; it flushes the audit writer first.
func (a *App) Close() {
	if a.Audit != nil {
		a.Audit.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}
	if a.DB != nil {
		if err := repository.CloseDB(a.DB); err != nil {
			logger.Warn("db close failed", "error", err)
		}
	}
}

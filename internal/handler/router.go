package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/middleware"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Limiter     *service.RateLimiter
	Presets     *service.Presets
	OTP         *service.OTPService
	Risk        *service.RiskService
	Audit       *service.AuditService
	Idempotency middleware.IdempotencyStore
	Health      map[string]HealthCheck
}

func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// ErrorHandler sits inside the audit middleware so error responses are captured.
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware(deps.Audit, "/health", cfg.Metrics.Path))
	r.Use(middleware.ErrorHandler())

	r.GET("/health", NewHealthHandler(deps.Health).Health)
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	otpHandler := NewOTPHandler(deps.OTP)
	rlHandler := NewRateLimitHandler(deps.Limiter, deps.Presets)
	riskHandler := NewRiskHandler(deps.Risk)
	auditHandler := NewAuditHandler(deps.Audit)

	v1 := r.Group("/v1")
	v1.Use(middleware.APIRateLimit(deps.Limiter, deps.Presets))

	otp := v1.Group("/otp")
	if deps.Idempotency != nil {
		otp.Use(middleware.IdempotencyMiddleware(deps.Idempotency))
	}
	{
		otp.POST("/send", otpHandler.Send)
		otp.POST("/verify", otpHandler.Verify)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("/ratelimits", rlHandler.List)
		admin.GET("/ratelimits/presets", rlHandler.Presets)
		admin.POST("/ratelimits/sweep", rlHandler.Sweep)
		admin.GET("/ratelimits/:function/:identifier", rlHandler.Status)
		admin.DELETE("/ratelimits/:function/:identifier", rlHandler.Reset)

		admin.POST("/risk/score", riskHandler.Score)
		admin.GET("/merchants/:id/risk", riskHandler.MerchantRisk)
		admin.PUT("/merchants/:id", riskHandler.UpsertMerchant)

		admin.GET("/audit", auditHandler.List)
	}

	return r
}

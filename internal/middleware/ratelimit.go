package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// APIRateLimit applies the generic api_read / api_write presets per client IP.
func APIRateLimit(limiter *service.RateLimiter, presets *service.Presets) gin.HandlerFunc {
	read := presets.MustGet(service.FnAPIRead)
	write := presets.MustGet(service.FnAPIWrite)

	return func(c *gin.Context) {
		fn, cfg := service.FnAPIWrite, write
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			fn, cfg = service.FnAPIRead, read
		}

		res := limiter.Check(c.Request.Context(), fn, c.ClientIP(), cfg)
		SetRateLimitHeaders(c, cfg, res)
		if !res.Allowed {
			// 超限：交给 ErrorHandler 统一输出 429
			_ = c.Error(apperrors.NewRateLimited(cfg.Message, res.ResetAt))
			c.Abort()
			return
		}
		c.Next()
	}
}

func SetRateLimitHeaders(c *gin.Context, cfg model.RateLimitConfig, res model.RateLimitResult) {
	c.Header(HeaderRateLimitLimit, strconv.Itoa(cfg.MaxRequests))
	c.Header(HeaderRateLimitRemaining, strconv.Itoa(res.Remaining))
	c.Header(HeaderRateLimitReset, strconv.FormatInt(res.ResetAt.Unix(), 10))
}

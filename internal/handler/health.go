package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/logger"
)

// HealthCheck pings one backend.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Health reports 503 when a configured backend is unreachable. The limiter
// itself keeps serving (fail-open), so this is for operators, not for routing.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	backends := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			logger.Warn("health check failed", "backend", name, "error", err)
			backends[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		backends[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "service": "quickpaylink-guard", "backends": backends})
}

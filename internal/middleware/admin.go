package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/config"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
)

const (
	HeaderAdminKey  = "X-Admin-Key"
	ContextActorKey = "actor"
	ActorAdmin      = "admin"
)

// AdminMiddleware protects the /v1/admin group with a shared key.
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminKey == "" {
			_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "admin key not configured", nil))
			c.Abort()
			return
		}
		got := c.GetHeader(HeaderAdminKey)
		if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.Auth.AdminKey)) != 1 {
			_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid admin key", nil))
			c.Abort()
			return
		}
		c.Set(ContextActorKey, ActorAdmin)
		c.Next()
	}
}

package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
)

type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List returns audit entries, newest first. Filters: actor ("admin" or a client IP), from, to, limit.
func (h *AuditHandler) List(c *gin.Context) {
	from, err := timeParam(c, "from")
	if err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	to, err := timeParam(c, "to")
	if err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	if from != nil && to != nil && from.After(*to) {
		_ = c.Error(apperrors.NewInvalidRequest("from must not be after to"))
		return
	}

	records, err := h.svc.List(c.Request.Context(), c.Query("actor"), queryInt(c, "limit", 100), from, to)
	if err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInternal, "failed to list audit logs", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": records, "count": len(records)})
}

// timeParam accepts RFC 3339 or unix seconds; an absent param yields nil.
func timeParam(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t := time.Unix(unix, 0).UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("invalid %s: want RFC 3339 or unix seconds", key)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return fallback
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/middleware"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
)

type RateLimitHandler struct {
	limiter *service.RateLimiter
	presets *service.Presets
}

func NewRateLimitHandler(limiter *service.RateLimiter, presets *service.Presets) *RateLimitHandler {
	return &RateLimitHandler{limiter: limiter, presets: presets}
}

type rateLimitStatusResponse struct {
	Key          string `json:"key"`
	FunctionName string `json:"functionName"`
	Identifier   string `json:"identifier"`
	Preset       string `json:"preset"`
	MaxRequests  int    `json:"maxRequests"`
	WindowMs     int64  `json:"windowMs"`
	model.RateLimitResult
}

func (h *RateLimitHandler) List(c *gin.Context) {
	records, err := h.limiter.List(c.Request.Context(), c.Query("prefix"), queryInt(c, "limit", 100))
	if err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInternal, "failed to list rate limits", err))
		return
	}
	c.JSON(http.StatusOK, records)
}

// Status reports usage without counting a request. The preset defaults to the function name.
func (h *RateLimitHandler) Status(c *gin.Context) {
	fn, id := c.Param("function"), c.Param("identifier")
	presetName := c.DefaultQuery("preset", fn)
	cfg, err := h.presets.Get(presetName)
	if err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	res := h.limiter.Status(c.Request.Context(), fn, id, cfg)
	c.JSON(http.StatusOK, rateLimitStatusResponse{
		Key:             service.StorageKey(fn, id),
		FunctionName:    fn,
		Identifier:      id,
		Preset:          presetName,
		MaxRequests:     cfg.MaxRequests,
		WindowMs:        cfg.Window.Milliseconds(),
		RateLimitResult: res,
	})
}

func (h *RateLimitHandler) Reset(c *gin.Context) {
	fn, id := c.Param("function"), c.Param("identifier")
	middleware.AddAuditContext(c, "ratelimit_key", service.StorageKey(fn, id))

	if !h.limiter.Reset(c.Request.Context(), fn, id) {
		_ = c.Error(apperrors.New(apperrors.ErrInternal, "failed to reset rate limit", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true, "key": service.StorageKey(fn, id)})
}

func (h *RateLimitHandler) Sweep(c *gin.Context) {
	deleted, err := h.limiter.Sweep(c.Request.Context())
	middleware.AddAuditContext(c, "deleted", deleted)
	if err != nil {
		_ = c.Error(apperrors.New(apperrors.ErrInternal, "sweep failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *RateLimitHandler) Presets(c *gin.Context) {
	out := make(map[string]gin.H)
	for _, name := range h.presets.Names() {
		cfg := h.presets.MustGet(name)
		out[name] = gin.H{
			"maxRequests": cfg.MaxRequests,
			"windowMs":    cfg.Window.Milliseconds(),
			"message":     cfg.Message,
		}
	}
	c.JSON(http.StatusOK, out)
}

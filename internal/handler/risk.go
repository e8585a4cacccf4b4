package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/middleware"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
)

type RiskHandler struct {
	svc *service.RiskService
}

func NewRiskHandler(svc *service.RiskService) *RiskHandler {
	return &RiskHandler{svc: svc}
}

// Score evaluates a merchant snapshot posted in the body; nothing is stored.
func (h *RiskHandler) Score(c *gin.Context) {
	var m model.Merchant
	if err := c.ShouldBindJSON(&m); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	res := h.svc.Evaluate(&m)
	middleware.AddAuditContext(c, "risk_level", res.Level)
	c.JSON(http.StatusOK, res)
}

func (h *RiskHandler) MerchantRisk(c *gin.Context) {
	id := c.Param("id")
	res, err := h.svc.EvaluateMerchant(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "merchant_id", id)
	middleware.AddAuditContext(c, "risk_level", res.Level)
	c.JSON(http.StatusOK, res)
}

func (h *RiskHandler) UpsertMerchant(c *gin.Context) {
	var m model.Merchant
	if err := c.ShouldBindJSON(&m); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}
	id := c.Param("id")
	if m.ID != "" && m.ID != id {
		_ = c.Error(apperrors.NewInvalidRequest("merchant id in body does not match path"))
		return
	}
	m.ID = id

	if err := h.svc.UpsertMerchant(c.Request.Context(), &m); err != nil {
		_ = c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "merchant_id", id)
	c.JSON(http.StatusOK, &m)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/middleware"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/model"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/pkg/apperrors"
	"github.com/n-Qube/quickpaylink-admin-dashboard-sub005/internal/service"
)

type OTPHandler struct {
	svc *service.OTPService
}

func NewOTPHandler(svc *service.OTPService) *OTPHandler {
	return &OTPHandler{svc: svc}
}

func (h *OTPHandler) Send(c *gin.Context) {
	var req model.OTPSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	res, err := h.svc.Send(c.Request.Context(), req.Phone)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		_ = c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "message_id", res.MessageID)
	c.JSON(http.StatusOK, res)
}

func (h *OTPHandler) Verify(c *gin.Context) {
	var req model.OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	if err := h.svc.Verify(c.Request.Context(), req.Phone, req.Code); err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		_ = c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "status", "verified")
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

package handler

import (
	"net/http"

	"github.com/GoPolymarket/sxgate/internal/middleware"
	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/gin-gonic/gin"
)

// OrderHandler serves the signing endpoints: maker orders, fills, cancels.
type OrderHandler struct {
	svc *service.GatewayService
}

func NewOrderHandler(svc *service.GatewayService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

func (h *OrderHandler) PlaceOrders(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	middleware.SetAuditKind(c, model.AuditKindOrder)
	var req model.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	resp, err := h.svc.PlaceOrders(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	hashes := make([]string, len(resp.Orders))
	for i, o := range resp.Orders {
		hashes[i] = o.OrderHash
	}
	middleware.AddAuditContext(c, "order_hashes", hashes)
	middleware.AddAuditContext(c, "signer", account.Address)
	middleware.AddAuditContext(c, "submitted", resp.Submitted)
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Fill(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	middleware.SetAuditKind(c, model.AuditKindFill)
	var req model.FillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	resp, err := h.svc.Fill(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "order_hashes", resp.Payload.OrderHashes)
	middleware.AddAuditContext(c, "signer", resp.Payload.Taker)
	middleware.AddAuditContext(c, "submitted", resp.Submitted)
	c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	middleware.SetAuditKind(c, model.AuditKindCancel)
	var req model.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}

	resp, err := h.svc.Cancel(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "order_hashes", resp.Payload.OrderHashes)
	middleware.AddAuditContext(c, "signer", resp.Payload.Maker)
	middleware.AddAuditContext(c, "submitted", resp.Submitted)
	c.JSON(http.StatusOK, resp)
}

// Quote is GET /v1/odds.
func (h *OrderHandler) Quote(c *gin.Context) {
	var q model.OddsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(bindError(err))
		return
	}
	quote, err := h.svc.Quote(q)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Panic 紧急停止所有签名 (POST 开启, DELETE 解除)
func (h *OrderHandler) Panic(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	if c.Request.Method == http.MethodDelete {
		h.svc.ResetPanicMode(c.Request.Context(), account)
	} else {
		h.svc.ActivatePanicMode(c.Request.Context(), account)
	}
	middleware.AddAuditContext(c, "panic_mode", h.svc.PanicMode())
	c.JSON(http.StatusOK, gin.H{"panic_mode": h.svc.PanicMode()})
}

func mustAccount(c *gin.Context) (*model.Account, bool) {
	account, ok := middleware.AccountFromContext(c)
	if !ok {
		c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized: missing account context", nil))
		return nil, false
	}
	return account, true
}

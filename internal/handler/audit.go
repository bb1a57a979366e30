package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

type auditQuery struct {
	Kind  string `form:"kind" binding:"omitempty,oneof=order fill cancel"`
	Limit int    `form:"limit" binding:"omitempty,min=1,max=1000"`
	From  string `form:"from"`
	To    string `form:"to"`
}

// List returns the caller's own audit records, newest first. from/to take
// RFC3339 or unix seconds.
func (h *AuditHandler) List(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(bindError(err))
		return
	}

	f := model.AuditFilter{AccountID: account.ID, Kind: q.Kind, Limit: q.Limit}
	var err error
	if f.From, err = parseTime("from", q.From); err != nil {
		c.Error(err)
		return
	}
	if f.To, err = parseTime("to", q.To); err != nil {
		c.Error(err)
		return
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		c.Error(apperrors.NewValidation("to", "must not be before from"))
		return
	}

	records, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		c.Error(apperrors.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func parseTime(field, raw string) (*time.Time, error) {
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
	return nil, apperrors.NewValidation(field, "expected RFC3339 or unix seconds")
}

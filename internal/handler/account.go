package handler

import (
	"net/http"
	"sort"

	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accounts *service.AccountManager
}

func NewAccountHandler(accounts *service.AccountManager) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Me returns the calling account with its gateway key masked.
func (h *AccountHandler) Me(c *gin.Context) {
	account, ok := mustAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, account.Masked())
}

// List is the admin view of every registered account.
func (h *AccountHandler) List(c *gin.Context) {
	accounts := h.accounts.List()
	out := make([]model.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Masked())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (h *AccountHandler) Get(c *gin.Context) {
	a, ok := h.accounts.GetByID(c.Param("id"))
	if !ok {
		c.Error(apperrors.New(apperrors.ErrNotFound, "account not found", nil))
		return
	}
	c.JSON(http.StatusOK, a.Masked())
}

package middleware

import (
	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/model"
	"github.com/GoPolymarket/sxgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	HeaderGatewayKey  = "X-Gateway-Key"
	ContextAccountKey = "account"
)

// AuthMiddleware resolves X-Gateway-Key to an account. With
// auth.require_api_key off, requests without a key use the default account.
func AuthMiddleware(cfg *config.Config, am *service.AccountManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderGatewayKey)
		if apiKey == "" {
			if cfg != nil && !cfg.Auth.RequireAPIKey {
				if account := am.DefaultAccount(); account != nil {
					c.Set(ContextAccountKey, account)
					c.Next()
					return
				}
			}
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing API key", nil))
			c.Abort()
			return
		}

		account, ok := am.GetByApiKey(apiKey)
		if !ok {
			c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid API key", nil))
			c.Abort()
			return
		}

		// 将账户信息存入上下文
		c.Set(ContextAccountKey, account)
		c.Next()
	}
}

// AccountFromContext returns the account set by AuthMiddleware.
func AccountFromContext(c *gin.Context) (*model.Account, bool) {
	val, exists := c.Get(ContextAccountKey)
	if !exists {
		return nil, false
	}
	account, ok := val.(*model.Account)
	return account, ok && account != nil
}

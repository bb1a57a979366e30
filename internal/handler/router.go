package handler

import (
	"net/http"

	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/middleware"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	Config      *config.Config
	Accounts    *service.AccountManager
	Gateway     *service.GatewayService
	Audit       *service.AuditService
	Idempotency middleware.IdempotencyStore
}

// NewRouter wires middleware and routes. Audit wraps ErrorHandler so error
// bodies land in the audit record.
func NewRouter(opts RouterOptions) *gin.Engine {
	cfg := opts.Config
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	if opts.Audit != nil {
		r.Use(middleware.AuditMiddleware(opts.Audit, "/health", cfg.Metrics.Path))
	}
	r.Use(middleware.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "sxgate", "panic_mode": opts.Gateway.PanicMode()})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	idem := opts.Idempotency
	if idem == nil {
		idem = middleware.NewInMemIdempotencyStore()
	}
	orderHandler := NewOrderHandler(opts.Gateway)
	accountHandler := NewAccountHandler(opts.Accounts)

	v1 := r.Group("/v1")
	v1.Use(middleware.AuthMiddleware(cfg, opts.Accounts))
	v1.Use(middleware.RateLimitMiddleware(opts.Accounts))
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly))
	v1.Use(middleware.IdempotencyMiddleware(idem))
	{
		v1.POST("/orders", orderHandler.PlaceOrders)
		v1.POST("/fills", orderHandler.Fill)
		v1.POST("/cancels", orderHandler.Cancel)
		v1.GET("/odds", orderHandler.Quote)
		v1.POST("/panic", orderHandler.Panic)
		v1.DELETE("/panic", orderHandler.Panic)
		v1.GET("/account", accountHandler.Me)
		if opts.Audit != nil {
			v1.GET("/audit", NewAuditHandler(opts.Audit).List)
		}
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AdminMiddleware(cfg))
	{
		admin.GET("/accounts", accountHandler.List)
		admin.GET("/accounts/:id", accountHandler.Get)
	}
	return r
}

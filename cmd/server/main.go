package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/sxgate/internal/config"
	"github.com/GoPolymarket/sxgate/internal/exchange"
	"github.com/GoPolymarket/sxgate/internal/handler"
	"github.com/GoPolymarket/sxgate/internal/middleware"
	"github.com/GoPolymarket/sxgate/internal/pkg/logger"
	"github.com/GoPolymarket/sxgate/internal/repository"
	"github.com/GoPolymarket/sxgate/internal/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

func main() {
	// 0. Initialize Logger
	logger.Init("info")

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	// 2. Resolve protocol addresses (config > /metadata)
	exchangeClient := exchange.NewClient(cfg.Exchange.BaseURL,
		time.Duration(cfg.Exchange.TimeoutMs)*time.Millisecond, cfg.Exchange.Retries)
	if cfg.Exchange.FetchMetadata && cfg.Exchange.BaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		md, err := exchangeClient.Metadata(ctx)
		cancel()
		if err != nil {
			logger.Error("metadata fetch failed, using configured protocol addresses", "error", err)
		} else if filled := md.ApplyTo(&cfg.Protocol); len(filled) > 0 {
			logger.Info("protocol settings taken from exchange metadata", "fields", filled)
		}
	}
	if exchange.NeedsMetadata(cfg.Protocol) {
		logger.Warn("protocol addresses incomplete; order and fill signing will be refused",
			"fill_hasher", cfg.Protocol.FillHasher, "executor", cfg.Protocol.Executor, "base_token", cfg.Protocol.BaseToken)
	}

	// 3. Optional chain sanity check; never blocks startup
	if cfg.Chain.RPCURL != "" {
		checker := service.NewChainChecker(cfg.Chain.RPCURL,
			time.Duration(cfg.Chain.TimeoutMs)*time.Millisecond, cfg.Chain.Retries)
		go func() {
			defer checker.Close()
			checker.CheckAndLog(context.Background(), cfg.Protocol.ChainID, common.HexToAddress(cfg.Protocol.FillHasher))
		}()
	}

	// 4. Initialize Persistence
	// Usage + idempotency (Redis > Memory)
	var (
		usageRepo   service.UsageRepo
		idemStore   middleware.IdempotencyStore
		auditRepo   service.AuditRepo
		redisClient *repository.RedisClient
	)
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg.Redis)
		if err == nil {
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
			usageRepo = repository.NewRedisUsageRepo(redisClient, cfg.Redis.UsageKeyPrefix)
			idemStore = repository.NewRedisIdempotencyStore(redisClient,
				time.Duration(cfg.Redis.IdempotencyTTLSeconds)*time.Second)
		} else {
			logger.Error("failed to connect to redis, falling back to memory", "error", err)
			redisClient = nil
		}
	}
	if usageRepo == nil {
		usageRepo = service.NewRiskUsageStore()
	}
	if idemStore == nil {
		idemStore = middleware.NewInMemIdempotencyStore()
	}

	// Audit (Postgres > Redis list > local file only)
	var pgAudit *repository.PostgresAuditRepo
	if cfg.Database.DSN != "" {
		db, err := repository.NewDB(cfg.Database)
		if err == nil {
			pgAudit, err = repository.NewPostgresAuditRepo(db)
		}
		if err == nil {
			logger.Info("connected to postgres")
			auditRepo = pgAudit
		} else {
			logger.Error("failed to init postgres audit store, audit logs will be file-only", "error", err)
		}
	}
	if auditRepo == nil && redisClient != nil {
		auditRepo = repository.NewRedisAuditRepo(redisClient, "", 0)
	}

	// 5. Initialize Core Services
	accounts, err := service.NewAccountManagerFromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to load accounts: %v", err)
	}
	if len(accounts.List()) == 0 {
		logger.Warn("no accounts configured; every /v1 request will be rejected")
	}

	orders, fills, cancels, err := service.BuildersFromConfig(cfg.Protocol, nil)
	if err != nil {
		log.Fatalf("Failed to initialize signer: %v", err)
	}
	var submitter service.Exchange
	if cfg.Exchange.BaseURL != "" {
		submitter = exchangeClient
	}
	gatewaySvc := service.NewGatewayService(service.GatewayOptions{
		Accounts:          accounts,
		Risk:              service.NewRiskEngine(usageRepo),
		Orders:            orders,
		Fills:             fills,
		Cancels:           cancels,
		Exchange:          submitter,
		BaseTokenDecimals: cfg.Protocol.BaseTokenDecimals,
		LadderStepBps:     cfg.Protocol.LadderStepBps,
	})

	auditSvc, err := service.NewAuditService(cfg.Server.AuditDir, auditRepo)
	if err != nil {
		log.Fatalf("Failed to initialize audit service: %v", err)
	}

	stopCleanup := make(chan struct{})
	if pgAudit != nil && cfg.Database.AuditRetentionDays > 0 {
		go runAuditCleanup(pgAudit, time.Duration(cfg.Database.AuditRetentionDays)*24*time.Hour, stopCleanup)
	}

	// 6. Setup Router
	gin.SetMode(gin.ReleaseMode)
	r := handler.NewRouter(handler.RouterOptions{
		Config:      cfg,
		Accounts:    accounts,
		Gateway:     gatewaySvc,
		Audit:       auditSvc,
		Idempotency: idemStore,
	})

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("sxgate started", "port", cfg.Server.Port, "chain_id", cfg.Protocol.ChainID, "read_only", cfg.Server.ReadOnly)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	close(stopCleanup)
	auditSvc.Close()
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("server exiting")
}

func runAuditCleanup(repo *repository.PostgresAuditRepo, retention time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		n, err := repo.Cleanup(ctx, retention)
		cancel()
		if err != nil {
			logger.Error("audit cleanup failed", "error", err)
		} else if n > 0 {
			logger.Info("audit cleanup removed old records", "rows", n)
		}
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

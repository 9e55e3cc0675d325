package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fanvault/creator-payouts/internal/api"
	"github.com/fanvault/creator-payouts/internal/api/middleware"
	"github.com/fanvault/creator-payouts/internal/config"
	"github.com/fanvault/creator-payouts/internal/db"
	"github.com/fanvault/creator-payouts/internal/gateway"
	"github.com/fanvault/creator-payouts/internal/notify"
	"github.com/fanvault/creator-payouts/internal/observability"
	"github.com/fanvault/creator-payouts/internal/quota"
	"github.com/fanvault/creator-payouts/internal/repository"
	"github.com/fanvault/creator-payouts/internal/service"
	"github.com/fanvault/creator-payouts/internal/worker"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Run bootstraps the HTTP server and background workers, blocking until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	observability.Init()
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	store := repository.NewStore(pool).WithLockTimeout(cfg.LockTimeout)

	notifier := notify.NewDispatcher(notify.NewLogSink(logger), cfg.NotifyBuffer)
	defer notifier.Close()

	attemptQuota := quota.NewLimiter(redisClient, cfg.QuotaLimit, cfg.QuotaWindow)

	balanceSvc := service.NewBalanceService(store)
	requestSvc := service.NewPayoutRequestService(store, notifier).WithQuota(attemptQuota)
	reviewSvc := service.NewReviewService(store, notifier)
	outcomeSvc := service.NewOutcomeService(store, notifier)
	dispatchSvc := service.NewDispatchService(store, gateway.NewMockProcessor(), outcomeSvc)
	integritySvc := service.NewIntegrityService(store)

	payoutWorker := worker.NewPayoutWorker(dispatchSvc).
		WithPollInterval(cfg.PayoutPollInterval).
		WithBatchSize(cfg.PayoutBatchSize)
	integrityWorker := worker.NewIntegrityWorker(integritySvc).
		WithInterval(cfg.IntegrityInterval)

	stopPayoutWorker := payoutWorker.Run(ctx)
	stopIntegrityWorker := integrityWorker.Run(ctx)
	logger.Info("workers started",
		zap.Duration("payout_poll_interval", cfg.PayoutPollInterval),
		zap.Int32("payout_batch_size", cfg.PayoutBatchSize),
		zap.Duration("integrity_interval", cfg.IntegrityInterval))

	router := api.NewRouter(cfg, logger, pool, redisClient, api.Services{
		Balance:  balanceSvc,
		Requests: requestSvc,
		Reviews:  reviewSvc,
		Outcomes: outcomeSvc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("port", cfg.HTTPPort))
		serverErr <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("stopping workers")
	stopPayoutWorker()
	stopIntegrityWorker()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch strings.ToLower(level) {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info", "":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func newRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

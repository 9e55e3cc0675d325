package api

import (
	"github.com/fanvault/creator-payouts/internal/api/handler"
	"github.com/fanvault/creator-payouts/internal/api/middleware"
	"github.com/fanvault/creator-payouts/internal/api/spec"
	"github.com/fanvault/creator-payouts/internal/config"
	"github.com/fanvault/creator-payouts/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services bundles the business services the router exposes.
type Services struct {
	Balance  *service.BalanceService
	Requests *service.PayoutRequestService
	Reviews  *service.ReviewService
	Outcomes *service.OutcomeService
}

type Router struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *pgxpool.Pool
	redis  redis.Cmdable
	svcs   Services
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db *pgxpool.Pool, redisClient redis.Cmdable, svcs Services) *Router {
	return &Router{
		cfg:    cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
		svcs:   svcs,
	}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	balanceHandler := handler.NewBalanceHandler(api.svcs.Balance)
	requestHandler := handler.NewPayoutRequestHandler(api.svcs.Requests)
	reviewHandler := handler.NewReviewHandler(api.svcs.Reviews)
	webhookHandler := handler.NewWebhookHandler(api.svcs.Outcomes, api.cfg.WebhookHMACKey, api.cfg.WebhookSkipSignature)

	// Operational endpoints, no auth.
	r.Get("/healthz", healthHandler.Live)
	r.Get("/readyz", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", spec.OpenAPIHandler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// Processor callbacks authenticate with an HMAC signature, not a JWT.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/webhooks/payout-outcome", webhookHandler.HandlePayoutOutcome)
	})

	// Authenticated routes.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		r.Get("/v1/creators/{id}/balance", balanceHandler.GetBalance)
		r.Post("/v1/creators/{id}/payout-requests", requestHandler.Create)
		r.Get("/v1/creators/{id}/payout-requests", requestHandler.List)
		r.Get("/v1/payout-requests/{id}", requestHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Post("/v1/payout-requests/{id}/approve", reviewHandler.Approve)
			r.Post("/v1/payout-requests/{id}/reject", reviewHandler.Reject)
		})
	})

	return r
}

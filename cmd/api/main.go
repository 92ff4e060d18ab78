package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luisargote/vendora-backend/api/routes"
	"github.com/luisargote/vendora-backend/internal/address"
	"github.com/luisargote/vendora-backend/internal/carts"
	checkoutsvc "github.com/luisargote/vendora-backend/internal/checkout"
	"github.com/luisargote/vendora-backend/internal/coupons"
	"github.com/luisargote/vendora-backend/internal/ledger"
	"github.com/luisargote/vendora-backend/internal/orders"
	paymentsvc "github.com/luisargote/vendora-backend/internal/payments"
	"github.com/luisargote/vendora-backend/internal/payouts"
	"github.com/luisargote/vendora-backend/internal/pricing"
	"github.com/luisargote/vendora-backend/internal/products"
	"github.com/luisargote/vendora-backend/internal/settings"
	"github.com/luisargote/vendora-backend/internal/vendors"
	"github.com/luisargote/vendora-backend/pkg/config"
	"github.com/luisargote/vendora-backend/pkg/db"
	"github.com/luisargote/vendora-backend/pkg/logger"
	"github.com/luisargote/vendora-backend/pkg/metrics"
	"github.com/luisargote/vendora-backend/pkg/migrate"
	"github.com/luisargote/vendora-backend/pkg/outbox"
	"github.com/luisargote/vendora-backend/pkg/outbox/idempotency"
	"github.com/luisargote/vendora-backend/pkg/redis"
	"github.com/luisargote/vendora-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	gormDB := dbClient.DB()
	cartRepo := carts.NewRepository(gormDB)
	couponRepo := coupons.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	vendorRepo := vendors.NewRepository(gormDB)
	productRepo := products.NewRepository(gormDB)
	addressRepo := address.NewRepository(gormDB)
	ledgerRepo := ledger.NewRepository(gormDB)
	paymentRepo := paymentsvc.NewRepository(gormDB)
	payoutRepo := payouts.NewRepository(gormDB)

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	provider := settings.NewProvider(cfg.Settlement)
	calculator, err := pricing.NewCalculator(provider)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing calculator", err)
		os.Exit(1)
	}

	couponSvc, err := coupons.NewService(couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	checkoutService, err := checkoutsvc.NewService(
		dbClient,
		cartRepo,
		couponSvc,
		couponRepo,
		ordersRepo,
		vendorRepo,
		productRepo,
		addressRepo,
		calculator,
		provider,
		outboxSvc,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	// The payout gateway is optional; without credentials payouts stay
	// pending until an operator wires a gateway.
	var payoutGateway payouts.Gateway
	if cfg.Square.AccessToken != "" {
		squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create square client", err)
			os.Exit(1)
		}
		payoutGateway, err = payouts.NewSquareGateway(squareClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create payout gateway", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "square access token not set, payout gateway disabled")
	}

	payoutEngine, err := payouts.NewEngine(
		dbClient,
		payoutRepo,
		ordersRepo,
		vendorRepo,
		ledgerRepo,
		provider,
		payoutGateway,
		outboxSvc,
		settlementMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout engine", err)
		os.Exit(1)
	}

	webhookGuard, err := idempotency.NewManager(redisClient, cfg.Settlement.WebhookIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	paymentService, err := paymentsvc.NewService(
		dbClient,
		paymentRepo,
		ordersRepo,
		ledgerRepo,
		outboxSvc,
		payoutEngine,
		webhookGuard,
		settlementMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Registry:    registry,
			RateLimiter: redisClient,
			CartRepo:    cartRepo,
			OrdersRepo:  ordersRepo,
			CouponSvc:   couponSvc,
			Calculator:  calculator,
			Checkout:    checkoutService,
			Payments:    paymentService,
			Payouts:     payoutEngine,
		}),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}()

	<-shutdown
	logg.Info(ctx, "shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
	}
}

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mondodoro/mondodoro-backend/api/routes"
	"github.com/mondodoro/mondodoro-backend/internal/contributions"
	"github.com/mondodoro/mondodoro-backend/internal/giftlists"
	"github.com/mondodoro/mondodoro-backend/internal/payees"
	"github.com/mondodoro/mondodoro-backend/internal/platform"
	"github.com/mondodoro/mondodoro-backend/internal/users"
	stripewebhook "github.com/mondodoro/mondodoro-backend/internal/webhooks/stripe"
	"github.com/mondodoro/mondodoro-backend/pkg/config"
	"github.com/mondodoro/mondodoro-backend/pkg/db"
	"github.com/mondodoro/mondodoro-backend/pkg/logger"
	"github.com/mondodoro/mondodoro-backend/pkg/metrics"
	"github.com/mondodoro/mondodoro-backend/pkg/migrate"
	"github.com/mondodoro/mondodoro-backend/pkg/redis"
	pkgstripe "github.com/mondodoro/mondodoro-backend/pkg/stripe"
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

	if _, err := platform.EnsureFeeConfig(context.Background(), dbClient.DB(), cfg.Platform); err != nil {
		logg.Error(context.Background(), "failed to record platform fee config", err)
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	paymentMetrics := metrics.NewPaymentMetrics(prometheus.DefaultRegisterer)

	payeeRepo := payees.NewRepository(dbClient.DB())
	userRepo := users.NewRepository(dbClient.DB())
	giftListRepo := giftlists.NewRepository(dbClient.DB())
	contributionRepo := contributions.NewRepository(dbClient.DB())
	receiptRepo := stripewebhook.NewReceiptRepository(dbClient.DB())

	payeeService, err := payees.NewService(payees.ServiceParams{
		PayeeRepo:         payeeRepo,
		UserRepo:          userRepo,
		StripeClient:      payees.NewConnectClient(stripeClient),
		TransactionRunner: dbClient,
		Logger:            logg,
		BaseURL:           cfg.App.BaseURL,
		AccountCountry:    stripeClient.AccountCountry(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payee service", err)
		os.Exit(1)
	}

	contributionService, err := contributions.NewService(contributions.ServiceParams{
		Repo:              contributionRepo,
		GiftListRepo:      giftListRepo,
		PayeeRepo:         payeeRepo,
		StripeClient:      contributions.NewCheckoutClient(stripeClient),
		TransactionRunner: dbClient,
		Logger:            logg,
		Platform:          cfg.Platform,
		Metrics:           paymentMetrics,
		Cache:             redisClient,
		BaseURL:           cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create contribution service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Receipts:          receiptRepo,
		Ledger:            contributionService,
		Accounts:          payeeService,
		TransactionRunner: dbClient,
		Logger:            logg,
		Metrics:           paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			giftListRepo,
			contributionService,
			payeeService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

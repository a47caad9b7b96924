package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/routes"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/cart"
	checkoutsvc "github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/checkout"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/orders"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/payments"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/internal/tracking"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/db"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/logger"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/metrics"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/migrate"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/mpesa"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/outbox"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/redis"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/square"
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

	mpesaClient, err := mpesa.NewClient(context.Background(), cfg.Mpesa, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap mpesa client", err)
		os.Exit(1)
	}
	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	mpesaGateway, err := payments.NewMpesaGateway(mpesaClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create mpesa gateway", err)
		os.Exit(1)
	}
	cardGateway, err := payments.NewCardGateway(squareClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create card gateway", err)
		os.Exit(1)
	}
	dispatcher, err := payments.NewDispatcher(mpesaGateway, cardGateway, payments.NewCashGateway())
	if err != nil {
		logg.Error(context.Background(), "failed to create payment dispatcher", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	checkoutService, err := checkoutsvc.NewService(
		cartService,
		ordersRepo,
		dbClient,
		dispatcher,
		outboxService,
		checkoutsvc.NewPricer(cfg.Checkout, cfg.Shipping),
		logg,
		checkoutMetrics,
		cfg.Checkout,
		checkoutsvc.SleepDelayer,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	tracker, err := tracking.NewTracker(ordersService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order tracker", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, cartService, checkoutService, ordersService, tracker, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

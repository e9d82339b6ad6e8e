package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fflcommerce/checkout-backend/api/routes"
	"github.com/fflcommerce/checkout-backend/internal/carts"
	"github.com/fflcommerce/checkout-backend/internal/checkout"
	"github.com/fflcommerce/checkout-backend/internal/classify"
	"github.com/fflcommerce/checkout-backend/internal/dealers"
	"github.com/fflcommerce/checkout-backend/internal/gating"
	"github.com/fflcommerce/checkout-backend/internal/orders"
	"github.com/fflcommerce/checkout-backend/internal/products"
	"github.com/fflcommerce/checkout-backend/internal/profiles"
	"github.com/fflcommerce/checkout-backend/internal/restrictions"
	"github.com/fflcommerce/checkout-backend/internal/savedcart"
	"github.com/fflcommerce/checkout-backend/internal/session"
	"github.com/fflcommerce/checkout-backend/pkg/config"
	"github.com/fflcommerce/checkout-backend/pkg/db"
	"github.com/fflcommerce/checkout-backend/pkg/logger"
	"github.com/fflcommerce/checkout-backend/pkg/metrics"
	"github.com/fflcommerce/checkout-backend/pkg/migrate"
	"github.com/fflcommerce/checkout-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
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

	sessions, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	restrictionsMetrics := metrics.NewRestrictionsMetrics(registry)
	gatingMetrics := metrics.NewGatingMetrics(registry)

	restrictionsService, err := restrictions.NewService(cfg.Restrictions, redisClient, restrictionsMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create restrictions service", err)
		os.Exit(1)
	}

	analyzer, err := classify.NewAnalyzer(restrictionsService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart analyzer", err)
		os.Exit(1)
	}

	cartsRepo := carts.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	profilesRepo := profiles.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())

	gatingService, err := gating.NewService(analyzer, sessions, cartsRepo, ordersRepo, gatingMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gating service", err)
		os.Exit(1)
	}

	savedCartService, err := savedcart.NewService(redisClient, cartsRepo, productsRepo, ordersRepo, sessions, analyzer, cfg.SavedCart, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create saved-cart service", err)
		os.Exit(1)
	}

	dealerService, err := dealers.NewService(cfg.Dealer, ordersRepo, profilesRepo, sessions, gatingService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dealer service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.Params{
		DB:       dbClient,
		Carts:    cartsRepo,
		Orders:   ordersRepo,
		Sessions: sessions,
		Analyzer: analyzer,
		Gate:     gatingService,
		Dealers:  dealerService,
		Saved:    savedCartService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			redisClient,
			dbClient,
			redisClient,
			checkoutService,
			gatingService,
			dealerService,
			savedCartService,
			sessions,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

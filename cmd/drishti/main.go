package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/drishti-pos/drishti-pos/internal/app"
	"github.com/drishti-pos/drishti-pos/internal/catalog"
	"github.com/drishti-pos/drishti-pos/internal/db"
	"github.com/drishti-pos/drishti-pos/internal/loyalty"
	"github.com/drishti-pos/drishti-pos/internal/observability"
	"github.com/drishti-pos/drishti-pos/internal/orders"
	"github.com/drishti-pos/drishti-pos/internal/sequence"
	"github.com/drishti-pos/drishti-pos/internal/shared"
	"github.com/drishti-pos/drishti-pos/internal/stock"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	terminals := app.NewTerminalStore(pool)

	catalogRepo := catalog.NewRepository(pool)
	catalogHandler := catalog.NewHandler(logger, catalogRepo)

	loyaltyRepo := loyalty.NewRepository(pool)
	pointsCache := loyalty.NewPointsCache(redisClient, 15*time.Minute)
	loyaltyHandler := loyalty.NewHandler(logger, loyaltyRepo, pointsCache)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, auditLogger)
	stockHandler := stock.NewHandler(logger, stockService)

	sequencer := sequence.NewSequencer(sequence.NewRepository())

	orderService := orders.NewService(orders.ServiceParams{
		Logger:      logger,
		Repo:        orders.NewRepository(pool),
		Catalog:     catalogRepo,
		Loyalty:     loyaltyRepo,
		Stock:       orders.StockApplier{Service: stockService, Repo: stockRepo},
		Sequence:    sequencer,
		Tx:          orders.PoolTxRunner{Pool: pool},
		Idempotency: idempotencyStore,
		Audit:       auditLogger,
		Cache:       pointsCache,
		Metrics:     metrics,
	})
	ordersHandler := orders.NewHandler(logger, orderService, orders.NewReceiptPrinter(cfg.ShopName))

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Terminals:      terminals,
		CatalogHandler: catalogHandler,
		LoyaltyHandler: loyaltyHandler,
		StockHandler:   stockHandler,
		OrdersHandler:  ordersHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/jeovahfialho/stock-etl/internal/api"
	"github.com/jeovahfialho/stock-etl/internal/config"
	"github.com/jeovahfialho/stock-etl/internal/service"
	"github.com/jeovahfialho/stock-etl/internal/storage/cache"
	"github.com/jeovahfialho/stock-etl/internal/storage/postgres"
	"github.com/jeovahfialho/stock-etl/pkg/logger"
)

// @title Stock ETL API
// @version 1.0
// @description Read access to the daily prices written by the ETL run.

// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.Development())
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer logger.Close(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		logger.Close(log)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	db, err := postgres.NewDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("connected to postgres")

	// Redis is optional; without it the API serves straight from Postgres.
	var (
		handlerCache api.Cache
		priceCache   service.Cache
	)
	redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Warn("redis not available, continuing without cache", zap.Error(err))
	} else {
		defer redisCache.Close()
		handlerCache = redisCache
		priceCache = redisCache
		log.Info("connected to redis")
	}

	store := postgres.NewPriceStore(db.Pool(), log)
	prices := service.NewPriceService(store, priceCache, log)
	handler := api.NewHandler(db, handlerCache, prices, log)

	app := fiber.New(fiber.Config{
		ServerHeader:          "stock-etl",
		AppName:               "Stock ETL API v1.0.0",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.APIReadTimeout,
		WriteTimeout:          cfg.APIWriteTimeout,
		IdleTimeout:           120 * time.Second,
		ProxyHeader:           "X-Forwarded-For",
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	api.SetupRoutes(app, handler, api.AdminCredentials{
		User:     cfg.AdminUser,
		Password: cfg.AdminPassword,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Info("starting server", zap.String("addr", addr))

	return app.Listen(addr)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/logger"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/metrics"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/platform/validation"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/version"

	// Reviews DDD slice (factory)
	reviews "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews"
)

func main() {
	_ = godotenv.Load()

	if handleCLICommand(os.Args[1:]) {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)
	log.Info().Str("addr", cfg.AppAddr).Str("version", version.String()).Str("config", cfg.String()).Msg("starting api server")
	if cfg.CronSecret == "" {
		log.Warn().Msg("CRON_SECRET is empty; the trigger endpoint will reject every request")
	}

	// Init Postgres
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DATABASE_URL")
	}
	pgPool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create pg pool")
	}
	defer pgPool.Close()

	// Init Redis/Valkey; optional, only backs the trigger rate limit.
	var rc redis.UniversalClient
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		defer client.Close()
		rc = client
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(metrics.HTTPMiddleware())

	// Validator
	e.Validator = validation.New()

	// Register domain routes via factories
	if err := reviews.Register(e, pgPool, rc, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("register reviews module")
	}

	// Health endpoint pings DB and Redis
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		dbStatus := "ok"
		if !metrics.Probe(ctx, "postgres", pgPool.Ping) {
			dbStatus = "down"
		}

		cacheStatus := "disabled"
		if rc != nil {
			cacheStatus = "ok"
			if !metrics.Probe(ctx, "redis", func(ctx context.Context) error { return rc.Ping(ctx).Err() }) {
				cacheStatus = "down"
			}
		}

		code := http.StatusOK
		if dbStatus != "ok" {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, map[string]any{
			"status":  dbStatus,
			"time":    time.Now().UTC().Format(time.RFC3339),
			"db":      dbStatus,
			"cache":   cacheStatus,
			"version": version.String(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Start server
	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/nearkart/nearkart-server/internal/application"
	"github.com/nearkart/nearkart-server/internal/config"
	"github.com/nearkart/nearkart-server/internal/kafka"
	"github.com/nearkart/nearkart-server/internal/logger"
	"github.com/nearkart/nearkart-server/internal/migrate"
	"github.com/nearkart/nearkart-server/internal/payment"
	"github.com/nearkart/nearkart-server/internal/presentation"
	"github.com/nearkart/nearkart-server/internal/repository"
)

func main() {
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	backoff := retry.WithMaxRetries(5, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("db ping failed, retrying", "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("db unreachable", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	if err := migrate.Up(cfg.DB_STRING); err != nil {
		logger.Warn("migrations failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.REDIS_ADDR})
	defer rdb.Close()

	// Kafka producer for order events
	prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
	defer prod.Close()

	// Wiring
	orderRepo := repository.NewOrderRepository(pool)
	cartRepo := repository.NewCartRepository(pool)
	catalog := repository.NewCatalogRepository(pool)
	cache := repository.NewCartCache(rdb)
	verifier := payment.NewVerifier(cfg.RAZORPAY_KEY_SECRET)
	provider := payment.NewClient(cfg.RAZORPAY_KEY_ID, cfg.RAZORPAY_KEY_SECRET)

	svc := application.NewOrdersService(orderRepo, cartRepo, catalog, cache, verifier, provider, prod)
	cartSvc := application.NewCartService(cartRepo, cache)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	h := presentation.NewOrdersHandler(svc, cartSvc, pool)
	h.Register(r)

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/db"
	"order-fulfillment/internal/dedup"
	"order-fulfillment/internal/events"
	"order-fulfillment/internal/httpserver"
	"order-fulfillment/internal/logging"
	"order-fulfillment/internal/metrics"
	"order-fulfillment/internal/migrate"
	cartrepo "order-fulfillment/internal/repository/cart"
	orderrepo "order-fulfillment/internal/repository/order"
	productrepo "order-fulfillment/internal/repository/product"
	userrepo "order-fulfillment/internal/repository/user"
	cartsvc "order-fulfillment/internal/service/cart"
	ordersvc "order-fulfillment/internal/service/order"
	paymentsvc "order-fulfillment/internal/service/payment"
	productsvc "order-fulfillment/internal/service/product"
	"order-fulfillment/internal/worker"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if cfg.PaymentWebhookSecret == "" {
		logger.Warn("PAYMENT_WEBHOOK_SECRET is empty; every payment webhook will be rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	if err := migrate.Apply(ctx, dbpool, logging.Component(logger, "migrate")); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	m := metrics.New("order_fulfillment")

	publisher := events.NewKafka(cfg.KafkaBrokers, events.Topics{
		User:         cfg.UserEventsTopic,
		Order:        cfg.OrderEventsTopic,
		Notification: cfg.NotificationEventsTopic,
	}, m, logging.Component(logger, "events"))
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set; domain events are disabled")
	}

	var seen dedup.Store = dedup.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not reachable; webhook dedup will fail open", zap.Error(err))
		}
		seen = dedup.NewRedis(rdb, "", cfg.WebhookDedupTTL)
	} else {
		logger.Info("REDIS_ADDR not set; webhook dedup is disabled")
	}

	productRepo := productrepo.NewPostgres(dbpool, logging.Component(logger, "products"))
	userRepo := userrepo.NewPostgres(dbpool, logging.Component(logger, "users"))
	cartRepo := cartrepo.NewPostgres(dbpool)
	orderRepo := orderrepo.NewPostgres(dbpool)

	catalog := productsvc.New(productRepo)
	cartService := cartsvc.New(cartRepo, catalog, userRepo, publisher, logging.Component(logger, "cart"))
	orderService := ordersvc.New(orderRepo, publisher, ordersvc.Options{
		Currency:     cfg.StoreCurrency,
		NumberPrefix: cfg.OrderNumberPrefix,
		Metrics:      m,
		Logger:       logging.Component(logger, "order"),
	})
	processor := paymentsvc.NewProcessor(
		paymentsvc.NewVerifier(cfg.PaymentWebhookSecret, cfg.PaymentWebhookTolerance),
		orderService,
		publisher,
		seen,
		m,
		logging.Component(logger, "payment"),
	)

	abandoner := worker.NewAbandoner(cartService, cfg.CartAbandonAfter, cfg.CartAbandonInterval, logging.Component(logger, "abandoner"))
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		abandoner.Run(ctx)
	}()

	srv, err := httpserver.New(cfg.HTTPAddr, logging.Component(logger, "http"), dbpool, httpserver.Deps{
		CartSvc:     cartService,
		OrderSvc:    orderService,
		CatalogSvc:  catalog,
		Webhooks:    processor,
		Metrics:     m,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
	<-workerDone
}

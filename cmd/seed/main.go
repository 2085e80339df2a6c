package main

import (
	"context"

	"go.uber.org/zap"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/db"
	"order-fulfillment/internal/logging"
	"order-fulfillment/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.New(cfg.ServiceName+"-seed", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if err := seed.Apply(ctx, pool, logger); err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("seed applied")
}

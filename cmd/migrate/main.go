package main

import (
	"context"
	"flag"

	"go.uber.org/zap"
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/db"
	"order-fulfillment/internal/logging"
	"order-fulfillment/internal/migrate"
)

func main() {
	down := flag.Int("down", 0, "roll back this many migrations instead of applying; -1 rolls back all")
	flag.Parse()

	cfg := config.FromEnv()
	logger, err := logging.New(cfg.ServiceName+"-migrate", cfg.Env, cfg.LogLevel)
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

	if *down != 0 {
		steps := *down
		if steps < 0 {
			steps = 0
		}
		if err := migrate.Rollback(ctx, pool, logger, steps); err != nil {
			logger.Fatal("roll back migrations", zap.Error(err))
		}
		logger.Info("migrations rolled back", zap.Int("steps", *down))
		return
	}

	if err := migrate.Apply(ctx, pool, logger); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}
	logger.Info("migrations applied")
}

// Package main runs the Construct daemon: an in-memory chain hosting one
// Construct, a block producer and the gRPC query/submit service.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/construct/internal/config"
	"github.com/cory-johannsen/construct/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "constructd")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	app, cleanup, err := initializeApp(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("initializing daemon", zap.Error(err))
	}
	defer cleanup()

	logger.Info("construct daemon ready",
		zap.String("grpc_addr", cfg.GRPC.Addr()),
		zap.Duration("block_interval", cfg.Chain.BlockInterval),
		zap.String("storage", cfg.Storage.Backend),
		zap.Duration("startup", time.Since(start)),
	)

	if err := app.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
		return
	}
	logger.Info("construct daemon stopped")
}

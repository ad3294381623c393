package main

import (
	"context"
	"log"
	"time"

	"repairhub/internal/config"
	"repairhub/internal/database"
	"repairhub/internal/pkg/logger"
	"repairhub/internal/repository"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("db connect failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := repository.NewMagicLinkRepository(db).DeleteStale(ctx, time.Now())
	if err != nil {
		zl.Fatal("cleanup magic_link_tokens failed", zap.Error(err))
	}
	zl.Info("auth cleanup completed", zap.Int64("magic_link_tokens", n))
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"repairhub/internal/app"
	"repairhub/internal/config"
	"repairhub/internal/database"
	"repairhub/internal/modules/auth"
	"repairhub/internal/pkg/logger"
	"repairhub/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

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

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	db, err := database.Connect(cfg.DatabaseURL, zl)
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}

	var google auth.IdentityProvider
	if cfg.GoogleEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		p, err := auth.NewGoogleProvider(ctx, auth.GoogleConfig{
			IssuerURL:    cfg.GoogleIssuerURL,
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
		cancel()
		if err != nil {
			return err
		}
		google = p
	} else {
		zl.Info("google sign-in disabled")
	}

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	a := app.New(app.Options{Config: cfg, DB: db, Logger: zl, Google: google})
	defer a.Hub.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

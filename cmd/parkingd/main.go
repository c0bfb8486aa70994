package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/api"
	"lorry-parking-backend/internal/clock"
	"lorry-parking-backend/internal/db"
	"lorry-parking-backend/internal/janitor"
	"lorry-parking-backend/internal/logging"
	"lorry-parking-backend/internal/store"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	// CONFIG_PATH is optional; without it the environment and defaults apply.
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %q: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)
	logger.WithField("config", configPath).Info("configuration loaded")
	if cfg.PrintRelay.Secret == config.DefaultPrintSecret {
		logger.Warn("print_relay.secret is not set; using the built-in default secret")
	}

	defaultRate, err := decimal.NewFromString(cfg.Billing.DefaultDailyRate)
	if err != nil {
		logger.Fatalf("invalid default daily rate %q: %v", cfg.Billing.DefaultDailyRate, err)
	}

	gormDB, err := db.Init(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}

	appStore := store.NewGormStore(gormDB, store.Options{
		Location:    clock.LoadLocation(cfg.Billing.Timezone),
		DefaultRate: defaultRate,
	})
	logger.Info("data store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go janitor.New(appStore, cfg.PrintRelay.Retention, cfg.PrintRelay.JanitorInterval, logger).Run(ctx)

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := api.NewRouter(appStore, cfg, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info("shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server gracefully stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"lorry-parking-backend/config"
	"lorry-parking-backend/internal/logging"
	"lorry-parking-backend/internal/printagent"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %q: %v\n", configPath, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := &printagent.FilePrinter{Dir: cfg.Agent.SpoolDir}
	agent := printagent.NewService(cfg, printer, logger)

	logger.WithField("spool_dir", cfg.Agent.SpoolDir).Info("receipts will be written to the spool directory")
	agent.Run(ctx)
	logger.Info("print agent stopped")
}

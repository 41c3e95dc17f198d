package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/aarluxe/pos-cart/pkg/config"
	"github.com/aarluxe/pos-cart/pkg/logger"
)

const serviceName = "posbridge"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := NewService(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap service", err)
		os.Exit(1)
	}

	runErr := svc.Run(ctx)
	if closeErr := svc.Close(); closeErr != nil {
		logg.Error(context.Background(), "error releasing resources", closeErr)
	}
	if runErr != nil {
		logg.Error(context.Background(), "service stopped unexpectedly", runErr)
		os.Exit(1)
	}
	logg.Info(context.Background(), "service shut down gracefully")
}

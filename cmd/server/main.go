package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"surveybot/internal/app"
	"surveybot/internal/config"
	"surveybot/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	cfg, err := config.LoadWithPath(*configPath)
	if err != nil {
		logger.Default().Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})
	if err != nil {
		logger.Default().Fatal("Failed to create logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to start", zap.Error(err))
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
		return
	}
	log.Info("Server exited")
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/smith3v/ai-tutor/pkg/config"
	"github.com/smith3v/ai-tutor/pkg/db"
	"github.com/smith3v/ai-tutor/pkg/logger"
	"github.com/smith3v/ai-tutor/pkg/retention"
	"github.com/smith3v/ai-tutor/pkg/sessions"
)

func main() {
	if err := config.LoadConfig("config.json"); err != nil {
		logger.Warn("config.json not loaded, using defaults", "error", err)
	}
	if err := config.ApplyEnv(); err != nil {
		logger.Error("failed to apply environment overrides", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(logger.Options{
		Level:   config.AppConfig.Logging.Level,
		File:    config.AppConfig.Logging.File,
		Format:  config.AppConfig.Logging.Format,
		Service: "ai-tutor",
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	defer logger.Close()

	gdb, err := db.Open(config.AppConfig.Database, config.AppConfig.Logging.GormLevel)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if config.AppConfig.Retention.IsEnabled() {
		purger := retention.NewScheduler(sessions.New(gdb), config.AppConfig.Retention)
		if err := purger.Start(ctx); err != nil {
			logger.Error("failed to start retention scheduler", "error", err)
			os.Exit(1)
		}
		defer purger.Stop()
	} else {
		logger.Info("retention scheduler disabled")
	}

	logger.Info("learner progress store ready", "driver", config.AppConfig.Database.Driver)
	<-ctx.Done()
	logger.Info("shutting down")
}

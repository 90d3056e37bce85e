package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"salesinsight/internal/app"
	"salesinsight/internal/config"
	"salesinsight/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	envFile := flag.String("env", "", "dotenv file (defaults to .env)")
	flag.Parse()

	cfg, err := config.Load(config.LoadOptions{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = infrastructure.CloseLogFile() }()

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

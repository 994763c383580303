package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/snipkeeper/internal/server"
	"github.com/iudanet/snipkeeper/internal/server/config"
	"github.com/iudanet/snipkeeper/internal/server/storage/factory"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "snipkeeper server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InfoContext(ctx, "Snipkeeper server starting",
		slog.String("version", Version),
		slog.String("commit", GitCommit),
		slog.Any("config", cfg))

	// Хранилище выбирается один раз, миграции выполняются при открытии
	store, err := factory.Open(ctx, cfg.Storage(), logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	app := server.NewApp(cfg, logger, store, Version)
	if err := app.Run(ctx); err != nil {
		return err
	}

	logger.Info("Snipkeeper server stopped")
	return nil
}

func printVersion() {
	fmt.Printf("Snipkeeper Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

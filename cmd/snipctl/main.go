package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/iudanet/snipkeeper/internal/server/config"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/factory"
	"github.com/iudanet/snipkeeper/internal/snipctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	root := snipctl.NewRootCommand(snipctl.Env{
		IO:         snipctl.NewStdio(os.Stdout),
		Logger:     logger,
		LoadConfig: config.Load,
		OpenStore: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
			return factory.Open(ctx, cfg.Storage(), logger)
		},
	})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "snipctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}

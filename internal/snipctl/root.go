// Package snipctl implements the administrator command line: deriving user
// identifiers, moving data after a server secret rotation, running schema
// migrations and probing a live server.
package snipctl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/snipkeeper/internal/server/config"
	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/validation"
)

// Env holds what commands need from the outside world.
type Env struct {
	IO     IO
	Logger *slog.Logger
	// LoadConfig reads the server configuration
	LoadConfig func() (*config.Config, error)
	// OpenStore opens the configured backend, running migrations
	OpenStore func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error)
}

// NewRootCommand builds the snipctl command tree.
func NewRootCommand(env Env) *cobra.Command {
	if env.Logger == nil {
		env.Logger = slog.New(slog.DiscardHandler)
	}

	root := &cobra.Command{
		Use:           "snipctl",
		Short:         "Administration tool for the snipkeeper server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newDeriveCommand(env),
		newRemapCommand(env),
		newMigrateCommand(env),
		newStatusCommand(env),
	)
	return root
}

// credentials reads PIN and passphrase, prompting for what flags did not give
func credentials(io IO, pin, passphrase string) (string, string, error) {
	var err error
	if pin == "" {
		if pin, err = io.ReadPassword("PIN: "); err != nil {
			return "", "", fmt.Errorf("failed to read PIN: %w", err)
		}
	}
	if passphrase == "" {
		if passphrase, err = io.ReadPassword("Passphrase: "); err != nil {
			return "", "", fmt.Errorf("failed to read passphrase: %w", err)
		}
	}
	if err := validation.ValidateCredentials(pin, passphrase); err != nil {
		return "", "", fmt.Errorf("invalid credentials: %w", err)
	}
	return pin, passphrase, nil
}

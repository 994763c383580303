package snipctl

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/snipkeeper/internal/server/storage/factory"
)

func newMigrateCommand(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the configured SQL schema up to date and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := env.LoadConfig()
			if err != nil {
				return err
			}

			backend := cfg.Storage().Resolve()
			if backend != factory.BackendPostgres && backend != factory.BackendSQLite {
				env.IO.Printf("backend %q has no schema, nothing to migrate\n", backend)
				return nil
			}

			// миграции выполняются при открытии хранилища
			store, err := env.OpenStore(ctx, cfg, env.Logger)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				env.Logger.Error("failed to close storage", slog.Any("error", err))
			}

			env.IO.Printf("%s schema is up to date\n", backend)
			return nil
		},
	}
}

package snipctl

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/snipkeeper/internal/identity"
	"github.com/iudanet/snipkeeper/internal/server/storage"
)

// ErrAborted is returned when the operator declines the confirmation.
var ErrAborted = errors.New("aborted")

func newRemapCommand(env Env) *cobra.Command {
	var from, to, oldSecret string
	var yes bool

	cmd := &cobra.Command{
		Use:   "remap",
		Short: "Move every record of one user id to another",
		Long: "Moves folders, snippets and clipboard history between user ids.\n\n" +
			"Either pass both ids with --from and --to, or pass --old-secret and enter the\n" +
			"credentials: the source id is derived with the old secret and the target id\n" +
			"with the configured one. --from legacy moves rows written before user ids existed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := env.LoadConfig()
			if err != nil {
				return err
			}

			switch {
			case from != "" && to != "":
			case cmd.Flags().Changed("old-secret"):
				pin, passphrase, err := credentials(env.IO, "", "")
				if err != nil {
					return err
				}
				from = identity.NewDeriver(oldSecret, nil).Derive(pin, passphrase)
				to = identity.NewDeriver(cfg.ServerSecret, env.Logger).Derive(pin, passphrase)
			default:
				return errors.New("either --from and --to or --old-secret is required")
			}

			if err := checkRemapID(from, true); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if err := checkRemapID(to, false); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			if !yes {
				answer, err := env.IO.ReadInput(fmt.Sprintf("Move all data from %s to %s? [y/N]: ", from, to))
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
					return ErrAborted
				}
			}

			store, err := env.OpenStore(ctx, cfg, env.Logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := store.Close(); err != nil {
					env.Logger.Error("failed to close storage", slog.Any("error", err))
				}
			}()

			res, err := store.RemapUser(ctx, from, to)
			if err != nil {
				return fmt.Errorf("remap failed: %w", err)
			}

			env.IO.Printf("moved %d folders, %d snippets, %d clipboard items\n",
				res.Folders, res.Snippets, res.ClipboardItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "source user id")
	cmd.Flags().StringVar(&to, "to", "", "target user id")
	cmd.Flags().StringVar(&oldSecret, "old-secret", "", "secret the source id was derived with")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("from", "old-secret")
	return cmd
}

// checkRemapID accepts derived ids and, as a source, the legacy placeholder
func checkRemapID(id string, source bool) error {
	if identity.IsUserID(id) || (source && id == storage.LegacyUserID) {
		return nil
	}
	return fmt.Errorf("%q is not a user id", id)
}

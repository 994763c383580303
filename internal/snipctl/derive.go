package snipctl

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/snipkeeper/internal/identity"
)

func newDeriveCommand(env Env) *cobra.Command {
	var pin, secret string
	var useConfig bool

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the user id for a PIN and passphrase",
		Long: "Computes the identifier the server assigns to the given credentials.\n" +
			"Use --secret to derive against a secret other than the configured one.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if useConfig {
				cfg, err := env.LoadConfig()
				if err != nil {
					return err
				}
				secret = cfg.ServerSecret
			}

			pin, passphrase, err := credentials(env.IO, pin, "")
			if err != nil {
				return err
			}

			d := identity.NewDeriver(secret, nil)
			if d.UsingFallback() {
				env.IO.Printf("warning: no secret given, using the built-in fallback\n")
			}
			env.IO.Printf("%s\n", d.Derive(pin, passphrase))
			return nil
		},
	}

	cmd.Flags().StringVar(&pin, "pin", "", "PIN (prompted when empty)")
	cmd.Flags().StringVar(&secret, "secret", "", "server secret to derive with")
	cmd.Flags().BoolVar(&useConfig, "from-config", false, "use the secret from the server environment")
	cmd.MarkFlagsMutuallyExclusive("secret", "from-config")
	return cmd
}

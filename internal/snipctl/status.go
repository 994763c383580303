package snipctl

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iudanet/snipkeeper/internal/client/api"
	apitypes "github.com/iudanet/snipkeeper/pkg/api"
)

// ErrDegraded is returned when the server answers but its storage is down.
var ErrDegraded = errors.New("server is degraded")

func newStatusCommand(env Env) *cobra.Command {
	var url string
	var login bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check a running server",
		Long: "Prints the health of a running server. With --login it also signs in with\n" +
			"the entered credentials, verifies the session and logs out again.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(url)

			health, err := client.Health(ctx)
			if err != nil {
				return err
			}
			env.IO.Printf("status:   %s\nstorage:  %s\nsessions: %d\n", health.Status, health.Storage, health.Sessions)
			if health.Version != "" {
				env.IO.Printf("version:  %s\n", health.Version)
			}
			if health.Status != "ok" {
				return ErrDegraded
			}
			if !login {
				return nil
			}

			pin, passphrase, err := credentials(env.IO, "", "")
			if err != nil {
				return err
			}
			session, err := client.Login(ctx, apitypes.LoginRequest{Pin: pin, Passphrase: passphrase})
			if err != nil {
				return err
			}
			verified, err := client.Verify(ctx, session.SessionToken)
			if err != nil {
				return err
			}
			if verified.UserID != session.UserID {
				return fmt.Errorf("session resolved to %s, expected %s", verified.UserID, session.UserID)
			}
			env.IO.Printf("user id:  %s\n", session.UserID)
			return client.Logout(ctx, session.SessionToken)
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080", "server base URL")
	cmd.Flags().BoolVar(&login, "login", false, "also check a login round trip")
	return cmd
}

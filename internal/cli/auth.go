package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/membersync/internal/auth"
	"github.com/sakif/membersync/internal/config"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Run the interactive authorization flow now, replacing any stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger()

			manager, store, err := buildManager(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			cred, err := manager.AuthorizeInteractive(cmd.Context())
			if err != nil {
				return err
			}

			if name := cred.DisplayName(); name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", name)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Signed in")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credential valid until %s\n", cred.ExpiresAt().Local())
			return nil
		},
	}
}

func newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Clear the persisted credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger()

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			// Sign-out needs no provider or flow — only the store.
			auth.NewManager(store, nil, nil, logger).SignOut(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

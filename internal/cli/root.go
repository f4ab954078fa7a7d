// Package cli defines the membersync command tree.
//
// COMMANDS:
//
//	membersync sync     — full reconciliation run (authorizes if needed)
//	membersync auth     — force a fresh interactive authorization
//	membersync signout  — clear the persisted credential
//
// Each command is its own composition root: it loads config, builds the
// dependency graph it needs, runs, and tears down. Nothing global is
// shared between commands except the persisted credential store on disk.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sakif/membersync/internal/auth"
	"github.com/sakif/membersync/internal/config"
	"github.com/sakif/membersync/internal/repository/sqlite"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "membersync",
		Short: "Reconcile the accounting ledger's contacts with the membership registry",
		Long: `membersync compares the accounting system's contact ledger with the
membership registry's CSV export and reports people present in one but
not the other, plus contacts whose guardian email has drifted out of
sync. It signs in to the accounting API with an OAuth2 PKCE flow and
keeps the credential across runs, so interactive sign-in is rare.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSyncCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newSignOutCmd())
	return root
}

// Execute runs the CLI. Ctrl+C cancels the context, which unwinds any
// in-flight authorization (listener included) cleanly.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger builds the CLI's slog logger. Debug level behind --verbose,
// human-readable text output on stderr so stdout stays clean for
// summaries.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore opens the credential store, creating its directory first.
func openStore(cfg *config.Config) (*sqlite.DB, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating credential store directory: %w", err)
		}
	}
	return sqlite.New(cfg.DBPath)
}

// buildManager assembles the credential manager and the store backing
// it. Callers own closing the returned store.
func buildManager(cfg *config.Config, logger *slog.Logger) (*auth.Manager, *sqlite.DB, error) {
	if err := cfg.RequireClientID(); err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	discovery := auth.NewDiscovery(cfg.DiscoveryURL, nil)
	provider := auth.NewOIDCProvider(cfg.ClientID, cfg.RedirectURL(), cfg.Scopes, discovery)
	listener := auth.NewCallbackListener(cfg.RedirectPort, cfg.CallbackPath, logger)
	return auth.NewManager(store, listener, provider, logger), store, nil
}

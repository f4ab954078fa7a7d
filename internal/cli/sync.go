package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/membersync/internal/config"
	"github.com/sakif/membersync/internal/reconcile"
	"github.com/sakif/membersync/internal/service"
	"github.com/sakif/membersync/internal/xero"
)

func newSyncCmd() *cobra.Command {
	var (
		membersFile string
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch ledger data, classify membership records, write the result CSVs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if membersFile != "" {
				cfg.MembersFile = membersFile
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}

			logger := newLogger()

			manager, store, err := buildManager(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			client := xero.NewClient(manager, logger, xero.WithPageSize(cfg.PageSize))

			engineOpts := []reconcile.Option{reconcile.WithThreshold(cfg.MatchThreshold)}
			if cfg.CaseFold {
				engineOpts = append(engineOpts, reconcile.WithCaseFolding())
			}
			engine := reconcile.NewEngine(logger, engineOpts...)

			svc := service.NewSyncService(client, engine, cfg.MembersFile, cfg.OutputDir, logger)
			summary, err := svc.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tenant:            %s\n", summary.Tenant.TenantName)
			fmt.Fprintf(out, "Ledger contacts:   %d (%d groups)\n", summary.Contacts, summary.Groups)
			fmt.Fprintf(out, "Membership rows:   %d\n", summary.Members)
			fmt.Fprintf(out, "Missing contacts:  %d\n", len(summary.Result.New))
			fmt.Fprintf(out, "Email mismatches:  %d\n", len(summary.Result.Outdated))
			fmt.Fprintf(out, "Up to date:        %d\n", len(summary.Result.Current))
			if n := len(summary.Result.Rejected); n > 0 {
				fmt.Fprintf(out, "Rejected rows:     %d (see log)\n", n)
			}
			fmt.Fprintf(out, "Outputs written to %s\n", cfg.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&membersFile, "members", "m", "", "membership export CSV (default from MEMBERSYNC_MEMBERS_FILE)")
	cmd.Flags().StringVarP(&outputDir, "out", "o", "", "output directory (default from MEMBERSYNC_OUTPUT_DIR)")
	return cmd
}

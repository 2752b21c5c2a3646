// rekey is the offline admin tool around the bulk key/slug migration:
// it wipes a tenant's key registry and regenerates every key and slug.
// Never run it against a tenant serving live traffic.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/pmkit/modules/projects"
	"github.com/iota-uz/pmkit/modules/projects/services"
	"github.com/iota-uz/pmkit/pkg/composables"
	"github.com/iota-uz/pmkit/pkg/configuration"
	"github.com/iota-uz/pmkit/pkg/eventbus"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rekey",
		Short:         "Regenerate project keys and slugs for a tenant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(migrateCmd(), runCmd())
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf := configuration.Use()
			defer conf.Unload()

			pool, err := pgxpool.New(cmd.Context(), conf.Database.Opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			return projects.Migrations(pool).Up(cmd.Context())
		},
	}
}

func runCmd() *cobra.Command {
	var tenantFlag string
	var preferred map[string]string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Wipe and regenerate all keys and slugs of one tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := uuid.Parse(tenantFlag)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}

			conf := configuration.Use()
			defer conf.Unload()
			log := conf.Logger()

			pool, err := pgxpool.New(cmd.Context(), conf.Database.Opts)
			if err != nil {
				return err
			}
			defer pool.Close()

			ctx := composables.WithPool(cmd.Context(), pool)
			ctx = composables.WithTenantID(ctx, tenantID)
			ctx = composables.WithLogger(ctx, logrus.NewEntry(log))

			svc := projects.NewServices(eventbus.NewEventPublisher(log), conf.KeyEngine)
			report, err := svc.Migration.Run(ctx, services.MigrationOptions{
				PreferredKeys: preferred,
			})
			if err != nil {
				return err
			}

			fmt.Printf("processed=%d migrated=%d failed=%d\n",
				report.Processed, report.Migrated, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d entities failed; see logs", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant id (required)")
	cmd.Flags().StringToStringVar(&preferred, "prefer", nil,
		"preferred keys by scope name, e.g. --prefer 'Acme Corp=ACME'")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sentinelops/manifest-sentry/internal/app"
	"github.com/sentinelops/manifest-sentry/internal/core/domain"
)

var (
	migrateTarget    string
	migrateDryRun    bool
	migrateBackupDir string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate <manifest-dir>",
	Short: "Executes a staged resource migration against the target environment.",
	Long: `Migrate backs up the resources slated for removal, tears them down,
deploys the replacement manifests, restarts dependent workloads and verifies
readiness. Any stage failure triggers rollback in reverse order from the
backed-up state. A pre-deploy validation gate aborts the run before anything
destructive happens if the manifest set has error-severity findings.

Exits 0 on success, 1 when the run was aborted or rolled back, 2 on an
internal fault before any destructive action (e.g. control plane
unreachable).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApplication(cmd.Context())
		if err != nil {
			exitCode = 2
			return err
		}

		result, err := application.RunMigrate(cmd.Context(), app.MigrateOptions{
			Dir:    args[0],
			Target: migrateTarget,
			DryRun: migrateDryRun,
		})
		if err != nil && result.Outcome == "" {
			exitCode = 2
			return err
		}

		switch result.Outcome {
		case domain.OutcomeSucceeded:
			exitCode = 0
		default:
			exitCode = 1
		}
		return err
	},
}

func init() {
	migrateCmd.Flags().StringVarP(&migrateTarget, "target", "t", "", "Target environment for the migration (required)")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Build and gate the plan without touching the cluster")
	migrateCmd.Flags().StringVar(&migrateBackupDir, "backup-dir", "", "Root directory for pre-teardown backup artifacts")
	migrateCmd.MarkFlagRequired("target")
	viper.BindPFlag("migration.backup_dir", migrateCmd.Flags().Lookup("backup-dir"))
	rootCmd.AddCommand(migrateCmd)
}

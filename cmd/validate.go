package main

import (
	"github.com/spf13/cobra"

	"github.com/sentinelops/manifest-sentry/internal/app"
)

var validateLive bool

var validateCmd = &cobra.Command{
	Use:   "validate <manifest-dir>",
	Short: "Cross-checks a manifest directory for internal consistency.",
	Long: `Validate loads every YAML manifest under the given directory, builds a
cross-reference index and runs the consistency rule battery: placeholder
integrity, image name consistency, reference resolution and required file
presence. With --live, referenced config maps and secrets are also checked
against the cluster (advisory only).

Exits 0 when no error-severity findings were produced, 1 otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApplication(cmd.Context())
		if err != nil {
			exitCode = 1
			return err
		}

		report, err := application.RunValidate(cmd.Context(), app.ValidateOptions{
			Dir:  args[0],
			Live: validateLive,
		})
		if err != nil {
			exitCode = 1
			return err
		}
		if report.HasErrors() {
			exitCode = 1
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateLive, "live", false, "Also check referenced config maps and secrets against the cluster")
	rootCmd.AddCommand(validateCmd)
}

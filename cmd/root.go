package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sentinelops/manifest-sentry/internal/app"
	apperrors "github.com/sentinelops/manifest-sentry/internal/errors"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	output    string
	noColor   bool
)

// exitCode is set by the subcommands; Execute translates it into the
// process exit status once cobra unwinds.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "manifest-sentry",
	Short: "Validates deployment manifest sets and orchestrates staged resource migrations.",
	Long: `Manifest Sentry cross-checks a directory of declarative deployment
manifests (workloads, config maps, pipeline definitions) for internal
consistency, and drives staged migrations of resources between environments
with backup and rollback.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		if exitCode == 0 {
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func printError(err error) {
	userMsg, suggestion, _ := apperrors.GetUserFacingMessage(err)
	fmt.Fprintf(os.Stderr, "ERROR: %s\n", userMsg)
	if suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .manifest-sentry.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Report format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored report output")

	viper.BindPFlag("settings.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("settings.log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("settings.reporter", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("settings.reporter_config.text.no_color", rootCmd.PersistentFlags().Lookup("no-color"))

	viper.SetEnvPrefix("MANIFEST_SENTRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".manifest-sentry")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}

	return nil
}

func buildApplication(ctx context.Context) (*app.Application, error) {
	return app.BuildApplicationFromViper(ctx, viper.GetViper())
}

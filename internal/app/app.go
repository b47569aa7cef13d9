package app

import (
	"context"
	"time"

	"github.com/sentinelops/manifest-sentry/internal/config"
	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
	"github.com/sentinelops/manifest-sentry/internal/manifest"
	"github.com/sentinelops/manifest-sentry/internal/migrate"
	"github.com/sentinelops/manifest-sentry/internal/validate"
)

// Application holds the wired components for one process invocation.
type Application struct {
	Config    *config.Config
	Logger    ports.Logger
	Reporter  ports.Reporter
	Loader    *manifest.Loader
	Validator *validate.Engine
}

// ValidateOptions control a single validation run.
type ValidateOptions struct {
	// Dir is the manifest set to check.
	Dir string
	// Live enables the advisory live-resource rule, which needs a
	// reachable cluster.
	Live bool
	// Target names the environment the check is scoped to. Optional for
	// plain validation.
	Target string
}

// RunValidate loads the manifest set, runs the full rule battery and reports
// the findings. The returned report is also handed to the configured
// reporter before this returns.
func (a *Application) RunValidate(ctx context.Context, opts ValidateOptions) (domain.ValidationReport, error) {
	index, seed, err := a.Loader.Load(ctx, opts.Dir)
	if err != nil {
		return domain.ValidationReport{}, err
	}

	in := ports.RuleInput{Index: index, Target: opts.Target}
	if opts.Live {
		client := buildResourceClient(a.Config, a.Logger)
		if err := client.Ping(ctx); err != nil {
			return domain.ValidationReport{}, err
		}
		in.Client = client
	}

	report := a.Validator.Run(ctx, in, seed)
	if err := a.Reporter.ReportValidation(ctx, report); err != nil {
		a.Logger.Errorf(ctx, err, "Failed to emit validation report")
		return report, errors.Wrap(err, errors.CodeInternal, "reporting failed")
	}
	return report, nil
}

// MigrateOptions control a single migration run.
type MigrateOptions struct {
	// Dir is the manifest set describing the replacement resources.
	Dir string
	// Target is the environment being migrated. Required.
	Target string
	// DryRun stops after the validation gate and plan construction.
	DryRun bool
}

// RunMigrate drives the staged migration: load, preflight the cluster,
// build the plan, then execute it through the orchestrator. The result is
// reported before returning; the error covers only faults that prevented
// the run from producing an outcome.
func (a *Application) RunMigrate(ctx context.Context, opts MigrateOptions) (domain.MigrationResult, error) {
	index, seed, err := a.Loader.Load(ctx, opts.Dir)
	if err != nil {
		return domain.MigrationResult{}, err
	}

	plan, deployDocs, err := migrate.BuildPlan(a.Config.Migration, opts.Target, index)
	if err != nil {
		return domain.MigrationResult{}, err
	}

	client := buildResourceClient(a.Config, a.Logger)
	if !opts.DryRun {
		if err := client.Ping(ctx); err != nil {
			return domain.MigrationResult{}, err
		}
	}

	store, err := migrate.NewFileBackupStore(a.Config.Migration.BackupDir, opts.Target, time.Now().UTC(), a.Logger)
	if err != nil {
		return domain.MigrationResult{}, err
	}

	var orchestrator ports.MigrationOrchestrator
	orchestrator, err = migrate.NewExecutor(migrate.ExecutorParams{
		Config:       a.Config.Migration,
		Plan:         plan,
		DeployDocs:   deployDocs,
		Client:       client,
		Validator:    a.Validator,
		Store:        store,
		Logger:       a.Logger,
		Index:        index,
		SeedFindings: seed,
		DryRun:       opts.DryRun,
	})
	if err != nil {
		return domain.MigrationResult{}, err
	}

	result, execErr := orchestrator.Execute(ctx)
	if repErr := a.Reporter.ReportMigration(ctx, result); repErr != nil {
		a.Logger.Errorf(ctx, repErr, "Failed to emit migration report")
	}
	return result, execErr
}

package migrate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

// Executor drives one MigrationPlan through its state machine. Stages run
// strictly sequentially; a stage failure rolls back every already-succeeded
// stage in reverse order. The pre-deploy validation gate runs before any
// destructive action: Teardown never executes when the gate fails.
type Executor struct {
	cfg       Config
	plan      *domain.MigrationPlan
	deploy    []*domain.ManifestDocument
	client    ports.ResourceClient
	validator ports.ValidationEngine
	store     ports.BackupStore
	logger    ports.Logger

	index        *domain.Index
	seedFindings []domain.Finding
	dryRun       bool

	// Per-stage forward progress. Compensations replay only what the
	// forward actions actually did, so a stage that fails halfway is
	// rolled back along with the stages before it.
	artifacts map[string]*domain.BackupArtifact
	tornDown  []domain.ResourceRef
	applied   []domain.ResourceRef

	restartMu sync.Mutex
	restarted []domain.ResourceRef
}

type ExecutorParams struct {
	Config       Config
	Plan         *domain.MigrationPlan
	DeployDocs   []*domain.ManifestDocument
	Client       ports.ResourceClient
	Validator    ports.ValidationEngine
	Store        ports.BackupStore
	Logger       ports.Logger
	Index        *domain.Index
	SeedFindings []domain.Finding
	DryRun       bool
}

func NewExecutor(p ExecutorParams) (*Executor, error) {
	if p.Client == nil {
		return nil, errors.New(errors.CodeConfigValidation, "resource client cannot be nil")
	}
	if p.Validator == nil {
		return nil, errors.New(errors.CodeConfigValidation, "validation engine cannot be nil")
	}
	if p.Store == nil {
		return nil, errors.New(errors.CodeConfigValidation, "backup store cannot be nil")
	}
	if p.Plan == nil {
		return nil, errors.New(errors.CodeInternal, "migration plan cannot be nil")
	}
	cfg := p.Config
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultConfig().ReadyTimeout
	}
	return &Executor{
		cfg:          cfg,
		plan:         p.Plan,
		deploy:       p.DeployDocs,
		client:       p.Client,
		validator:    p.Validator,
		store:        p.Store,
		logger:       p.Logger.WithFields(map[string]any{"component": "orchestrator", "plan_id": p.Plan.ID}),
		index:        p.Index,
		seedFindings: p.SeedFindings,
		dryRun:       p.DryRun,
		artifacts:    make(map[string]*domain.BackupArtifact),
	}, nil
}

func (e *Executor) Execute(ctx context.Context) (domain.MigrationResult, error) {
	result := domain.MigrationResult{
		PlanID:    e.plan.ID,
		Target:    e.plan.Target,
		Stages:    e.plan.Stages,
		BackupDir: e.store.Dir(),
	}

	e.logger.Infof(ctx, "Running pre-deploy validation gate for target %s", e.plan.Target)
	gate := e.validator.Run(ctx, ports.RuleInput{Index: e.index, Target: e.plan.Target}, e.seedFindings)
	result.GateReport = &gate
	if gate.HasErrors() {
		result.Outcome = domain.OutcomeAborted
		result.Message = fmt.Sprintf(
			"pre-deploy validation gate failed with %d error finding(s); no destructive action was taken",
			gate.Summary.Errors)
		e.logger.Warnf(ctx, "%s", result.Message)
		return result, nil
	}

	if e.dryRun {
		result.Outcome = domain.OutcomeSucceeded
		result.Message = "dry run: validation gate passed, plan was not executed"
		return result, nil
	}

	for i, stage := range e.plan.Stages {
		// Operator abort is honored only between stages, never mid-stage.
		if err := ctx.Err(); err != nil {
			stage.Status = domain.StageFailed
			stage.Err = errors.Wrap(err, errors.CodeFatalStage, "migration cancelled between stages")
			return e.rollback(result, i)
		}

		stage.Status = domain.StageRunning
		e.logger.Infof(ctx, "Stage %s running (%d targets)", stage.Name, len(stage.Targets))

		if err := e.runStage(ctx, stage); err != nil {
			stage.Status = domain.StageFailed
			stage.Err = errors.Wrap(err, errors.CodeFatalStage,
				fmt.Sprintf("stage %s failed", stage.Name))
			e.logger.Errorf(ctx, stage.Err, "Stage %s failed, rolling back", stage.Name)
			return e.rollback(result, i)
		}

		stage.Status = domain.StageSucceeded
		e.logger.Infof(ctx, "Stage %s succeeded", stage.Name)
	}

	result.Outcome = domain.OutcomeSucceeded
	result.Message = fmt.Sprintf("migration to %s completed; backups retained at %s",
		e.plan.Target, e.store.Dir())
	return result, nil
}

func (e *Executor) runStage(ctx context.Context, stage *domain.Stage) error {
	switch stage.Name {
	case domain.StageBackup:
		return e.runBackup(ctx, stage)
	case domain.StageTeardown:
		return e.runTeardown(ctx, stage)
	case domain.StageDeploy:
		return e.runDeploy(ctx)
	case domain.StageRestartDependents:
		return e.runRestarts(ctx, stage)
	case domain.StageVerify:
		return e.runVerify(ctx, stage)
	default:
		return errors.Newf(errors.CodeInternal, "unknown stage %s", stage.Name)
	}
}

// runBackup captures the current state of every resource a later stage will
// destroy. A resource already absent from the cluster needs no artifact.
func (e *Executor) runBackup(ctx context.Context, stage *domain.Stage) error {
	for _, ref := range stage.Targets {
		live, err := e.client.Get(ctx, ref)
		if err != nil {
			if errors.Is(err, errors.CodeResourceNotFound) {
				e.logger.Infof(ctx, "Skipping backup of %s: not present on cluster", ref)
				continue
			}
			return err
		}
		artifact, err := e.store.Save(ctx, live)
		if err != nil {
			return err
		}
		e.artifacts[ref.String()] = artifact
	}
	return nil
}

func (e *Executor) runTeardown(ctx context.Context, stage *domain.Stage) error {
	for _, ref := range stage.Targets {
		if err := e.client.Delete(ctx, ref); err != nil {
			return err
		}
		e.tornDown = append(e.tornDown, ref)
		e.logger.Infof(ctx, "Removed %s", ref)
	}
	return nil
}

func (e *Executor) runDeploy(ctx context.Context) error {
	for _, doc := range e.deploy {
		applied, err := e.client.Apply(ctx, doc.Raw)
		if err != nil {
			return err
		}
		e.applied = append(e.applied, doc.Ref())
		e.logger.Infof(ctx, "Applied %s from %s", applied.Ref, doc.Source)
	}
	return nil
}

// runRestarts issues restarts concurrently: dependents share no mutable
// state, but the stage only succeeds when every restart does.
func (e *Executor) runRestarts(ctx context.Context, stage *domain.Stage) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ref := range stage.Targets {
		ref := ref
		g.Go(func() error {
			if err := e.client.Restart(gctx, ref); err != nil {
				return err
			}
			e.restartMu.Lock()
			e.restarted = append(e.restarted, ref)
			e.restartMu.Unlock()
			e.logger.Infof(gctx, "Restarted %s", ref)
			return nil
		})
	}
	return g.Wait()
}

func (e *Executor) runVerify(ctx context.Context, stage *domain.Stage) error {
	for _, ref := range stage.Targets {
		if err := e.client.WaitUntilReady(ctx, ref, e.cfg.ReadyTimeout); err != nil {
			return err
		}
		e.logger.Infof(ctx, "%s is ready", ref)
	}
	return nil
}

// rollback executes compensating actions in reverse order, starting at the
// failed stage itself: its partial forward progress is undone the same way a
// completed stage's is. Rollback runs on a fresh context: the failure that
// triggered it may have been a cancellation.
func (e *Executor) rollback(result domain.MigrationResult, failedIdx int) (domain.MigrationResult, error) {
	ctx := context.Background()
	var rollbackErrs []string

	for i := failedIdx; i >= 0; i-- {
		stage := e.plan.Stages[i]
		if stage.Status != domain.StageSucceeded && stage.Status != domain.StageFailed {
			continue
		}
		e.logger.Infof(ctx, "Compensating stage %s", stage.Name)
		if err := e.compensate(ctx, stage); err != nil {
			rollbackErrs = append(rollbackErrs, fmt.Sprintf("%s: %v", stage.Name, err))
			e.logger.Errorf(ctx, err, "Compensating action for stage %s failed", stage.Name)
			continue
		}
		// The failed stage keeps its status: the report must show where
		// the migration broke even after its progress was undone.
		if stage.Status == domain.StageSucceeded {
			stage.Status = domain.StageRolledBack
		}
	}

	if len(rollbackErrs) > 0 {
		result.Outcome = domain.OutcomeRollbackFailed
		result.Message = fmt.Sprintf(
			"rollback incomplete (%s); restore manually from the backup artifacts in %s",
			strings.Join(rollbackErrs, "; "), e.store.Dir())
		return result, errors.NewUserFacing(errors.CodeRollbackFailed, result.Message,
			fmt.Sprintf("Re-apply the artifacts in %s to restore the pre-migration state.", e.store.Dir()))
	}

	result.Outcome = domain.OutcomeRolledBack
	result.Message = fmt.Sprintf("migration rolled back; pre-migration state restored, backups retained at %s",
		e.store.Dir())
	return result, nil
}

func (e *Executor) compensate(ctx context.Context, stage *domain.Stage) error {
	switch stage.Name {
	case domain.StageBackup:
		// Backups are retained, never undone.
		return nil
	case domain.StageTeardown:
		return e.compensateTeardown(ctx)
	case domain.StageDeploy:
		return e.compensateDeploy(ctx)
	case domain.StageRestartDependents:
		return e.compensateRestarts(ctx)
	case domain.StageVerify:
		return nil
	default:
		return errors.Newf(errors.CodeInternal, "unknown stage %s", stage.Name)
	}
}

// compensateTeardown re-applies the captured state of every resource the
// forward action actually removed, in reverse removal order.
func (e *Executor) compensateTeardown(ctx context.Context) error {
	for i := len(e.tornDown) - 1; i >= 0; i-- {
		ref := e.tornDown[i]
		artifact, ok := e.artifacts[ref.String()]
		if !ok {
			// Nothing was captured because nothing existed before.
			continue
		}
		if _, err := e.client.Apply(ctx, artifact.State); err != nil {
			return err
		}
		e.logger.Infof(ctx, "Restored %s from backup %s", ref, artifact.Path)
	}
	return nil
}

// compensateDeploy removes what the Deploy stage applied, except resources
// that replaced a backed-up original: those are restored by the Teardown
// compensation instead of deleted.
func (e *Executor) compensateDeploy(ctx context.Context) error {
	for i := len(e.applied) - 1; i >= 0; i-- {
		ref := e.applied[i]
		if _, replaced := e.artifacts[ref.String()]; replaced {
			continue
		}
		if err := e.client.Delete(ctx, ref); err != nil {
			return err
		}
		e.logger.Infof(ctx, "Removed applied resource %s", ref)
	}
	return nil
}

// compensateRestarts re-restarts only the dependents the forward action got
// to, so they pick the restored configuration back up.
func (e *Executor) compensateRestarts(ctx context.Context) error {
	for _, ref := range e.restarted {
		if err := e.client.Restart(ctx, ref); err != nil {
			return err
		}
	}
	return nil
}

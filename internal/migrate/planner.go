// Package migrate implements the staged resource-migration orchestrator:
// backup, teardown, deploy, restart dependents, verify, with rollback on
// any stage failure.
package migrate

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

// Selector names one resource a migration stage addresses.
type Selector struct {
	Kind      string `yaml:"kind" mapstructure:"kind" validate:"required"`
	Name      string `yaml:"name" mapstructure:"name" validate:"required"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

func (s Selector) Ref() domain.ResourceRef {
	return domain.ResourceRef{
		Kind:      domain.KindFromAPIValue(s.Kind),
		Namespace: s.Namespace,
		Name:      s.Name,
	}
}

type Config struct {
	// BackupDir is the root under which each run creates its timestamped
	// artifact directory.
	BackupDir string `yaml:"backup_dir" mapstructure:"backup_dir"`
	// ReadyTimeout bounds the Verify stage's readiness polling per
	// resource.
	ReadyTimeout time.Duration `yaml:"ready_timeout" mapstructure:"ready_timeout"`
	// Remove lists the old subsystem's resources torn down by the
	// migration.
	Remove []Selector `yaml:"remove" mapstructure:"remove"`
	// DeployFiles restricts the replacement manifests applied by the
	// Deploy stage to these base file names; empty applies every
	// non-pipeline document in the manifest set.
	DeployFiles []string `yaml:"deploy_files" mapstructure:"deploy_files"`
	// Dependents lists workloads restarted after the replacement lands so
	// they pick up the new configuration.
	Dependents []Selector `yaml:"dependents" mapstructure:"dependents"`
}

func DefaultConfig() Config {
	return Config{
		BackupDir:    "backups",
		ReadyTimeout: 2 * time.Minute,
	}
}

// BuildPlan constructs the immutable five-stage plan for one invocation.
// Only per-stage status mutates afterwards.
func BuildPlan(cfg Config, target string, index *domain.Index) (*domain.MigrationPlan, []*domain.ManifestDocument, error) {
	if target == "" {
		return nil, nil, errors.NewUserFacing(errors.CodeConfigValidation,
			"migration target environment is required", "Pass --target <env>.")
	}
	if len(cfg.Remove) == 0 {
		return nil, nil, errors.NewUserFacing(errors.CodeConfigValidation,
			"migration.remove must name at least one resource to tear down",
			"List the old subsystem's resources under migration.remove.")
	}

	deployDocs := selectDeployDocs(cfg, index)
	if len(deployDocs) == 0 {
		return nil, nil, errors.NewUserFacing(errors.CodeConfigValidation,
			"no replacement manifests selected for the Deploy stage",
			"Check migration.deploy_files against the manifest directory.")
	}

	removeRefs := make([]domain.ResourceRef, 0, len(cfg.Remove))
	for _, sel := range cfg.Remove {
		removeRefs = append(removeRefs, sel.Ref())
	}

	deployRefs := make([]domain.ResourceRef, 0, len(deployDocs))
	for _, doc := range deployDocs {
		deployRefs = append(deployRefs, doc.Ref())
	}

	dependentRefs := make([]domain.ResourceRef, 0, len(cfg.Dependents))
	for _, sel := range cfg.Dependents {
		dependentRefs = append(dependentRefs, sel.Ref())
	}

	verifyRefs := make([]domain.ResourceRef, 0, len(deployRefs)+len(dependentRefs))
	for _, ref := range deployRefs {
		if ref.Kind == domain.KindDeployment {
			verifyRefs = append(verifyRefs, ref)
		}
	}
	verifyRefs = append(verifyRefs, dependentRefs...)

	plan := &domain.MigrationPlan{
		ID:     uuid.NewString(),
		Target: target,
		Stages: []*domain.Stage{
			{Name: domain.StageBackup, Targets: removeRefs, Status: domain.StagePending},
			{Name: domain.StageTeardown, Targets: removeRefs, Status: domain.StagePending},
			{Name: domain.StageDeploy, Targets: deployRefs, Status: domain.StagePending},
			{Name: domain.StageRestartDependents, Targets: dependentRefs, Status: domain.StagePending},
			{Name: domain.StageVerify, Targets: verifyRefs, Status: domain.StagePending},
		},
	}
	return plan, deployDocs, nil
}

func selectDeployDocs(cfg Config, index *domain.Index) []*domain.ManifestDocument {
	wanted := make(map[string]struct{}, len(cfg.DeployFiles))
	for _, f := range cfg.DeployFiles {
		wanted[f] = struct{}{}
	}

	var docs []*domain.ManifestDocument
	for _, doc := range index.Documents() {
		if doc.Kind == domain.KindPipeline {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[filepath.Base(doc.Source)]; !ok {
				continue
			}
		}
		docs = append(docs, doc)
	}
	return docs
}

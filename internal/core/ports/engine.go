package ports

import (
	"context"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
)

// ValidationEngine runs the rule battery over a loaded index. Seed findings
// (parse failures recorded during load) are folded into the report so one
// pass surfaces everything.
type ValidationEngine interface {
	Run(ctx context.Context, in RuleInput, seed []domain.Finding) domain.ValidationReport
}

// MigrationOrchestrator executes a built plan end to end, rolling back on
// stage failure. One orchestrator serves one plan.
type MigrationOrchestrator interface {
	Execute(ctx context.Context) (domain.MigrationResult, error)
}

// BackupStore persists pre-destruction resource snapshots. Artifacts are
// written before any teardown and read back only by rollback or a manual
// recovery path.
type BackupStore interface {
	Dir() string
	Save(ctx context.Context, res *domain.LiveResource) (*domain.BackupArtifact, error)
	Load(ctx context.Context, ref domain.ResourceRef) (*domain.BackupArtifact, error)
	List(ctx context.Context) ([]*domain.BackupArtifact, error)
}

package ports

import (
	"context"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
)

type Reporter interface {
	ReportValidation(ctx context.Context, report domain.ValidationReport) error
	ReportMigration(ctx context.Context, result domain.MigrationResult) error
}

package text

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/log"
)

func testLogger(t *testing.T) ports.Logger {
	t.Helper()
	logger, err := log.NewLoggerWithWriter(log.Config{Level: log.LevelError}, io.Discard)
	require.NoError(t, err)
	return logger
}

func TestReportValidation(t *testing.T) {
	t.Run("clean report", func(t *testing.T) {
		var buf bytes.Buffer
		reporter := NewReporterWithWriter(Config{}, testLogger(t), &buf)

		report := domain.NewValidationReport(4, nil)
		require.NoError(t, reporter.ReportValidation(context.Background(), report))

		out := buf.String()
		assert.Contains(t, out, "Manifest Validation Report")
		assert.Contains(t, out, "[OK]")
		assert.Contains(t, out, "4 documents checked")
	})

	t.Run("findings table with hint", func(t *testing.T) {
		var buf bytes.Buffer
		reporter := NewReporterWithWriter(Config{}, testLogger(t), &buf)

		report := domain.NewValidationReport(2, []domain.Finding{
			{
				Severity:    domain.SeverityError,
				RuleID:      "reference-resolution",
				Resource:    domain.ResourceRef{Kind: domain.KindDeployment, Namespace: "staging", Name: "api"},
				Message:     "key absent",
				Remediation: "Add the key.",
			},
			{
				Severity: domain.SeverityInfo,
				RuleID:   "reference-resolution",
				Resource: domain.ResourceRef{Kind: domain.KindDeployment, Namespace: "staging", Name: "api"},
				Message:  "shared map",
			},
		})
		require.NoError(t, reporter.ReportValidation(context.Background(), report))

		out := buf.String()
		assert.Contains(t, out, "[ERROR]")
		assert.Contains(t, out, "[INFO]")
		assert.Contains(t, out, "Hint: Add the key.")
		assert.Contains(t, out, "Deployment/staging/api")
		assert.Contains(t, out, "Errors:")
	})
}

func TestReportMigration(t *testing.T) {
	gate := domain.NewValidationReport(3, []domain.Finding{{
		Severity: domain.SeverityError,
		RuleID:   "image-name-consistency",
		Resource: domain.ResourceRef{Kind: domain.KindDeployment, Namespace: "staging", Name: "api"},
		Message:  "repository mismatch",
	}})
	result := domain.MigrationResult{
		PlanID:  "plan-123",
		Target:  "staging",
		Outcome: domain.OutcomeAborted,
		Stages: []*domain.Stage{
			{Name: domain.StageBackup, Status: domain.StagePending},
			{Name: domain.StageTeardown, Status: domain.StagePending},
		},
		GateReport: &gate,
		Message:    "gate failed",
	}

	var buf bytes.Buffer
	reporter := NewReporterWithWriter(Config{}, testLogger(t), &buf)
	require.NoError(t, reporter.ReportMigration(context.Background(), result))

	out := buf.String()
	assert.Contains(t, out, "repository mismatch", "gate findings precede the stage table")
	assert.Contains(t, out, "Migration Plan plan-123 (target: staging)")
	assert.Contains(t, out, "Backup")
	assert.Contains(t, out, "Aborted")
	assert.Contains(t, out, "Detail:")
}

package json

import (
	"context"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

const ReporterTypeJSON = "json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Config struct{}

// Reporter renders findings and migration results with a stable field
// order so CI scripts can consume the output.
type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	return &Reporter{config: cfg, writer: os.Stdout, logger: logger}, nil
}

func NewReporterWithWriter(cfg Config, logger ports.Logger, w io.Writer) *Reporter {
	return &Reporter{config: cfg, writer: w, logger: logger}
}

type jsonFinding struct {
	Severity    domain.Severity `json:"severity"`
	RuleID      string          `json:"rule_id"`
	Resource    string          `json:"resource"`
	Message     string          `json:"message"`
	Remediation string          `json:"remediation,omitempty"`
}

type jsonValidationReport struct {
	Summary  domain.ValidationSummary `json:"summary"`
	Findings []jsonFinding            `json:"findings"`
}

type jsonStage struct {
	Name    domain.StageName   `json:"name"`
	Status  domain.StageStatus `json:"status"`
	Targets []string           `json:"targets"`
	Error   string             `json:"error,omitempty"`
}

type jsonMigrationResult struct {
	PlanID    string                  `json:"plan_id"`
	Target    string                  `json:"target"`
	Outcome   domain.MigrationOutcome `json:"outcome"`
	Stages    []jsonStage             `json:"stages"`
	Gate      *jsonValidationReport   `json:"gate,omitempty"`
	BackupDir string                  `json:"backup_dir,omitempty"`
	Message   string                  `json:"message,omitempty"`
}

func (r *Reporter) ReportValidation(ctx context.Context, report domain.ValidationReport) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return r.encode(toJSONReport(report))
}

func (r *Reporter) ReportMigration(ctx context.Context, result domain.MigrationResult) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	out := jsonMigrationResult{
		PlanID:    result.PlanID,
		Target:    result.Target,
		Outcome:   result.Outcome,
		Stages:    make([]jsonStage, 0, len(result.Stages)),
		BackupDir: result.BackupDir,
		Message:   result.Message,
	}
	for _, stage := range result.Stages {
		js := jsonStage{
			Name:    stage.Name,
			Status:  stage.Status,
			Targets: make([]string, 0, len(stage.Targets)),
		}
		for _, ref := range stage.Targets {
			js.Targets = append(js.Targets, ref.String())
		}
		if stage.Err != nil {
			js.Error = stage.Err.Error()
		}
		out.Stages = append(out.Stages, js)
	}
	if result.GateReport != nil {
		gate := toJSONReport(*result.GateReport)
		out.Gate = &gate
	}

	return r.encode(out)
}

func toJSONReport(report domain.ValidationReport) jsonValidationReport {
	out := jsonValidationReport{
		Summary:  report.Summary,
		Findings: make([]jsonFinding, 0, len(report.Findings)),
	}
	for _, f := range report.Findings {
		out.Findings = append(out.Findings, jsonFinding{
			Severity:    f.Severity,
			RuleID:      f.RuleID,
			Resource:    f.Resource.String(),
			Message:     f.Message,
			Remediation: f.Remediation,
		})
	}
	return out
}

func (r *Reporter) encode(v any) error {
	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode JSON report")
	}
	return nil
}

package text

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
)

const ReporterTypeText = "text"

type Config struct {
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
}

type Reporter struct {
	config Config
	writer io.Writer
	logger ports.Logger
}

func NewReporter(cfg Config, logger ports.Logger) (*Reporter, error) {
	if cfg.NoColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	return &Reporter{
		config: cfg,
		writer: os.Stdout,
		logger: logger,
	}, nil
}

// NewReporterWithWriter is used by tests to capture output.
func NewReporterWithWriter(cfg Config, logger ports.Logger, w io.Writer) *Reporter {
	color.NoColor = true
	return &Reporter{config: cfg, writer: w, logger: logger}
}

func isTerminal(f *os.File) bool {
	stat, _ := f.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func (r *Reporter) ReportValidation(ctx context.Context, report domain.ValidationReport) error {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "Manifest Validation Report")
	fmt.Fprintln(tw, "==========================")

	if len(report.Findings) == 0 {
		fmt.Fprintf(tw, "%s\t%d documents checked, no findings.\n", green("[OK]"), report.Summary.Documents)
		return nil
	}

	fmt.Fprintln(tw, "Severity\tRule\tResource\tMessage")
	fmt.Fprintln(tw, "--------\t----\t--------\t-------")

	for _, f := range report.Findings {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var sev string
		switch f.Severity {
		case domain.SeverityError:
			sev = red("[ERROR]")
		case domain.SeverityWarning:
			sev = yellow("[WARN]")
		default:
			sev = cyan("[INFO]")
		}

		msg := f.Message
		if f.Remediation != "" {
			msg = fmt.Sprintf("%s Hint: %s", msg, f.Remediation)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", sev, f.RuleID, f.Resource, msg)
	}

	fmt.Fprintln(tw, "\nSummary:")
	fmt.Fprintln(tw, "-------")
	fmt.Fprintf(tw, "Documents Checked:\t%d\n", report.Summary.Documents)
	fmt.Fprintf(tw, "Errors:\t%s\n", red(report.Summary.Errors))
	fmt.Fprintf(tw, "Warnings:\t%s\n", yellow(report.Summary.Warnings))
	fmt.Fprintf(tw, "Info:\t%s\n", cyan(report.Summary.Info))

	return nil
}

func (r *Reporter) ReportMigration(ctx context.Context, result domain.MigrationResult) error {
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	if result.GateReport != nil && len(result.GateReport.Findings) > 0 {
		if err := r.ReportValidation(ctx, *result.GateReport); err != nil {
			return err
		}
		fmt.Fprintln(r.writer)
	}

	tw := tabwriter.NewWriter(r.writer, 0, 8, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Migration Plan %s (target: %s)\n", result.PlanID, result.Target)
	fmt.Fprintln(tw, "Stage\tStatus\tTargets\tError")
	fmt.Fprintln(tw, "-----\t------\t-------\t-----")

	for _, stage := range result.Stages {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		status := string(stage.Status)
		switch stage.Status {
		case domain.StageSucceeded:
			status = green(status)
		case domain.StageFailed:
			status = red(status)
		case domain.StageRolledBack:
			status = yellow(status)
		}

		errMsg := ""
		if stage.Err != nil {
			errMsg = stage.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", stage.Name, status, len(stage.Targets), errMsg)
	}

	outcome := string(result.Outcome)
	switch result.Outcome {
	case domain.OutcomeSucceeded:
		outcome = green(outcome)
	case domain.OutcomeRolledBack, domain.OutcomeAborted:
		outcome = yellow(outcome)
	case domain.OutcomeRollbackFailed:
		outcome = red(outcome)
	}

	fmt.Fprintf(tw, "\nOutcome:\t%s\n", outcome)
	if result.BackupDir != "" {
		fmt.Fprintf(tw, "Backups:\t%s\n", result.BackupDir)
	}
	if result.Message != "" {
		fmt.Fprintf(tw, "Detail:\t%s\n", result.Message)
	}

	return nil
}

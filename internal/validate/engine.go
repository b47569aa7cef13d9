// Package validate implements the fixed battery of cross-document
// consistency rules.
package validate

import (
	"context"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/core/service"
)

type Config struct {
	// PlaceholderToken is the literal every image reference must carry in
	// place of a concrete tag; the release pipeline substitutes it.
	PlaceholderToken string `yaml:"placeholder_token" mapstructure:"placeholder_token"`
	// RequiredKinds lists document kinds that must be present in every
	// manifest set.
	RequiredKinds []string `yaml:"required_kinds" mapstructure:"required_kinds"`
	// SharedConfigMaps names environment-shared maps whose keys are
	// maintained outside this manifest set; unresolved references into
	// them are informational, not errors.
	SharedConfigMaps []string `yaml:"shared_configmaps" mapstructure:"shared_configmaps"`
}

func DefaultConfig() Config {
	return Config{
		PlaceholderToken: "{{IMAGE_TAG}}",
		RequiredKinds:    []string{"Deployment", "ConfigMap", "Pipeline"},
	}
}

type Engine struct {
	registry *service.RuleRegistry
	logger   ports.Logger
}

func NewEngine(registry *service.RuleRegistry, logger ports.Logger) *Engine {
	return &Engine{
		registry: registry,
		logger:   logger.WithFields(map[string]any{"component": "validator"}),
	}
}

// NewDefaultEngine wires the full rule battery.
func NewDefaultEngine(cfg Config, logger ports.Logger) (*Engine, error) {
	registry := service.NewRuleRegistry()
	rules := []ports.Rule{
		NewPlaceholderRule(cfg),
		NewImageConsistencyRule(),
		NewReferenceResolutionRule(cfg),
		NewRequiredDocumentsRule(cfg),
		NewLiveResourceRule(),
	}
	for _, r := range rules {
		if err := registry.Register(r); err != nil {
			return nil, err
		}
	}
	return NewEngine(registry, logger), nil
}

// Run executes every registered rule and folds the results, plus the seed
// findings from the load phase, into one deterministic report. Rules never
// abort the pass; a fixed input set always yields the same finding
// sequence.
func (e *Engine) Run(ctx context.Context, in ports.RuleInput, seed []domain.Finding) domain.ValidationReport {
	findings := make([]domain.Finding, 0, len(seed))
	findings = append(findings, seed...)

	for _, rule := range e.registry.Rules() {
		if ctx.Err() != nil {
			break
		}
		ruleFindings := rule.Check(ctx, in)
		e.logger.Debugf(ctx, "Rule %s produced %d findings", rule.ID(), len(ruleFindings))
		findings = append(findings, ruleFindings...)
	}

	docs := 0
	if in.Index != nil {
		docs = in.Index.Len()
	}
	report := domain.NewValidationReport(docs, findings)
	e.logger.Infof(ctx, "Validation complete: %d documents, %d errors, %d warnings, %d info",
		report.Summary.Documents, report.Summary.Errors, report.Summary.Warnings, report.Summary.Info)
	return report
}

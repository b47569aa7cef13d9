package validate

import (
	"context"
	"fmt"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
)

const RuleIDRequiredFile = "required-file"

// RequiredDocumentsRule checks that the expected document set is present:
// by default a workload, its service configuration, and the pipeline
// definition.
type RequiredDocumentsRule struct {
	required []domain.ManifestKind
}

func NewRequiredDocumentsRule(cfg Config) *RequiredDocumentsRule {
	names := cfg.RequiredKinds
	if len(names) == 0 {
		names = DefaultConfig().RequiredKinds
	}
	kinds := make([]domain.ManifestKind, 0, len(names))
	for _, n := range names {
		kinds = append(kinds, domain.ManifestKind(n))
	}
	return &RequiredDocumentsRule{required: kinds}
}

func (r *RequiredDocumentsRule) ID() string { return RuleIDRequiredFile }

func (r *RequiredDocumentsRule) Check(_ context.Context, in ports.RuleInput) []domain.Finding {
	var findings []domain.Finding
	for _, kind := range r.required {
		if len(in.Index.ByKind(kind)) > 0 {
			continue
		}
		findings = append(findings, domain.Finding{
			Severity:    domain.SeverityError,
			RuleID:      RuleIDRequiredFile,
			Resource:    domain.ResourceRef{Kind: kind},
			Message:     fmt.Sprintf("no %s document found in the manifest set", kind),
			Remediation: fmt.Sprintf("Add the %s document to the manifest directory.", kind),
		})
	}
	return findings
}

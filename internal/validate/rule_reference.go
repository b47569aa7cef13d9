package validate

import (
	"context"
	"fmt"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
)

const RuleIDReferenceResolution = "reference-resolution"

// ReferenceResolutionRule checks that every ConfigMap/Secret env reference
// resolves to a key in a loaded document. References into configured shared
// maps are informational: their keys live outside this manifest set.
type ReferenceResolutionRule struct {
	shared map[string]struct{}
}

func NewReferenceResolutionRule(cfg Config) *ReferenceResolutionRule {
	shared := make(map[string]struct{}, len(cfg.SharedConfigMaps))
	for _, name := range cfg.SharedConfigMaps {
		shared[name] = struct{}{}
	}
	return &ReferenceResolutionRule{shared: shared}
}

func (r *ReferenceResolutionRule) ID() string { return RuleIDReferenceResolution }

func (r *ReferenceResolutionRule) Check(_ context.Context, in ports.RuleInput) []domain.Finding {
	var findings []domain.Finding
	for _, doc := range in.Index.Documents() {
		for _, ref := range doc.EnvRefs {
			if f := r.checkRef(in.Index, ref); f != nil {
				findings = append(findings, *f)
			}
		}
	}
	return findings
}

func (r *ReferenceResolutionRule) checkRef(index *domain.Index, ref domain.EnvReference) *domain.Finding {
	var sourceKind domain.ManifestKind
	switch ref.SourceKind {
	case domain.RefSourceConfigMap:
		sourceKind = domain.KindConfigMap
	case domain.RefSourceSecret:
		sourceKind = domain.KindSecret
	default:
		return nil
	}

	source, found := index.Lookup(sourceKind, ref.SourceName)
	if !found {
		if _, shared := r.shared[ref.SourceName]; shared {
			return &domain.Finding{
				Severity: domain.SeverityInfo,
				RuleID:   RuleIDReferenceResolution,
				Resource: ref.Owner,
				Message: fmt.Sprintf("%s %q referenced by %s is environment-shared and not part of this manifest set",
					sourceKind, ref.SourceName, describeRef(ref)),
			}
		}
		return &domain.Finding{
			Severity: domain.SeverityError,
			RuleID:   RuleIDReferenceResolution,
			Resource: ref.Owner,
			Message: fmt.Sprintf("%s references %s %q which is not defined in any loaded document",
				describeRef(ref), sourceKind, ref.SourceName),
			Remediation: fmt.Sprintf("Add a %s named %q or fix the reference.", sourceKind, ref.SourceName),
		}
	}

	// Whole-map import: resolving the document is enough.
	if ref.SourceKey == "" {
		return nil
	}

	if source.HasDataKey(ref.SourceKey) {
		return nil
	}

	if _, shared := r.shared[ref.SourceName]; shared {
		return &domain.Finding{
			Severity: domain.SeverityInfo,
			RuleID:   RuleIDReferenceResolution,
			Resource: ref.Owner,
			Message: fmt.Sprintf("key %q referenced by %s lives in environment-shared %s %q",
				ref.SourceKey, describeRef(ref), sourceKind, ref.SourceName),
		}
	}
	severity := domain.SeverityError
	if ref.Optional {
		severity = domain.SeverityWarning
	}
	return &domain.Finding{
		Severity: severity,
		RuleID:   RuleIDReferenceResolution,
		Resource: ref.Owner,
		Message: fmt.Sprintf("%s references key %q absent from %s %q",
			describeRef(ref), ref.SourceKey, sourceKind, ref.SourceName),
		Remediation: fmt.Sprintf("Add key %q to %s %q or remove the reference.",
			ref.SourceKey, sourceKind, ref.SourceName),
	}
}

func describeRef(ref domain.EnvReference) string {
	if ref.VarName != "" {
		return fmt.Sprintf("env var %s of %s", ref.VarName, ref.Owner)
	}
	return fmt.Sprintf("envFrom import of %s", ref.Owner)
}

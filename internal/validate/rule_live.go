package validate

import (
	"context"
	"fmt"
	"sort"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

const RuleIDLiveResource = "live-resource"

// LiveResourceRule cross-checks referenced ConfigMaps/Secrets against the
// live cluster. Live state is advisory at validation time, so everything
// this rule finds is a warning. Without a client the rule is a no-op.
type LiveResourceRule struct{}

func NewLiveResourceRule() *LiveResourceRule { return &LiveResourceRule{} }

func (r *LiveResourceRule) ID() string { return RuleIDLiveResource }

func (r *LiveResourceRule) Check(ctx context.Context, in ports.RuleInput) []domain.Finding {
	if in.Client == nil {
		return nil
	}

	type target struct {
		ref   domain.ResourceRef
		owner domain.ResourceRef
	}
	seen := make(map[string]target)
	for _, doc := range in.Index.Documents() {
		for _, envRef := range doc.EnvRefs {
			var kind domain.ManifestKind
			switch envRef.SourceKind {
			case domain.RefSourceConfigMap:
				kind = domain.KindConfigMap
			case domain.RefSourceSecret:
				kind = domain.KindSecret
			default:
				continue
			}
			ref := domain.ResourceRef{Kind: kind, Namespace: doc.Namespace, Name: envRef.SourceName}
			if _, dup := seen[ref.String()]; !dup {
				seen[ref.String()] = target{ref: ref, owner: envRef.Owner}
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var findings []domain.Finding
	for _, k := range keys {
		if ctx.Err() != nil {
			break
		}
		t := seen[k]
		_, err := in.Client.Get(ctx, t.ref)
		if err == nil {
			continue
		}
		if errors.Is(err, errors.CodeResourceNotFound) {
			findings = append(findings, domain.Finding{
				Severity:    domain.SeverityWarning,
				RuleID:      RuleIDLiveResource,
				Resource:    t.owner,
				Message:     fmt.Sprintf("%s is referenced but does not exist on the cluster", t.ref),
				Remediation: "Deploy the missing resource before the workload starts.",
			})
			continue
		}
		findings = append(findings, domain.Finding{
			Severity: domain.SeverityWarning,
			RuleID:   RuleIDLiveResource,
			Resource: t.owner,
			Message:  fmt.Sprintf("could not check %s on the cluster: %v", t.ref, err),
		})
	}
	return findings
}

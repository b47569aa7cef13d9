package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/manifest"
)

const RuleIDImageConsistency = "image-name-consistency"

// ImageConsistencyRule checks that every workload's image repository matches
// a repository declared in the CI pipeline definition. A mismatch means the
// pipeline builds one image and the manifests deploy another.
type ImageConsistencyRule struct{}

func NewImageConsistencyRule() *ImageConsistencyRule { return &ImageConsistencyRule{} }

func (r *ImageConsistencyRule) ID() string { return RuleIDImageConsistency }

func (r *ImageConsistencyRule) Check(_ context.Context, in ports.RuleInput) []domain.Finding {
	pipelines := in.Index.ByKind(domain.KindPipeline)
	if len(pipelines) == 0 {
		// Absence of the pipeline definition is the required-file rule's
		// finding, not this rule's.
		return nil
	}

	declared := make(map[string]struct{})
	for _, p := range pipelines {
		for _, image := range p.Images {
			declared[manifest.RepositoryOf(image)] = struct{}{}
		}
	}
	if len(declared) == 0 {
		return []domain.Finding{{
			Severity:    domain.SeverityWarning,
			RuleID:      RuleIDImageConsistency,
			Resource:    pipelines[0].Ref(),
			Message:     "pipeline definition declares no image repository",
			Remediation: "Declare the image repository the pipeline builds.",
		}}
	}

	var findings []domain.Finding
	for _, kind := range []domain.ManifestKind{domain.KindDeployment, domain.KindJob} {
		for _, doc := range in.Index.ByKind(kind) {
			for _, image := range doc.Images {
				repo := manifest.RepositoryOf(image)
				if _, ok := declared[repo]; ok {
					continue
				}
				findings = append(findings, domain.Finding{
					Severity: domain.SeverityError,
					RuleID:   RuleIDImageConsistency,
					Resource: doc.Ref(),
					Message: fmt.Sprintf("image repository %q does not match pipeline declaration (%s)",
						repo, strings.Join(sortedKeys(declared), ", ")),
					Remediation: "Align the manifest image repository with the pipeline definition.",
				})
			}
		}
	}
	return findings
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

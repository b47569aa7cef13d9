package validate

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/manifest"
)

const RuleIDPlaceholderIntegrity = "placeholder-integrity"

var semverTag = regexp.MustCompile(`^v?\d+\.\d+\.\d+`)

// PlaceholderRule enforces that workload image references carry the agreed
// placeholder token instead of a concrete version. A manually substituted
// semantic version breaks the automated release pipeline, which performs
// the substitution itself.
type PlaceholderRule struct {
	token string
}

func NewPlaceholderRule(cfg Config) *PlaceholderRule {
	token := cfg.PlaceholderToken
	if token == "" {
		token = DefaultConfig().PlaceholderToken
	}
	return &PlaceholderRule{token: token}
}

func (r *PlaceholderRule) ID() string { return RuleIDPlaceholderIntegrity }

func (r *PlaceholderRule) Check(_ context.Context, in ports.RuleInput) []domain.Finding {
	var findings []domain.Finding
	for _, kind := range []domain.ManifestKind{domain.KindDeployment, domain.KindJob} {
		for _, doc := range in.Index.ByKind(kind) {
			for _, image := range doc.Images {
				findings = append(findings, r.checkImage(doc.Ref(), image)...)
			}
		}
	}
	return findings
}

func (r *PlaceholderRule) checkImage(ref domain.ResourceRef, image string) []domain.Finding {
	if strings.Contains(image, r.token) {
		return nil
	}

	tag := tagOf(image)
	if semverTag.MatchString(tag) {
		return []domain.Finding{{
			Severity: domain.SeverityError,
			RuleID:   RuleIDPlaceholderIntegrity,
			Resource: ref,
			Message: fmt.Sprintf("image %q carries concrete version %q where placeholder %s is expected",
				image, tag, r.token),
			Remediation: fmt.Sprintf("Replace the tag with %s; the release pipeline substitutes the version.", r.token),
		}}
	}

	return []domain.Finding{{
		Severity: domain.SeverityWarning,
		RuleID:   RuleIDPlaceholderIntegrity,
		Resource: ref,
		Message: fmt.Sprintf("image %q does not carry placeholder %s", image, r.token),
		Remediation: fmt.Sprintf("Use %s as the image tag.", r.token),
	}}
}

func tagOf(image string) string {
	repo := manifest.RepositoryOf(image)
	rest := strings.TrimPrefix(image, repo)
	return strings.TrimPrefix(rest, ":")
}

package validate

import (
	"context"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
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

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := NewDefaultEngine(cfg, testLogger(t))
	require.NoError(t, err)
	return engine
}

func deploymentDoc(name, ns, image string, envRefs ...domain.EnvReference) *domain.ManifestDocument {
	doc := &domain.ManifestDocument{
		Kind:      domain.KindDeployment,
		APIKind:   "Deployment",
		Name:      name,
		Namespace: ns,
		Images:    []string{image},
	}
	for i := range envRefs {
		envRefs[i].Owner = doc.Ref()
	}
	doc.EnvRefs = envRefs
	return doc
}

func configMapDoc(name, ns string, data map[string]string) *domain.ManifestDocument {
	return &domain.ManifestDocument{
		Kind:      domain.KindConfigMap,
		APIKind:   "ConfigMap",
		Name:      name,
		Namespace: ns,
		Data:      data,
	}
}

func pipelineDoc(images ...string) *domain.ManifestDocument {
	return &domain.ManifestDocument{
		Kind:    domain.KindPipeline,
		APIKind: "Pipeline",
		Name:    "pipeline.yaml",
		Images:  images,
	}
}

func buildIndex(docs ...*domain.ManifestDocument) *domain.Index {
	index := domain.NewIndex()
	for _, doc := range docs {
		index.Add(doc)
	}
	index.ResolveReferences()
	return index
}

func findingsByRule(report domain.ValidationReport, ruleID string) []domain.Finding {
	var out []domain.Finding
	for _, f := range report.Findings {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}

func TestEngine_CleanManifestSet(t *testing.T) {
	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-a:{{IMAGE_TAG}}",
			domain.EnvReference{
				VarName:    "RATE_LIMIT",
				SourceKind: domain.RefSourceConfigMap,
				SourceName: "api-config",
				SourceKey:  "API_RATE_LIMIT",
			}),
		configMapDoc("api-config", "staging", map[string]string{"API_RATE_LIMIT": "100"}),
		pipelineDoc("org/service-a"),
	)

	engine := newTestEngine(t, DefaultConfig())
	report := engine.Run(context.Background(), ports.RuleInput{Index: index}, nil)

	assert.False(t, report.HasErrors())
	assert.Equal(t, 0, report.Summary.Errors)
	assert.Equal(t, 3, report.Summary.Documents)
}

func TestEngine_UnresolvedReference(t *testing.T) {
	// The ConfigMap exists but the referenced key does not.
	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-a:{{IMAGE_TAG}}",
			domain.EnvReference{
				VarName:    "RATE_LIMIT",
				SourceKind: domain.RefSourceConfigMap,
				SourceName: "api-config",
				SourceKey:  "API_RATE_LIMIT",
			}),
		configMapDoc("api-config", "staging", map[string]string{"OTHER_KEY": "1"}),
		pipelineDoc("org/service-a"),
	)

	engine := newTestEngine(t, DefaultConfig())
	report := engine.Run(context.Background(), ports.RuleInput{Index: index}, nil)

	require.True(t, report.HasErrors())
	refFindings := findingsByRule(report, RuleIDReferenceResolution)
	require.Len(t, refFindings, 1)
	assert.Equal(t, domain.SeverityError, refFindings[0].Severity)
	assert.Equal(t, "Deployment/staging/api-server", refFindings[0].Resource.String())
	assert.Contains(t, refFindings[0].Message, "API_RATE_LIMIT")
}

func TestEngine_ImageNameMismatch(t *testing.T) {
	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-b:{{IMAGE_TAG}}"),
		configMapDoc("api-config", "staging", nil),
		pipelineDoc("org/service-a"),
	)

	engine := newTestEngine(t, DefaultConfig())
	report := engine.Run(context.Background(), ports.RuleInput{Index: index}, nil)

	require.True(t, report.HasErrors())
	imgFindings := findingsByRule(report, RuleIDImageConsistency)
	require.Len(t, imgFindings, 1)
	assert.Equal(t, domain.SeverityError, imgFindings[0].Severity)
	assert.Contains(t, imgFindings[0].Message, "org/service-b")
	assert.Contains(t, imgFindings[0].Message, "org/service-a")
}

func TestEngine_SharedConfigMapIsInformational(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SharedConfigMaps = []string{"platform-shared"}

	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-a:{{IMAGE_TAG}}",
			domain.EnvReference{
				VarName:    "SHARED_URL",
				SourceKind: domain.RefSourceConfigMap,
				SourceName: "platform-shared",
				SourceKey:  "BASE_URL",
			}),
		configMapDoc("api-config", "staging", nil),
		pipelineDoc("org/service-a"),
	)

	engine := newTestEngine(t, cfg)
	report := engine.Run(context.Background(), ports.RuleInput{Index: index}, nil)

	assert.False(t, report.HasErrors())
	refFindings := findingsByRule(report, RuleIDReferenceResolution)
	require.Len(t, refFindings, 1)
	assert.Equal(t, domain.SeverityInfo, refFindings[0].Severity)
}

func TestEngine_MissingRequiredDocuments(t *testing.T) {
	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-a:{{IMAGE_TAG}}"),
	)

	engine := newTestEngine(t, DefaultConfig())
	report := engine.Run(context.Background(), ports.RuleInput{Index: index}, nil)

	require.True(t, report.HasErrors())
	reqFindings := findingsByRule(report, RuleIDRequiredFile)
	require.Len(t, reqFindings, 2)
	assert.Contains(t, reqFindings[0].Message, "ConfigMap")
	assert.Contains(t, reqFindings[1].Message, "Pipeline")
}

func TestEngine_SeedFindingsFoldedIn(t *testing.T) {
	index := buildIndex(
		configMapDoc("api-config", "staging", nil),
		pipelineDoc("org/service-a"),
	)
	seed := []domain.Finding{{
		Severity: domain.SeverityError,
		RuleID:   "manifest-parse",
		Resource: domain.ResourceRef{Kind: domain.KindOther, Name: "broken.yaml"},
		Message:  "invalid YAML",
	}}

	engine := newTestEngine(t, DefaultConfig())
	report := engine.Run(context.Background(), ports.RuleInput{Index: index}, seed)

	require.True(t, report.HasErrors())
	assert.Len(t, findingsByRule(report, "manifest-parse"), 1)
}

func TestEngine_Deterministic(t *testing.T) {
	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-b:1.2.3",
			domain.EnvReference{
				VarName:    "A",
				SourceKind: domain.RefSourceConfigMap,
				SourceName: "missing-map",
				SourceKey:  "K",
			},
			domain.EnvReference{
				VarName:    "B",
				SourceKind: domain.RefSourceSecret,
				SourceName: "missing-secret",
				SourceKey:  "K",
			}),
		pipelineDoc("org/service-a"),
	)

	engine := newTestEngine(t, DefaultConfig())
	first := engine.Run(context.Background(), ports.RuleInput{Index: index}, nil)
	second := engine.Run(context.Background(), ports.RuleInput{Index: index}, nil)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("reports differ between identical runs (-first +second):\n%s", diff)
	}
}

func TestPlaceholderRule(t *testing.T) {
	rule := NewPlaceholderRule(DefaultConfig())
	ref := domain.ResourceRef{Kind: domain.KindDeployment, Namespace: "staging", Name: "api"}

	tests := []struct {
		name     string
		image    string
		severity domain.Severity
		none     bool
	}{
		{name: "placeholder present", image: "org/svc:{{IMAGE_TAG}}", none: true},
		{name: "concrete semver tag", image: "org/svc:1.4.2", severity: domain.SeverityError},
		{name: "concrete v-prefixed tag", image: "org/svc:v2.0.0", severity: domain.SeverityError},
		{name: "non-semver tag", image: "org/svc:latest", severity: domain.SeverityWarning},
		{name: "no tag at all", image: "org/svc", severity: domain.SeverityWarning},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			findings := rule.checkImage(ref, tc.image)
			if tc.none {
				assert.Empty(t, findings)
				return
			}
			require.Len(t, findings, 1)
			assert.Equal(t, tc.severity, findings[0].Severity)
		})
	}
}

func TestReferenceRule_OptionalKeyIsWarning(t *testing.T) {
	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-a:{{IMAGE_TAG}}",
			domain.EnvReference{
				VarName:    "OPT",
				SourceKind: domain.RefSourceSecret,
				SourceName: "api-secrets",
				SourceKey:  "MISSING",
				Optional:   true,
			}),
		&domain.ManifestDocument{
			Kind: domain.KindSecret, APIKind: "Secret",
			Name: "api-secrets", Namespace: "staging",
			Data: map[string]string{"PRESENT": "x"},
		},
	)

	rule := NewReferenceResolutionRule(DefaultConfig())
	findings := rule.Check(context.Background(), ports.RuleInput{Index: index})

	require.Len(t, findings, 1)
	assert.Equal(t, domain.SeverityWarning, findings[0].Severity)
}

func TestReferenceRule_WholeMapImportResolvedByDocument(t *testing.T) {
	index := buildIndex(
		deploymentDoc("api-server", "staging", "org/service-a:{{IMAGE_TAG}}",
			domain.EnvReference{
				SourceKind: domain.RefSourceConfigMap,
				SourceName: "api-config",
			}),
		configMapDoc("api-config", "staging", nil),
	)

	rule := NewReferenceResolutionRule(DefaultConfig())
	findings := rule.Check(context.Background(), ports.RuleInput{Index: index})

	assert.Empty(t, findings)
}

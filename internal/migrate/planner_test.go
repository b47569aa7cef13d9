package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

func planIndex() *domain.Index {
	index := domain.NewIndex()
	index.Add(&domain.ManifestDocument{
		Kind: domain.KindDeployment, APIKind: "Deployment",
		Name: "new-api", Namespace: "staging",
		Source: "manifests/new-api.yaml",
	})
	index.Add(&domain.ManifestDocument{
		Kind: domain.KindConfigMap, APIKind: "ConfigMap",
		Name: "api-config", Namespace: "staging",
		Source: "manifests/configmap.yaml",
	})
	index.Add(&domain.ManifestDocument{
		Kind: domain.KindPipeline, APIKind: "Pipeline",
		Name: "pipeline.yaml", Source: "manifests/pipeline.yaml",
	})
	index.ResolveReferences()
	return index
}

func TestBuildPlan(t *testing.T) {
	cfg := Config{
		Remove:     []Selector{{Kind: "Deployment", Name: "old-api", Namespace: "staging"}},
		Dependents: []Selector{{Kind: "Deployment", Name: "worker", Namespace: "staging"}},
	}

	plan, deployDocs, err := BuildPlan(cfg, "staging", planIndex())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.NotEmpty(t, plan.ID)
	assert.Equal(t, "staging", plan.Target)

	require.Len(t, plan.Stages, 5)
	assert.Equal(t, domain.StageBackup, plan.Stages[0].Name)
	assert.Equal(t, domain.StageTeardown, plan.Stages[1].Name)
	assert.Equal(t, domain.StageDeploy, plan.Stages[2].Name)
	assert.Equal(t, domain.StageRestartDependents, plan.Stages[3].Name)
	assert.Equal(t, domain.StageVerify, plan.Stages[4].Name)

	// Pipeline documents are never deployed.
	require.Len(t, deployDocs, 2)
	for _, doc := range deployDocs {
		assert.NotEqual(t, domain.KindPipeline, doc.Kind)
	}

	// Verify covers the deployed workloads plus the dependents, but not
	// the ConfigMap (readiness is undefined for it).
	verify := plan.Stage(domain.StageVerify)
	require.Len(t, verify.Targets, 2)
	assert.Equal(t, "new-api", verify.Targets[0].Name)
	assert.Equal(t, "worker", verify.Targets[1].Name)
}

func TestBuildPlan_Validation(t *testing.T) {
	index := planIndex()
	remove := []Selector{{Kind: "Deployment", Name: "old-api"}}

	t.Run("missing target", func(t *testing.T) {
		_, _, err := BuildPlan(Config{Remove: remove}, "", index)
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigValidation, errors.GetCode(err))
	})

	t.Run("empty remove list", func(t *testing.T) {
		_, _, err := BuildPlan(Config{}, "staging", index)
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigValidation, errors.GetCode(err))
	})

	t.Run("deploy file filter matches nothing", func(t *testing.T) {
		cfg := Config{Remove: remove, DeployFiles: []string{"does-not-exist.yaml"}}
		_, _, err := BuildPlan(cfg, "staging", index)
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigValidation, errors.GetCode(err))
	})
}

func TestBuildPlan_DeployFileFilter(t *testing.T) {
	cfg := Config{
		Remove:      []Selector{{Kind: "Deployment", Name: "old-api"}},
		DeployFiles: []string{"new-api.yaml"},
	}

	_, deployDocs, err := BuildPlan(cfg, "staging", planIndex())
	require.NoError(t, err)
	require.Len(t, deployDocs, 1)
	assert.Equal(t, "new-api", deployDocs[0].Name)
}

func TestSelectorRef(t *testing.T) {
	sel := Selector{Kind: "StatefulSet", Name: "db", Namespace: "prod"}
	ref := sel.Ref()
	assert.Equal(t, domain.KindDeployment, ref.Kind)
	assert.Equal(t, "Deployment/prod/db", ref.String())
}

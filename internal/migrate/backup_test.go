package migrate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/manifest-sentry/internal/core/domain"
	"github.com/sentinelops/manifest-sentry/internal/errors"
)

func TestFileBackupStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileBackupStore(t.TempDir(), "staging", time.Now(), testLogger(t))
	require.NoError(t, err)

	res := &domain.LiveResource{
		Ref:   domain.ResourceRef{Kind: domain.KindDeployment, Namespace: "staging", Name: "old-api"},
		State: []byte(`{"kind":"Deployment"}`),
	}

	saved, err := store.Save(ctx, res)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, filepath.Join(store.Dir(), "deployment-staging-old-api.json"), saved.Path)

	loaded, err := store.Load(ctx, res.Ref)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(saved, loaded))
	assert.Equal(t, res.Ref, loaded.Resource)
	assert.Equal(t, res.State, loaded.State)
}

func TestFileBackupStore_LoadMissing(t *testing.T) {
	store, err := NewFileBackupStore(t.TempDir(), "staging", time.Now(), testLogger(t))
	require.NoError(t, err)

	_, err = store.Load(context.Background(), domain.ResourceRef{
		Kind: domain.KindDeployment, Namespace: "staging", Name: "never-saved",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeResourceNotFound, errors.GetCode(err))
}

func TestFileBackupStore_ListSorted(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileBackupStore(t.TempDir(), "staging", time.Now(), testLogger(t))
	require.NoError(t, err)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := store.Save(ctx, &domain.LiveResource{
			Ref:   domain.ResourceRef{Kind: domain.KindConfigMap, Namespace: "staging", Name: name},
			State: []byte(`{}`),
		})
		require.NoError(t, err)
	}

	artifacts, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, artifacts, 3)
	assert.Equal(t, "alpha", artifacts[0].Resource.Name)
	assert.Equal(t, "mid", artifacts[1].Resource.Name)
	assert.Equal(t, "zeta", artifacts[2].Resource.Name)
}

func TestFileBackupStore_DirPerRun(t *testing.T) {
	root := t.TempDir()
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	store, err := NewFileBackupStore(root, "production", at, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "production-20260314T092653Z"), store.Dir())
}

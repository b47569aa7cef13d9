package app

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelops/manifest-sentry/internal/config"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
	"github.com/sentinelops/manifest-sentry/internal/log"
	"github.com/sentinelops/manifest-sentry/internal/manifest"
	reportjson "github.com/sentinelops/manifest-sentry/internal/reporting/json"
	"github.com/sentinelops/manifest-sentry/internal/validate"
)

func testLogger(t *testing.T) ports.Logger {
	t.Helper()
	logger, err := log.NewLoggerWithWriter(log.Config{Level: log.LevelError}, io.Discard)
	require.NoError(t, err)
	return logger
}

func TestBuildApplicationFromViper(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		application, err := BuildApplicationFromViper(ctx, viper.New())
		require.NoError(t, err)
		require.NotNil(t, application)
		assert.NotNil(t, application.Reporter)
		assert.NotNil(t, application.Loader)
		assert.NotNil(t, application.Validator)
		assert.Equal(t, "kubectl", application.Config.Cluster.Binary)
	})

	t.Run("json reporter selected", func(t *testing.T) {
		v := viper.New()
		v.Set("settings.reporter", "json")

		application, err := BuildApplicationFromViper(ctx, v)
		require.NoError(t, err)
		_, ok := application.Reporter.(*reportjson.Reporter)
		assert.True(t, ok)
	})

	t.Run("invalid reporter type rejected", func(t *testing.T) {
		v := viper.New()
		v.Set("settings.reporter", "xml")

		_, err := BuildApplicationFromViper(ctx, v)
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigValidation, errors.GetCode(err))
	})

	t.Run("retry attempts bound enforced", func(t *testing.T) {
		v := viper.New()
		v.Set("cluster.retry_attempts", 50)

		_, err := BuildApplicationFromViper(ctx, v)
		require.Error(t, err)
		assert.Equal(t, errors.CodeConfigValidation, errors.GetCode(err))
	})
}

func testApplication(t *testing.T, out io.Writer) *Application {
	t.Helper()
	cfg := config.DefaultConfig()
	logger := testLogger(t)
	engine, err := validate.NewDefaultEngine(cfg.Validation, logger)
	require.NoError(t, err)

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Reporter:  reportjson.NewReporterWithWriter(reportjson.Config{}, logger, out),
		Loader:    manifest.NewLoader(cfg.Manifests, logger),
		Validator: engine,
	}
}

func TestRunValidate(t *testing.T) {
	dir := t.TempDir()
	manifests := map[string]string{
		"deployment.yaml": `kind: Deployment
metadata:
  name: api
  namespace: staging
spec:
  template:
    spec:
      containers:
        - name: api
          image: org/service-a:{{IMAGE_TAG}}
`,
		"configmap.yaml": `kind: ConfigMap
metadata:
  name: api-config
  namespace: staging
data:
  KEY: "value"
`,
		"pipeline.yaml": `stages:
  - build:
      image: org/service-a
`,
	}
	for name, content := range manifests {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	var buf bytes.Buffer
	application := testApplication(t, &buf)

	report, err := application.RunValidate(context.Background(), ValidateOptions{Dir: dir})
	require.NoError(t, err)
	assert.False(t, report.HasErrors())
	assert.Equal(t, 3, report.Summary.Documents)
	assert.Contains(t, buf.String(), `"summary"`)
}

func TestRunValidate_MissingDirectory(t *testing.T) {
	var buf bytes.Buffer
	application := testApplication(t, &buf)

	_, err := application.RunValidate(context.Background(), ValidateOptions{
		Dir: filepath.Join(t.TempDir(), "absent"),
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeManifestReadError, errors.GetCode(err))
	assert.Zero(t, buf.Len(), "nothing reported when loading fails")
}

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sentinelops/manifest-sentry/internal/cluster"
	"github.com/sentinelops/manifest-sentry/internal/config"
	"github.com/sentinelops/manifest-sentry/internal/core/ports"
	"github.com/sentinelops/manifest-sentry/internal/errors"
	"github.com/sentinelops/manifest-sentry/internal/log"
	"github.com/sentinelops/manifest-sentry/internal/manifest"
	reportjson "github.com/sentinelops/manifest-sentry/internal/reporting/json"
	reporttext "github.com/sentinelops/manifest-sentry/internal/reporting/text"
	"github.com/sentinelops/manifest-sentry/internal/validate"
)

// BuildApplicationFromViper assembles every component from the layered
// configuration. The resource client is built lazily by the operations that
// need it so plain offline validation never touches the control plane.
func BuildApplicationFromViper(ctx context.Context, v *viper.Viper) (*Application, error) {
	cfg := config.DefaultConfig()
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, errors.Wrap(err, errors.CodeConfigParseError, "failed to unmarshal configuration")
	}

	logCfg := log.Config{Level: cfg.Settings.LogLevel, Format: cfg.Settings.LogFormat}
	logger, err := log.NewLogger(logCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "logger initialization failed")
	}
	logger.Infof(ctx, "Logger initialized (Level: %s, Format: %s)", cfg.Settings.LogLevel, cfg.Settings.LogFormat)
	if v.ConfigFileUsed() != "" {
		logger.Debugf(ctx, "Using configuration file: %s", v.ConfigFileUsed())
	}

	vd := validator.New(validator.WithRequiredStructEnabled())
	if err := vd.StructCtx(ctx, cfg); err != nil {
		var details strings.Builder
		details.WriteString("Configuration validation failed:")
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range validationErrors {
				details.WriteString(fmt.Sprintf("\n - Field '%s': failed '%s' validation (value: '%v')",
					fe.Namespace(), fe.Tag(), fe.Value()))
			}
		}
		wrapped := errors.NewUserFacing(errors.CodeConfigValidation, details.String(),
			"Check your configuration file or flags.")
		logger.Errorf(ctx, wrapped, "Configuration validation failed")
		return nil, wrapped
	}

	reporter, err := buildReporter(cfg, logger)
	if err != nil {
		return nil, err
	}

	engine, err := validate.NewDefaultEngine(cfg.Validation, logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize validation engine")
	}

	loader := manifest.NewLoader(cfg.Manifests, logger)

	logger.Debugf(ctx, "Application bootstrap complete")
	return &Application{
		Config:    cfg,
		Logger:    logger,
		Reporter:  reporter,
		Loader:    loader,
		Validator: engine,
	}, nil
}

func buildReporter(cfg *config.Config, logger ports.Logger) (ports.Reporter, error) {
	switch cfg.Settings.ReporterType {
	case reporttext.ReporterTypeText, "":
		textCfg := cfg.Settings.Reporter.Text
		if textCfg == nil {
			textCfg = &reporttext.Config{}
		}
		reporter, err := reporttext.NewReporter(*textCfg, logger.WithFields(map[string]any{"component": "reporter"}))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize text reporter")
		}
		return reporter, nil
	case reportjson.ReporterTypeJSON:
		jsonCfg := cfg.Settings.Reporter.JSON
		if jsonCfg == nil {
			jsonCfg = &reportjson.Config{}
		}
		reporter, err := reportjson.NewReporter(*jsonCfg, logger.WithFields(map[string]any{"component": "reporter"}))
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "failed to initialize json reporter")
		}
		return reporter, nil
	default:
		return nil, errors.NewUserFacing(errors.CodeConfigValidation,
			fmt.Sprintf("unsupported reporter type: %s", cfg.Settings.ReporterType),
			"Supported: text, json")
	}
}

// buildResourceClient wires the CLI-backed client. Split out so operations
// that never touch the cluster can skip it.
func buildResourceClient(cfg *config.Config, logger ports.Logger) *cluster.Client {
	runner := cluster.NewExecRunner(cfg.Cluster)
	return cluster.NewClient(cfg.Cluster, runner, logger)
}

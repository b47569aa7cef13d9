package config

import (
	"github.com/sentinelops/manifest-sentry/internal/cluster"
	"github.com/sentinelops/manifest-sentry/internal/log"
	"github.com/sentinelops/manifest-sentry/internal/manifest"
	"github.com/sentinelops/manifest-sentry/internal/migrate"
	reportjson "github.com/sentinelops/manifest-sentry/internal/reporting/json"
	reporttext "github.com/sentinelops/manifest-sentry/internal/reporting/text"
	"github.com/sentinelops/manifest-sentry/internal/validate"
)

// Config is the single explicit configuration struct handed to every
// component at construction. Nothing reads process-wide state after
// bootstrap.
type Config struct {
	Settings   SettingsConfig  `yaml:"settings" mapstructure:"settings"`
	Cluster    cluster.Config  `yaml:"cluster" mapstructure:"cluster"`
	Manifests  manifest.Config `yaml:"manifests" mapstructure:"manifests"`
	Validation validate.Config `yaml:"validation" mapstructure:"validation"`
	Migration  migrate.Config  `yaml:"migration" mapstructure:"migration"`
}

type SettingsConfig struct {
	LogLevel     log.Level       `yaml:"log_level" mapstructure:"log_level"`
	LogFormat    log.Format      `yaml:"log_format" mapstructure:"log_format"`
	ReporterType string          `yaml:"reporter" mapstructure:"reporter" validate:"omitempty,oneof=text json"`
	Reporter     ReporterConfigs `yaml:"reporter_config" mapstructure:"reporter_config"`
}

type ReporterConfigs struct {
	Text *reporttext.Config `yaml:"text,omitempty" mapstructure:"text"`
	JSON *reportjson.Config `yaml:"json,omitempty" mapstructure:"json"`
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:     log.LevelInfo,
			LogFormat:    log.FormatText,
			ReporterType: reporttext.ReporterTypeText,
			Reporter: ReporterConfigs{
				Text: &reporttext.Config{NoColor: false},
			},
		},
		Cluster:    cluster.DefaultConfig(),
		Manifests:  manifest.DefaultConfig(),
		Validation: validate.DefaultConfig(),
		Migration:  migrate.DefaultConfig(),
	}
}

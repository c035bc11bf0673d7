// Package config loads skillkit settings from config files, SKILLKIT_*
// environment variables and command-line flags through viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillkit/pkg/lint"
	"github.com/jingkaihe/skillkit/pkg/skills"
	"github.com/jingkaihe/skillkit/pkg/telemetry"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. SKILLKIT_LINT_FAIL_ON.
	EnvPrefix = "SKILLKIT"
	// ProjectFile is merged on top of config.yaml when present in the
	// working directory.
	ProjectFile = ".skillkit.yaml"
)

// Config is the complete skillkit configuration.
type Config struct {
	Roots           []string `mapstructure:"roots"`
	IncludeArchived bool     `mapstructure:"include_archived"`
	Ignore          []string `mapstructure:"ignore"`

	Lint    LintConfig       `mapstructure:"lint"`
	Output  OutputConfig     `mapstructure:"output"`
	History HistoryConfig    `mapstructure:"history"`
	Serve   ServeConfig      `mapstructure:"serve"`
	Watch   WatchConfig      `mapstructure:"watch"`
	Tracing telemetry.Config `mapstructure:"tracing"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// LintConfig controls which rules run and how findings are graded.
type LintConfig struct {
	// Disabled holds rule IDs or glob patterns.
	Disabled []string `mapstructure:"disabled"`
	// Severity maps rule IDs or glob patterns to error, warning or info.
	Severity    map[string]string `mapstructure:"severity"`
	FailOn      string            `mapstructure:"fail_on"`
	Concurrency int               `mapstructure:"concurrency"`
}

// OutputConfig controls report rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
	Color  string `mapstructure:"color"`
}

// HistoryConfig controls lint run persistence.
type HistoryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	DBPath    string        `mapstructure:"db_path"`
	Retention time.Duration `mapstructure:"retention"`
}

// ServeConfig is the catalog server address.
type ServeConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// WatchConfig tunes the watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("roots", []string{"."})
	v.SetDefault("include_archived", false)
	v.SetDefault("ignore", []string{})
	v.SetDefault("lint.disabled", []string{})
	v.SetDefault("lint.severity", map[string]string{})
	v.SetDefault("lint.fail_on", "error")
	v.SetDefault("lint.concurrency", 0)
	v.SetDefault("output.format", "text")
	v.SetDefault("output.color", "auto")
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.db_path", "")
	v.SetDefault("history.retention", 30*24*time.Hour)
	v.SetDefault("serve.host", "localhost")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "skillkit")
	v.SetDefault("tracing.sampler", "always")
	v.SetDefault("tracing.ratio", 1.0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Init wires defaults, environment variables and config files into v.
// config.yaml is read from ~/.skillkit or the working directory, then
// .skillkit.yaml in the working directory is merged on top. Missing files
// are not an error; malformed ones are.
func Init(v *viper.Viper) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.skillkit")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.Wrap(err, "failed to read config file")
		}
	}

	return MergeProjectFile(v, ProjectFile)
}

// MergeProjectFile merges a YAML file into v when it exists.
func MergeProjectFile(v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	v.SetConfigType("yaml")
	if err := v.MergeConfig(f); err != nil {
		return errors.Wrapf(err, "failed to parse %s", filepath.Base(path))
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be decoded loosely.
func (c *Config) Validate() error {
	if _, err := lint.ParseSeverity(c.Lint.FailOn); err != nil {
		return errors.Wrap(err, "invalid lint.fail_on")
	}
	if _, err := c.SeverityOverrides(); err != nil {
		return err
	}
	if c.Lint.Concurrency < 0 {
		return errors.Errorf("lint.concurrency cannot be negative: %d", c.Lint.Concurrency)
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return errors.Errorf("serve.port must be between 1 and 65535, got %d", c.Serve.Port)
	}
	if c.History.Retention < 0 {
		return errors.Errorf("history.retention cannot be negative: %s", c.History.Retention)
	}
	switch c.LogFormat {
	case "", "text", "json", "fmt":
	default:
		return errors.Errorf("invalid log_format %q (want text or json)", c.LogFormat)
	}
	return nil
}

// SeverityOverrides parses lint.severity.
func (c *Config) SeverityOverrides() (map[string]lint.Severity, error) {
	out := make(map[string]lint.Severity, len(c.Lint.Severity))
	for pattern, value := range c.Lint.Severity {
		sev, err := lint.ParseSeverity(value)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid lint.severity for %q", pattern)
		}
		out[pattern] = sev
	}
	return out, nil
}

// FailOn is the lowest severity that fails a lint run.
func (c *Config) FailOn() lint.Severity {
	sev, err := lint.ParseSeverity(c.Lint.FailOn)
	if err != nil {
		return lint.SeverityError
	}
	return sev
}

// ScanOptions returns how skill roots are scanned.
func (c *Config) ScanOptions() skills.ScanOptions {
	return skills.ScanOptions{IncludeArchived: c.IncludeArchived, Ignore: c.Ignore}
}

// NewLinter builds a linter honouring the lint section.
func (c *Config) NewLinter() (*lint.Linter, error) {
	overrides, err := c.SeverityOverrides()
	if err != nil {
		return nil, err
	}
	return lint.NewLinter(
		lint.WithDisabled(c.Lint.Disabled...),
		lint.WithSeverityOverrides(overrides),
		lint.WithConcurrency(c.Lint.Concurrency),
	)
}

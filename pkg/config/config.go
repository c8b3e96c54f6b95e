// Package config loads converge settings from an optional converge.yaml,
// CONVERGE_* environment variables and bound command-line flags.
//
// Precedence is flags, then environment, then file, then defaults. Nothing is
// cached globally: callers hold the returned *Config and derive value objects
// from it per use.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/devantler-tech/converge/pkg/backoff"
	"github.com/devantler-tech/converge/pkg/logging"
	"github.com/devantler-tech/converge/pkg/wait"
	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file base name searched for in the working directory.
	FileName = "converge"
	// EnvPrefix prefixes every environment override, e.g. CONVERGE_WAIT_TIMEOUT.
	EnvPrefix = "CONVERGE"
)

// Config is the full set of converge settings.
type Config struct {
	Kubeconfig string         `json:"kubeconfig,omitempty" mapstructure:"kubeconfig"`
	Context    string         `json:"context,omitempty"    mapstructure:"context"`
	Wait       wait.Spec      `json:"wait"                 mapstructure:"wait"`
	Retry      backoff.Spec   `json:"retry"                mapstructure:"retry"`
	Monitor    MonitorConfig  `json:"monitor"              mapstructure:"monitor"`
	Parallel   ParallelConfig `json:"parallel"             mapstructure:"parallel"`
	Log        LogConfig      `json:"log"                  mapstructure:"log"`
}

// MonitorConfig configures background monitors.
type MonitorConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// ParallelConfig configures bounded fan-out.
type ParallelConfig struct {
	// MaxConcurrency <= 0 selects the CPU based default.
	MaxConcurrency int64 `json:"maxConcurrency" mapstructure:"max-concurrency"`
}

// LogConfig configures the shared logger.
type LogConfig struct {
	Level  string         `json:"level"  mapstructure:"level"`
	Format logging.Format `json:"format" mapstructure:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Wait: wait.Spec{
			Timeout:  300 * time.Second,
			Interval: 5 * time.Second,
		},
		Retry: backoff.Default(),
		Monitor: MonitorConfig{
			Interval: 30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// NewViper returns a viper instance wired for converge: defaults registered,
// env overrides enabled and the config file located. An empty configFile
// searches for converge.yaml in the working directory.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v, Default())

	return v
}

func setDefaults(v *viper.Viper, defaults Config) {
	v.SetDefault("kubeconfig", defaults.Kubeconfig)
	v.SetDefault("context", defaults.Context)
	v.SetDefault("wait.timeout", defaults.Wait.Timeout)
	v.SetDefault("wait.interval", defaults.Wait.Interval)
	v.SetDefault("retry.max-attempts", defaults.Retry.MaxAttempts)
	v.SetDefault("retry.initial-delay", defaults.Retry.InitialDelay)
	v.SetDefault("retry.multiplier", defaults.Retry.Multiplier)
	v.SetDefault("retry.max-delay", defaults.Retry.MaxDelay)
	v.SetDefault("monitor.interval", defaults.Monitor.Interval)
	v.SetDefault("parallel.max-concurrency", defaults.Parallel.MaxConcurrency)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", string(defaults.Log.Format))
}

// Load reads the config file if present, decodes every layer into a Config
// and validates it. A missing config file is not an error.
func Load(v *viper.Viper) (*Config, error) {
	err := v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Default()

	decoderConfig := func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}

	err = v.Unmarshal(&cfg, decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	err := c.Wait.Validate()
	if err != nil {
		return fmt.Errorf("%w: wait: %w", ErrInvalidConfig, err)
	}

	err = c.Retry.Validate()
	if err != nil {
		return fmt.Errorf("%w: retry: %w", ErrInvalidConfig, err)
	}

	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("%w: monitor: interval must be positive, got %s", ErrInvalidConfig, c.Monitor.Interval)
	}

	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: log: unknown format %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}

// WaitSpec returns the configured wait bounds describing the given condition.
func (c *Config) WaitSpec(description string) wait.Spec {
	return c.Wait.WithDescription(description)
}

// RetrySpec returns the configured retry schedule.
func (c *Config) RetrySpec() backoff.Spec {
	return c.Retry
}

// LoggingOptions returns logger options writing to output.
func (c *Config) LoggingOptions(output io.Writer) logging.Options {
	return logging.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		Output: output,
	}
}

// Settings returns the configuration keyed the way converge.yaml is, with
// durations rendered as strings so the result can be written back as a file.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"kubeconfig": c.Kubeconfig,
		"context":    c.Context,
		"wait": map[string]any{
			"timeout":  c.Wait.Timeout.String(),
			"interval": c.Wait.Interval.String(),
		},
		"retry": map[string]any{
			"max-attempts":  c.Retry.MaxAttempts,
			"initial-delay": c.Retry.InitialDelay.String(),
			"multiplier":    c.Retry.Multiplier,
			"max-delay":     c.Retry.MaxDelay.String(),
		},
		"monitor": map[string]any{
			"interval": c.Monitor.Interval.String(),
		},
		"parallel": map[string]any{
			"max-concurrency": c.Parallel.MaxConcurrency,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": string(c.Log.Format),
		},
	}
}

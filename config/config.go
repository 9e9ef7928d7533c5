package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/internal/errors"
)

// Config represents the complete configuration of the quantile commands.
type Config struct {
	// Targets are the quantiles to track, each with its error margin.
	Targets []TargetConfig `yaml:"targets"`

	// Stream configures the quantile stream.
	Stream StreamConfig `yaml:"stream"`

	// Aggregate configures per-series, per-bucket aggregation.
	Aggregate AggregateConfig `yaml:"aggregate"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig is one tracked quantile.
type TargetConfig struct {
	// Quantile is the rank in [0, 1], e.g. 0.99.
	Quantile float64 `yaml:"quantile"`

	// Error is the rank error margin in [0, 1], e.g. 0.001.
	Error float64 `yaml:"error"`
}

// StreamConfig configures the quantile stream.
type StreamConfig struct {
	// BatchSize is the number of observations buffered between flushes.
	BatchSize int `yaml:"batch_size"`
}

// AggregateConfig configures per-series, per-bucket aggregation.
type AggregateConfig struct {
	// Enabled groups input by series and time bucket.
	Enabled bool `yaml:"enabled"`

	// BucketSize is the bucket width.
	// Format: "1m", "5m", "1h"
	BucketSize time.Duration `yaml:"bucket_size"`

	// Backend is the percentile estimator: biased, ddsketch, perks, tdigest.
	Backend string `yaml:"backend"`

	// SketchAccuracy is the relative accuracy of the ddsketch backend.
	SketchAccuracy float64 `yaml:"ddsketch_accuracy"`

	// TDigestCompression is the compression of the tdigest backend.
	TDigestCompression float64 `yaml:"tdigest_compression"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches from text to JSON output.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML configuration. Fields not present keep
// their defaults; a targets list, when present, replaces the default one.
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	config.Targets = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if len(config.Targets) == 0 {
		config.Targets = append([]TargetConfig(nil), DefaultTargets...)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Targets: append([]TargetConfig(nil), DefaultTargets...),
		Stream: StreamConfig{
			BatchSize: DefaultBatchSize,
		},
		Aggregate: AggregateConfig{
			Enabled:            false,
			BucketSize:         DefaultBucketSize,
			Backend:            DefaultBackend,
			SketchAccuracy:     DefaultSketchAccuracy,
			TDigestCompression: DefaultTDigestCompression,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// QuantileTargets converts the configured targets.
func (c *Config) QuantileTargets() ([]quantile.Target, error) {
	targets := make([]quantile.Target, 0, len(c.Targets))
	for i, tc := range c.Targets {
		t, err := quantile.NewTarget(tc.Quantile, tc.Error)
		if err != nil {
			return nil, errors.Wrapf(err, "targets[%d]", i)
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// StreamOptions returns the stream options derived from the configuration.
func (c *Config) StreamOptions() []quantile.Option {
	return []quantile.Option{quantile.WithBatchSize(c.Stream.BatchSize)}
}

// ParseTargets parses a comma-separated list of quantile:error pairs, as
// given on the command line, e.g. "0.5:0.01,0.99:0.001". An omitted error
// defaults to 0.01.
func ParseTargets(s string) ([]TargetConfig, error) {
	var targets []TargetConfig
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		rank, margin, hasMargin := strings.Cut(field, ":")
		q, err := strconv.ParseFloat(rank, 64)
		if err != nil {
			return nil, errors.NewInvalidValue("quantile", rank, "not a number")
		}
		e := 0.01
		if hasMargin {
			if e, err = strconv.ParseFloat(margin, 64); err != nil {
				return nil, errors.NewInvalidValue("error", margin, "not a number")
			}
		}
		targets = append(targets, TargetConfig{Quantile: q, Error: e})
	}
	if len(targets) == 0 {
		return nil, errors.NewMissingField("targets")
	}
	return targets, nil
}

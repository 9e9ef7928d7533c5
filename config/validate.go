package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xtxerr/quantile"
	qerrors "github.com/xtxerr/quantile/internal/errors"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	// Targets
	if len(c.Targets) == 0 {
		errs = append(errs, qerrors.NewMissingField("targets"))
	}
	seen := make(map[float64]bool, len(c.Targets))
	for i, t := range c.Targets {
		if _, err := quantile.NewTarget(t.Quantile, t.Error); err != nil {
			errs = append(errs, fmt.Errorf("targets[%d]: %w", i, err))
			continue
		}
		if seen[t.Quantile] {
			errs = append(errs, qerrors.NewValidation(fmt.Sprintf("targets[%d]", i),
				fmt.Sprintf("quantile %v listed twice", t.Quantile)))
		}
		seen[t.Quantile] = true
	}

	// Stream
	if err := c.Stream.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("stream: %w", err))
	}

	// Aggregate
	if err := c.Aggregate.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("aggregate: %w", err))
	}

	// Logging
	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the stream configuration.
func (c *StreamConfig) Validate() error {
	if c.BatchSize < 1 {
		return qerrors.NewInvalidValue("batch_size", c.BatchSize, "must be positive")
	}
	return nil
}

// Validate checks the aggregate configuration.
func (c *AggregateConfig) Validate() error {
	var errs []error

	if c.Enabled && c.BucketSize <= 0 {
		errs = append(errs, qerrors.NewInvalidValue("bucket_size", c.BucketSize, "must be positive"))
	}

	switch c.Backend {
	case BackendBiased, BackendPerks:
	case BackendDDSketch:
		if c.SketchAccuracy <= 0 || c.SketchAccuracy >= 1 {
			errs = append(errs, qerrors.NewInvalidValue("ddsketch_accuracy", c.SketchAccuracy, "must be between 0 and 1"))
		}
	case BackendTDigest:
		if !(c.TDigestCompression > 0) {
			errs = append(errs, qerrors.NewInvalidValue("tdigest_compression", c.TDigestCompression, "must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend %q must be one of: %s: %w",
			c.Backend, strings.Join(Backends, ", "), qerrors.ErrUnknownBackend))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the logging configuration.
func (c *LoggingConfig) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured level. Invalid levels map to info;
// Validate reports them.
func (c *LoggingConfig) SlogLevel() slog.Level {
	level, err := parseLevel(c.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, qerrors.NewInvalidValue("level", s, "must be one of: debug, info, warn, error")
	}
}

// Package config provides configuration defaults and utilities
// for the quantile commands.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via a YAML config file or command-line flags.
package config

import "time"

// =============================================================================
// Stream Defaults
// =============================================================================

const (
	// DefaultBatchSize is the number of observations buffered before they are
	// sorted and merged into the summary.
	// Override via config: stream.batch_size
	DefaultBatchSize = 500
)

// DefaultTargets are tracked when neither the config file nor the command
// line names any: the median and the usual tail latencies.
// Override via config: targets
var DefaultTargets = []TargetConfig{
	{Quantile: 0.5, Error: 0.01},
	{Quantile: 0.9, Error: 0.005},
	{Quantile: 0.99, Error: 0.001},
}

// =============================================================================
// Aggregate Defaults
// =============================================================================

const (
	// DefaultBucketSize is the time bucket width for per-series aggregates.
	// Override via config: aggregate.bucket_size
	DefaultBucketSize = time.Minute

	// DefaultBackend is the estimator behind aggregate percentiles.
	// Override via config: aggregate.backend
	DefaultBackend = BackendBiased

	// DefaultSketchAccuracy is the relative accuracy of the DDSketch backend
	// (0.01 = 1% error on the value, not the rank).
	// Override via config: aggregate.ddsketch_accuracy
	DefaultSketchAccuracy = 0.01

	// DefaultTDigestCompression is the compression of the tdigest backend.
	// Higher keeps more centroids and is more accurate.
	// Override via config: aggregate.tdigest_compression
	DefaultTDigestCompression = 1000
)

// Estimator backends.
const (
	BackendBiased   = "biased"
	BackendDDSketch = "ddsketch"
	BackendPerks    = "perks"
	BackendTDigest  = "tdigest"
)

// Backends lists every estimator backend.
var Backends = []string{BackendBiased, BackendDDSketch, BackendPerks, BackendTDigest}

// =============================================================================
// Logging Defaults
// =============================================================================

const (
	// DefaultLogLevel is the minimum level written.
	// Override via config: logging.level
	DefaultLogLevel = "info"
)

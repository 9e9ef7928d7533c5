package aggregate

import (
	"time"

	"github.com/xtxerr/quantile"
)

// Sample is a single observation of a series.
type Sample struct {
	Series      string  // Series name (e.g. "api/get")
	TimestampMs int64   // Unix timestamp in milliseconds
	Value       float64 // Observed value
}

// TimestampTime returns the timestamp as a time.Time.
func (s *Sample) TimestampTime() time.Time {
	return time.UnixMilli(s.TimestampMs)
}

// Result represents aggregated statistics for one series and time bucket.
type Result struct {
	Series string `yaml:"series"`

	// Time bucket, Unix milliseconds
	BucketStart int64 `yaml:"bucket_start"`
	BucketEnd   int64 `yaml:"bucket_end"`

	// Basic statistics (always present)
	Count int64   `yaml:"count"`
	Sum   float64 `yaml:"sum"`
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Avg   float64 `yaml:"avg"`

	// One estimate per configured target, in target order.
	Quantiles []quantile.Estimate `yaml:"quantiles,omitempty"`

	// Timestamps of actual samples
	FirstTs int64 `yaml:"first_ts"`
	LastTs  int64 `yaml:"last_ts"`
}

// BucketStartTime returns the bucket start as a time.Time.
func (r *Result) BucketStartTime() time.Time {
	return time.UnixMilli(r.BucketStart)
}

// Duration returns the bucket duration.
func (r *Result) Duration() time.Duration {
	return time.Duration(r.BucketEnd-r.BucketStart) * time.Millisecond
}

// IsEmpty returns true if no samples were aggregated.
func (r *Result) IsEmpty() bool {
	return r.Count == 0
}

// Quantile returns the estimate for rank, if it was tracked.
func (r *Result) Quantile(rank float64) (float64, bool) {
	for _, e := range r.Quantiles {
		if e.Rank == rank {
			return e.Value, true
		}
	}
	return 0, false
}

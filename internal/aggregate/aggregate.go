package aggregate

import (
	"math"
	"sync"
	"time"

	"github.com/xtxerr/quantile"
)

// StreamingAggregate maintains running statistics for a single series and
// time bucket, with quantiles from an Estimator.
//
// The estimator is not safe for concurrent use; every access goes through mu.
type StreamingAggregate struct {
	mu sync.Mutex

	series string

	// Time bucket
	bucketStart int64 // Unix milliseconds
	bucketEnd   int64 // Unix milliseconds

	// Running statistics
	count   int64
	sum     float64
	min     float64
	max     float64
	firstTs int64
	lastTs  int64

	estimator Estimator
	targets   []quantile.Target
}

// New creates a new StreamingAggregate for the given bucket. targets are the
// ranks reported by Result; est must track all of them.
func New(series string, bucketStart, bucketEnd int64, est Estimator, targets []quantile.Target) *StreamingAggregate {
	return &StreamingAggregate{
		series:      series,
		bucketStart: bucketStart,
		bucketEnd:   bucketEnd,
		min:         math.Inf(1),
		max:         math.Inf(-1),
		estimator:   est,
		targets:     targets,
	}
}

// Add adds a value to the aggregate. NaN values are ignored.
func (a *StreamingAggregate) Add(value float64, timestampMs int64) {
	if math.IsNaN(value) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.count++
	a.sum += value

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	if a.firstTs == 0 || timestampMs < a.firstTs {
		a.firstTs = timestampMs
	}
	if timestampMs > a.lastTs {
		a.lastTs = timestampMs
	}

	a.estimator.Add(value)
}

// AddSample adds a sample to the aggregate.
func (a *StreamingAggregate) AddSample(s Sample) {
	a.Add(s.Value, s.TimestampMs)
}

// Count returns the number of samples added.
func (a *StreamingAggregate) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// IsEmpty returns true if no samples have been added.
func (a *StreamingAggregate) IsEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count == 0
}

// Result returns the aggregation result.
func (a *StreamingAggregate) Result() (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := Result{
		Series:      a.series,
		BucketStart: a.bucketStart,
		BucketEnd:   a.bucketEnd,
		Count:       a.count,
		Sum:         a.sum,
		FirstTs:     a.firstTs,
		LastTs:      a.lastTs,
	}

	if a.count == 0 {
		return result, nil
	}

	result.Avg = a.sum / float64(a.count)
	result.Min = a.min
	result.Max = a.max

	result.Quantiles = make([]quantile.Estimate, 0, len(a.targets))
	for _, t := range a.targets {
		v, err := a.estimator.Quantile(t.Rank())
		if err != nil {
			return Result{}, err
		}
		result.Quantiles = append(result.Quantiles, quantile.Estimate{Rank: t.Rank(), Error: t.Error(), Value: v})
	}

	return result, nil
}

// Reset resets the aggregate for a new bucket.
func (a *StreamingAggregate) Reset(bucketStart, bucketEnd int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.bucketStart = bucketStart
	a.bucketEnd = bucketEnd
	a.count = 0
	a.sum = 0
	a.min = math.Inf(1)
	a.max = math.Inf(-1)
	a.firstTs = 0
	a.lastTs = 0
	a.estimator.Reset()
}

// BucketStart returns the bucket start timestamp.
func (a *StreamingAggregate) BucketStart() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bucketStart
}

// BucketEnd returns the bucket end timestamp.
func (a *StreamingAggregate) BucketEnd() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bucketEnd
}

// Series returns the series name.
func (a *StreamingAggregate) Series() string {
	return a.series
}

// BucketDuration returns the bucket duration.
func (a *StreamingAggregate) BucketDuration() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Duration(a.bucketEnd-a.bucketStart) * time.Millisecond
}

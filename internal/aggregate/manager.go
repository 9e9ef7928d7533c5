package aggregate

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	BucketSize         time.Duration
	Backend            string
	Targets            []quantile.Target
	BatchSize          int
	SketchAccuracy     float64
	TDigestCompression float64
}

// Manager manages streaming aggregates for multiple series.
// It handles bucket transitions and flushing completed aggregates.
type Manager struct {
	mu sync.RWMutex

	bucketSize time.Duration
	estimator  EstimatorConfig
	targets    []quantile.Target

	// Active aggregates by series name
	aggregates map[string]*StreamingAggregate

	// Completed aggregates waiting to be flushed
	completed []Result

	stats ManagerStats
}

// ManagerStats holds statistics for the manager.
type ManagerStats struct {
	ActiveAggregates int64
	CompletedPending int64
	SamplesProcessed int64
	SamplesLate      int64
	BucketsCompleted int64
	FlushesPerformed int64
}

// NewManager creates a new aggregate manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.BucketSize < time.Millisecond {
		return nil, errors.NewInvalidValue("bucket size", cfg.BucketSize, "must be at least 1ms")
	}

	est := EstimatorConfig{
		Backend:            cfg.Backend,
		Targets:            slices.Clone(cfg.Targets),
		BatchSize:          cfg.BatchSize,
		SketchAccuracy:     cfg.SketchAccuracy,
		TDigestCompression: cfg.TDigestCompression,
	}
	// Fail on a bad estimator configuration now rather than on the first sample.
	if _, err := NewEstimator(est); err != nil {
		return nil, errors.Wrap(err, "estimator")
	}

	return &Manager{
		bucketSize: cfg.BucketSize,
		estimator:  est,
		targets:    est.Targets,
		aggregates: make(map[string]*StreamingAggregate),
	}, nil
}

// Process adds a sample to the aggregate of its series.
// If the sample belongs to a newer bucket, the current one is completed.
// Samples older than the series' current bucket are counted as late and
// dropped.
func (m *Manager) Process(sample Sample) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucketStart, bucketEnd := m.calculateBucket(sample.TimestampMs)

	agg, exists := m.aggregates[sample.Series]
	switch {
	case !exists:
		est, err := NewEstimator(m.estimator)
		if err != nil {
			return err
		}
		agg = New(sample.Series, bucketStart, bucketEnd, est, m.targets)
		m.aggregates[sample.Series] = agg

	case bucketStart > agg.BucketStart():
		if err := m.complete(agg); err != nil {
			return err
		}
		agg.Reset(bucketStart, bucketEnd)

	case bucketStart < agg.BucketStart():
		m.stats.SamplesLate++
		return nil
	}

	agg.AddSample(sample)
	m.stats.SamplesProcessed++
	return nil
}

// ProcessBatch processes multiple samples, stopping at the first error.
func (m *Manager) ProcessBatch(samples []Sample) error {
	for i := range samples {
		if err := m.Process(samples[i]); err != nil {
			return err
		}
	}
	return nil
}

// complete moves a non-empty aggregate's result to the completed list.
// Caller must hold m.mu.
func (m *Manager) complete(agg *StreamingAggregate) error {
	if agg.IsEmpty() {
		return nil
	}
	res, err := agg.Result()
	if err != nil {
		return errors.Wrapf(err, "series %s", agg.Series())
	}
	m.completed = append(m.completed, res)
	m.stats.BucketsCompleted++

	logging.Component("aggregate").Debug("bucket completed",
		"series", res.Series,
		"bucket_start", res.BucketStartTime(),
		"count", res.Count)
	return nil
}

// FlushCompleted returns and clears all completed aggregates.
func (m *Manager) FlushCompleted() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.completed) == 0 {
		return nil
	}

	result := m.completed
	m.completed = nil
	m.stats.FlushesPerformed++

	return result
}

// FlushAll completes all active aggregates and returns every pending result,
// ordered by bucket start, then series. This is typically called at the end
// of input.
func (m *Manager) FlushAll() ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, agg := range m.aggregates {
		if err := m.complete(agg); err != nil {
			return nil, err
		}
	}
	m.aggregates = make(map[string]*StreamingAggregate)

	result := m.completed
	m.completed = nil
	m.stats.FlushesPerformed++

	sortResults(result)
	return result, nil
}

// FlushOlderThan completes aggregates with bucket start older than the given timestamp.
func (m *Manager) FlushOlderThan(cutoffMs int64) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var flushed []Result

	for series, agg := range m.aggregates {
		if agg.BucketStart() >= cutoffMs {
			continue
		}
		if !agg.IsEmpty() {
			res, err := agg.Result()
			if err != nil {
				return nil, errors.Wrapf(err, "series %s", series)
			}
			flushed = append(flushed, res)
			m.stats.BucketsCompleted++
		}
		delete(m.aggregates, series)
	}

	sortResults(flushed)
	return flushed, nil
}

func sortResults(results []Result) {
	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(a.BucketStart, b.BucketStart); c != 0 {
			return c
		}
		return cmp.Compare(a.Series, b.Series)
	})
}

// Stats returns current statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := m.stats
	stats.ActiveAggregates = int64(len(m.aggregates))
	stats.CompletedPending = int64(len(m.completed))
	return stats
}

// ActiveCount returns the number of active aggregates.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.aggregates)
}

// CompletedCount returns the number of completed aggregates pending flush.
func (m *Manager) CompletedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.completed)
}

// calculateBucket calculates the bucket start and end for a timestamp.
// Negative timestamps are floored, so buckets stay aligned before the epoch.
func (m *Manager) calculateBucket(timestampMs int64) (start, end int64) {
	bucketMs := m.bucketSize.Milliseconds()
	start = timestampMs / bucketMs * bucketMs
	if timestampMs < 0 && start != timestampMs {
		start -= bucketMs
	}
	end = start + bucketMs
	return
}

// BucketSize returns the configured bucket size.
func (m *Manager) BucketSize() time.Duration {
	return m.bucketSize
}

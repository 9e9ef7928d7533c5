package quantile

import (
	"log/slog"
	"math"
	"slices"

	"github.com/xtxerr/quantile/internal/errors"
)

// Sample is one entry of the compressed summary.
type Sample struct {
	// Value is the observed value this sample stands for.
	Value float64

	// G is the difference between the lowest possible rank of this sample
	// and that of its predecessor, i.e. how many observations it represents.
	G float64

	// Delta is the uncertainty of the sample's rank.
	Delta int64
}

// Stream tracks a fixed set of targets over a stream of float64 values.
type Stream struct {
	targets []Target

	// Summary, ordered by Value. The sum of all G equals count.
	samples []Sample
	count   uint64

	// Unsorted observations waiting for the next flush.
	buffer    []float64
	batchSize int

	// Reused across flushes to build the next summary. Only Flush touches it.
	scratch []Sample

	dropped uint64
	log     *slog.Logger
}

// New creates a Stream tracking the given targets, which must not be empty.
// The targets are copied; the set is fixed for the lifetime of the stream.
func New(targets []Target, opts ...Option) (*Stream, error) {
	s := &Stream{
		targets:   slices.Clone(targets),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	v := errors.NewValidationErrors()
	if len(s.targets) == 0 {
		v.AddField("targets", "must not be empty")
	}
	if s.batchSize < 1 {
		v.AddValue("batch size", s.batchSize, "must be >= 1")
	}
	if v.HasErrors() {
		return nil, v.Err()
	}

	s.buffer = make([]float64, 0, s.batchSize)
	return s, nil
}

// Observe adds a value to the stream. The value becomes visible to Query on
// the next flush, which happens automatically once the buffer is full.
// NaN values have no rank and are dropped.
func (s *Stream) Observe(value float64) {
	if math.IsNaN(value) {
		s.dropped++
		return
	}
	s.buffer = append(s.buffer, value)
	if len(s.buffer) >= s.batchSize {
		s.Flush()
	}
}

// Query returns the value at the given rank, which must be exactly the rank
// of one of the stream's targets. Pending observations are flushed first.
// An empty stream yields 0.
func (s *Stream) Query(rank float64) (float64, error) {
	if !s.tracks(rank) {
		return 0, errors.Wrapf(ErrUntrackedTarget, "query %v", rank)
	}

	s.Flush()
	if len(s.samples) == 0 {
		return 0, nil
	}

	n := float64(s.count)
	want := rank*n + invariant(s.targets, s.count, rank*n)/2

	var r float64
	for i := 1; i < len(s.samples)-1; i++ {
		r += s.samples[i-1].G
		c := &s.samples[i]
		if r+c.G+float64(c.Delta) > want {
			return s.samples[i-1].Value, nil
		}
	}
	return s.samples[len(s.samples)-1].Value, nil
}

func (s *Stream) tracks(rank float64) bool {
	for i := range s.targets {
		if s.targets[i].rank == rank {
			return true
		}
	}
	return false
}

// Count returns the number of observations merged into the summary.
// Observations still buffered are reported by Pending.
func (s *Stream) Count() uint64 {
	return s.count
}

// Pending returns the number of buffered observations not merged yet.
func (s *Stream) Pending() int {
	return len(s.buffer)
}

// Dropped returns the number of NaN observations that were discarded.
func (s *Stream) Dropped() uint64 {
	return s.dropped
}

// Len returns the number of samples in the summary.
func (s *Stream) Len() int {
	return len(s.samples)
}

// Samples flushes the stream and returns a copy of the summary.
func (s *Stream) Samples() []Sample {
	s.Flush()
	return slices.Clone(s.samples)
}

// Targets returns a copy of the stream's targets.
func (s *Stream) Targets() []Target {
	return slices.Clone(s.targets)
}

// Reset discards all observations. Targets and allocated capacity are kept.
func (s *Stream) Reset() {
	s.samples = s.samples[:0]
	s.scratch = s.scratch[:0]
	s.buffer = s.buffer[:0]
	s.count = 0
	s.dropped = 0
}

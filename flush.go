package quantile

import (
	"context"
	"log/slog"
	"math"
	"slices"
)

// Flush merges all buffered observations into the summary, compressing it
// in the same pass. It is a no-op when nothing is buffered.
//
// The sorted buffer and the existing summary are walked in lock-step. Every
// sample, old or new, is committed to the new summary through commit, which
// either folds it into the previously committed sample or appends it.
func (s *Stream) Flush() {
	if len(s.buffer) == 0 {
		return
	}
	batch := len(s.buffer)
	slices.Sort(s.buffer)

	// Sum of G over the committed samples, minus the last one, whose G may
	// still grow.
	var prevRank float64
	merged := s.scratch[:0]
	idx := 0

	for _, x := range s.buffer {
		for idx < len(s.samples) && s.samples[idx].Value <= x {
			merged, prevRank = s.commit(merged, prevRank, s.samples[idx])
			idx++
		}

		// New extremes are known exactly; interior values inherit the
		// slack available at the rank of the next old sample.
		var delta int64
		if len(merged) > 0 && idx < len(s.samples) {
			delta = insertionDelta(invariant(s.targets, s.count, prevRank+s.samples[idx].G))
		}
		merged, prevRank = s.commit(merged, prevRank, Sample{Value: x, G: 1, Delta: delta})
		s.count++
	}
	for ; idx < len(s.samples); idx++ {
		merged, prevRank = s.commit(merged, prevRank, s.samples[idx])
	}

	// The old summary's storage becomes the scratch space of the next flush.
	s.scratch = s.samples[:0]
	s.samples = merged
	s.buffer = s.buffer[:0]

	if s.log != nil && s.log.Enabled(context.Background(), slog.LevelDebug) {
		s.log.Debug("flushed observations",
			"batch", batch,
			"samples", len(s.samples),
			"count", s.count)
	}
}

// commit adds c after the samples already in merged. If the last committed
// sample and c together still fit the invariant at prevRank, c absorbs it:
// the G values add up and c's value and delta are kept, so ordering holds.
// Otherwise c is appended and the last sample's G is closed into prevRank.
func (s *Stream) commit(merged []Sample, prevRank float64, c Sample) ([]Sample, float64) {
	if len(merged) == 0 {
		return append(merged, c), prevRank
	}

	last := &merged[len(merged)-1]
	if last.G+c.G+float64(c.Delta) <= invariant(s.targets, s.count, prevRank) {
		last.G += c.G
		last.Value = c.Value
		last.Delta = c.Delta
		return merged, prevRank
	}

	prevRank += last.G
	return append(merged, c), prevRank
}

// insertionDelta converts the invariant at an insertion rank into a delta.
// Unbounded slack, from targets at rank 0 or 1, saturates.
func insertionDelta(f float64) int64 {
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Floor(f)) - 1
}

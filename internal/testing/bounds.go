package testing

import (
	"fmt"
	"math"
	"testing"

	"github.com/aclements/go-moremath/stats"
)

// QuantileBounds returns the range of values an estimate for quantile q with
// error e may take, given the full data set in ascending order:
// [sorted[floor(n(q-e))], sorted[floor(n(q+e))]], clamped to the data.
func QuantileBounds(sorted []float64, q, e float64) (lo, hi float64) {
	n := float64(len(sorted))
	clamp := func(pos float64) int {
		i := int(math.Floor(pos))
		if i < 0 {
			return 0
		}
		if i > len(sorted)-1 {
			return len(sorted) - 1
		}
		return i
	}
	return sorted[clamp(n*(q-e))], sorted[clamp(n*(q+e))]
}

// CheckQuantileInError returns an error if value lies outside the bounds
// computed by QuantileBounds.
func CheckQuantileInError(sorted []float64, q, e, value float64) error {
	if len(sorted) == 0 {
		return fmt.Errorf("quantile (%v, %v): no reference data", q, e)
	}
	lo, hi := QuantileBounds(sorted, q, e)
	if value < lo || value > hi {
		return fmt.Errorf("quantile (%v, %v): value %v should be between %v and %v", q, e, value, lo, hi)
	}
	return nil
}

// AssertQuantileInError fails the test if value is outside the bounds.
func AssertQuantileInError(tb testing.TB, sorted []float64, q, e, value float64) {
	tb.Helper()
	if err := CheckQuantileInError(sorted, q, e, value); err != nil {
		tb.Error(err)
	}
}

// Exact returns the exact quantile q of the sorted data set, interpolated
// between neighbouring values.
func Exact(sorted []float64, q float64) float64 {
	return stats.Sample{Xs: sorted, Sorted: true}.Quantile(q)
}

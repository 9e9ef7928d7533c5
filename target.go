package quantile

import (
	"fmt"

	"github.com/xtxerr/quantile/internal/errors"
)

// Target is a quantile rank to track together with its error margin.
//
// The value returned for a target is guaranteed to be at a rank within
// error*n of rank*n.
type Target struct {
	rank float64
	err  float64

	// Coefficients of the invariant function, precomputed so that the
	// per-sample invariant evaluation does no division.
	u float64 // 2*err/rank
	v float64 // 2*err/(1-rank)
}

// NewTarget creates a Target for the given rank and error margin.
// Both must lie in [0, 1].
func NewTarget(rank, err float64) (Target, error) {
	v := errors.NewValidationErrors()

	// Written as negated range checks so that NaN is rejected too.
	if !(rank >= 0) {
		v.AddValue("quantile rank", rank, "must be >= 0")
	}
	if !(rank <= 1) {
		v.AddValue("quantile rank", rank, "must be <= 1")
	}
	if !(err >= 0) {
		v.AddValue("quantile error", err, "must be >= 0")
	}
	if !(err <= 1) {
		v.AddValue("quantile error", err, "must be <= 1")
	}
	if v.HasErrors() {
		return Target{}, v.Err()
	}

	t := Target{rank: rank, err: err}
	if err > 0 {
		// rank 0 or 1 leaves the corresponding side unbounded (+Inf).
		t.u = 2 * err / rank
		t.v = 2 * err / (1 - rank)
	}
	return t, nil
}

// MustTarget is like NewTarget but panics on invalid input.
func MustTarget(rank, err float64) Target {
	t, e := NewTarget(rank, err)
	if e != nil {
		panic(e)
	}
	return t
}

// Rank returns the tracked quantile rank.
func (t Target) Rank() float64 { return t.rank }

// Error returns the error margin.
func (t Target) Error() float64 { return t.err }

// String returns the target as "rank±error".
func (t Target) String() string {
	return fmt.Sprintf("%g±%g", t.rank, t.err)
}

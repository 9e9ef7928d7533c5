package quantile

import "math"

// invariant is f(r, n) from the paper: the largest g+delta a sample at rank r
// may carry while every target stays within its error margin. The tightest
// target wins.
func invariant(targets []Target, n uint64, r float64) float64 {
	count := float64(n)
	m := math.Inf(1)
	for i := range targets {
		t := &targets[i]
		var f float64
		if r < t.err*count {
			f = t.v * (count - r)
		} else {
			f = t.u * r
		}
		if f < m {
			m = f
		}
	}
	return m
}

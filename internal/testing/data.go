// Package testing provides test utilities for the quantile module: seeded data
// generators, empirical error-bound checks and helpers for goroutine tests.
package testing

import (
	"math/rand"
	"slices"

	"github.com/aclements/go-moremath/stats"
)

// Uniform returns n values drawn uniformly from [0, 1).
func Uniform(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = r.Float64()
	}
	return xs
}

// Normal returns n values drawn from a normal distribution.
func Normal(seed int64, n int, mean, stddev float64) []float64 {
	r := rand.New(rand.NewSource(seed))
	dist := stats.NormalDist{Mu: mean, Sigma: stddev}
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = dist.Rand(r)
	}
	return xs
}

// Sequence returns from, from+1, ..., to.
func Sequence(from, to int) []float64 {
	if to < from {
		return nil
	}
	xs := make([]float64, 0, to-from+1)
	for i := from; i <= to; i++ {
		xs = append(xs, float64(i))
	}
	return xs
}

// Sorted returns a sorted copy of xs.
func Sorted(xs []float64) []float64 {
	s := slices.Clone(xs)
	slices.Sort(s)
	return s
}

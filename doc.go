// Package quantile computes approximate quantiles over an unbounded stream of
// float64 observations.
//
// It implements "Effective computation of biased quantiles over data streams"
// by Cormode, Korn, Muthukrishnan and Srivastava. Each tracked quantile has its
// own error margin: the value returned for a target of rank q and error e lies
// at a rank within e*n of q*n, where n is the number of observations. Memory
// stays sub-linear in n because adjacent samples are merged whenever the
// merged sample still satisfies every target's error bound.
//
// Usage:
//
//	stream, err := quantile.New([]quantile.Target{
//	    quantile.MustTarget(0.5, 0.005),
//	    quantile.MustTarget(0.9, 0.005),
//	})
//	if err != nil {
//	    return err
//	}
//
//	for i := 1; i <= 100; i++ {
//	    stream.Observe(float64(i))
//	}
//
//	p50, _ := stream.Query(0.5) // 50
//	p90, _ := stream.Query(0.9) // 90
//
// A Stream is not safe for concurrent use. Observe, Flush and Query all
// mutate it and must be serialized by the caller.
package quantile

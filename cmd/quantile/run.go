package main

import (
	"context"
	"io"
	"math"
	"os"
	"runtime"
	"slices"
	"time"

	"github.com/aclements/go-moremath/stats"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/ingest"
	"github.com/xtxerr/quantile/internal/logging"
)

const stdinName = "-"

// compareBackends are the estimators run next to the stream by -compare.
var compareBackends = []string{config.BackendDDSketch, config.BackendPerks, config.BackendTDigest}

// run reads every input and builds the report. Inputs are read
// concurrently; each gets its own stream, or they share the aggregate
// manager when aggregation is enabled.
func run(ctx context.Context, cfg *config.Config, opts options, inputs []string) (*Report, error) {
	targets, err := cfg.QuantileTargets()
	if err != nil {
		return nil, err
	}

	if cfg.Aggregate.Enabled {
		buckets, err := aggregateInputs(ctx, cfg, targets, inputs, time.Now)
		if err != nil {
			return nil, err
		}
		return &Report{Buckets: buckets}, nil
	}

	reports := make([]InputReport, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range inputs {
		g.Go(func() error {
			return withInput(name, func(r io.Reader) error {
				rep, err := summarize(ctx, name, r, cfg, targets, opts.compare)
				if err != nil {
					return err
				}
				reports[i] = rep
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Report{Inputs: reports}, nil
}

// withInput opens an input by name, "-" being standard input.
func withInput(name string, fn func(io.Reader) error) error {
	if name == stdinName {
		return fn(os.Stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

// summarize feeds one input into its own stream.
func summarize(ctx context.Context, name string, r io.Reader, cfg *config.Config, targets []quantile.Target, compare bool) (InputReport, error) {
	ctx = logging.ContextWithInput(ctx, name)
	log := logging.WithContext(ctx).With("component", "stream")

	stream, err := quantile.New(targets, append(cfg.StreamOptions(), quantile.WithLogger(log))...)
	if err != nil {
		return InputReport{}, err
	}

	var (
		others []aggregate.Estimator
		values []float64
	)
	if compare {
		for _, backend := range compareBackends {
			est, err := aggregate.NewEstimator(aggregate.EstimatorConfig{
				Backend:            backend,
				Targets:            targets,
				SketchAccuracy:     cfg.Aggregate.SketchAccuracy,
				TDigestCompression: cfg.Aggregate.TDigestCompression,
			})
			if err != nil {
				return InputReport{}, err
			}
			others = append(others, est)
		}
	}

	var sum float64
	reader := ingest.NewReader(r, name)
	err = reader.ReadAll(ctx, func(rec ingest.Record) error {
		stream.Observe(rec.Value)
		if !math.IsNaN(rec.Value) {
			sum += rec.Value
		}
		if compare {
			for _, est := range others {
				est.Add(rec.Value)
			}
			values = append(values, rec.Value)
		}
		return nil
	})
	if err != nil {
		return InputReport{}, err
	}

	res := stream.Result()
	rep := InputReport{
		Input:   name,
		Count:   res.Count,
		Sum:     sum,
		Dropped: stream.Dropped(),
		Samples: stream.Len(),
		Rows:    make([]Row, 0, len(res.Estimates)),
	}

	var exact stats.Sample
	if compare {
		values = slices.DeleteFunc(values, math.IsNaN)
		slices.Sort(values)
		exact = stats.Sample{Xs: values, Sorted: true}
	}
	for _, e := range res.Estimates {
		row := Row{Estimate: e}
		if compare {
			row.Compare = make(map[string]float64, len(others))
			for i, est := range others {
				v, err := est.Quantile(e.Rank)
				if err != nil {
					return InputReport{}, errors.Wrapf(err, "%s: %s", name, compareBackends[i])
				}
				row.Compare[compareBackends[i]] = v
			}
			if len(values) > 0 {
				x := exact.Quantile(e.Rank)
				row.Exact = &x
			}
		}
		rep.Rows = append(rep.Rows, row)
	}

	log.Debug("input summarized",
		"lines", reader.Stats().Lines,
		"count", rep.Count,
		"samples", rep.Samples)
	return rep, nil
}

// aggregateInputs feeds every input into one aggregate manager and returns
// all buckets. Bare values belong to a series named after their input;
// records without a timestamp are stamped with now().
func aggregateInputs(ctx context.Context, cfg *config.Config, targets []quantile.Target, inputs []string, now func() time.Time) ([]aggregate.Result, error) {
	mgr, err := aggregate.NewManager(aggregate.ManagerConfig{
		BucketSize:         cfg.Aggregate.BucketSize,
		Backend:            cfg.Aggregate.Backend,
		Targets:            targets,
		BatchSize:          cfg.Stream.BatchSize,
		SketchAccuracy:     cfg.Aggregate.SketchAccuracy,
		TDigestCompression: cfg.Aggregate.TDigestCompression,
	})
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, name := range inputs {
		g.Go(func() error {
			ctx := logging.ContextWithInput(gctx, name)
			return withInput(name, func(r io.Reader) error {
				reader := ingest.NewReader(r, name)
				err := reader.ReadAll(ctx, func(rec ingest.Record) error {
					return mgr.Process(rec.Sample(name, now()))
				})
				if err != nil {
					return err
				}
				logging.WithContext(ctx).Debug("input read",
					"lines", reader.Stats().Lines,
					"records", reader.Stats().Records)
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results, err := mgr.FlushAll()
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		logging.WithContext(logging.ContextWithSeries(ctx, res.Series)).Debug("bucket flushed",
			"bucket", res.BucketStart,
			"count", res.Count)
	}
	ms := mgr.Stats()
	logging.Component("aggregate").Debug("inputs aggregated",
		"samples", ms.SamplesProcessed,
		"late", ms.SamplesLate,
		"buckets", len(results))
	if ms.SamplesLate > 0 {
		logging.Warn("late samples dropped", "count", ms.SamplesLate)
	}
	return results, nil
}

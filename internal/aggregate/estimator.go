package aggregate

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"
	perks "github.com/beorn7/perks/quantile"
	"github.com/influxdata/tdigest"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
)

// Estimator answers quantile queries over the values added to it.
// Implementations are not safe for concurrent use.
type Estimator interface {
	Add(value float64)
	Quantile(rank float64) (float64, error)
	Reset()
}

// EstimatorConfig selects and configures an estimator backend.
type EstimatorConfig struct {
	Backend            string
	Targets            []quantile.Target
	BatchSize          int
	SketchAccuracy     float64
	TDigestCompression float64
}

// NewEstimator creates an estimator for the configured backend.
func NewEstimator(cfg EstimatorConfig) (Estimator, error) {
	switch cfg.Backend {
	case config.BackendBiased, "":
		var opts []quantile.Option
		if cfg.BatchSize > 0 {
			opts = append(opts, quantile.WithBatchSize(cfg.BatchSize))
		}
		s, err := quantile.New(cfg.Targets, opts...)
		if err != nil {
			return nil, err
		}
		return &biasedEstimator{stream: s}, nil

	case config.BackendDDSketch:
		if len(cfg.Targets) == 0 {
			return nil, errors.NewValidation("targets", "must not be empty")
		}
		sketch, err := ddsketch.NewDefaultDDSketch(cfg.SketchAccuracy)
		if err != nil {
			return nil, errors.Wrap(errors.NewInvalidValue("ddsketch accuracy", cfg.SketchAccuracy, err.Error()), "ddsketch")
		}
		return &sketchEstimator{sketch: sketch, targets: cfg.Targets}, nil

	case config.BackendPerks:
		if len(cfg.Targets) == 0 {
			return nil, errors.NewValidation("targets", "must not be empty")
		}
		objectives := make(map[float64]float64, len(cfg.Targets))
		for _, t := range cfg.Targets {
			objectives[t.Rank()] = t.Error()
		}
		return &perksEstimator{stream: perks.NewTargeted(objectives), targets: cfg.Targets}, nil

	case config.BackendTDigest:
		if len(cfg.Targets) == 0 {
			return nil, errors.NewValidation("targets", "must not be empty")
		}
		compression := cfg.TDigestCompression
		if compression == 0 {
			compression = config.DefaultTDigestCompression
		}
		if !(compression > 0) {
			return nil, errors.NewInvalidValue("tdigest compression", compression, "must be positive")
		}
		return &tdigestEstimator{
			digest:      tdigest.NewWithCompression(compression),
			compression: compression,
			targets:     cfg.Targets,
		}, nil

	default:
		return nil, errors.Wrapf(errors.ErrUnknownBackend, "backend %q", cfg.Backend)
	}
}

// biasedEstimator is backed by a quantile.Stream, with rank error bounds per target.
type biasedEstimator struct {
	stream *quantile.Stream
}

func (e *biasedEstimator) Add(value float64) { e.stream.Observe(value) }

func (e *biasedEstimator) Quantile(rank float64) (float64, error) { return e.stream.Query(rank) }

func (e *biasedEstimator) Reset() { e.stream.Reset() }

// sketchEstimator is backed by DDSketch, with relative error bounds on values.
// It accepts the same ranks as a biased estimator so the backends are
// interchangeable.
type sketchEstimator struct {
	sketch  *ddsketch.DDSketch
	targets []quantile.Target
}

func (e *sketchEstimator) Add(value float64) {
	// Only NaN and values outside the mapping's range are rejected.
	_ = e.sketch.Add(value)
}

func (e *sketchEstimator) Quantile(rank float64) (float64, error) {
	if err := checkTracked(e.targets, rank); err != nil {
		return 0, err
	}
	if e.sketch.IsEmpty() {
		return 0, nil
	}
	return e.sketch.GetValueAtQuantile(rank)
}

func (e *sketchEstimator) Reset() { e.sketch.Clear() }

// perksEstimator is backed by the targeted CKMS stream of beorn7/perks,
// which bounds rank errors per target like the biased backend.
type perksEstimator struct {
	stream  *perks.Stream
	targets []quantile.Target
}

func (e *perksEstimator) Add(value float64) {
	if !math.IsNaN(value) {
		e.stream.Insert(value)
	}
}

func (e *perksEstimator) Quantile(rank float64) (float64, error) {
	if err := checkTracked(e.targets, rank); err != nil {
		return 0, err
	}
	return e.stream.Query(rank), nil
}

func (e *perksEstimator) Reset() { e.stream.Reset() }

// tdigestEstimator is backed by a t-digest, most accurate towards the tails.
type tdigestEstimator struct {
	digest      *tdigest.TDigest
	compression float64
	count       int
	targets     []quantile.Target
}

func (e *tdigestEstimator) Add(value float64) {
	if !math.IsNaN(value) {
		e.digest.Add(value, 1)
		e.count++
	}
}

func (e *tdigestEstimator) Quantile(rank float64) (float64, error) {
	if err := checkTracked(e.targets, rank); err != nil {
		return 0, err
	}
	if e.count == 0 {
		return 0, nil
	}
	return e.digest.Quantile(rank), nil
}

func (e *tdigestEstimator) Reset() {
	e.digest = tdigest.NewWithCompression(e.compression)
	e.count = 0
}

// checkTracked rejects ranks that are not among targets.
func checkTracked(targets []quantile.Target, rank float64) error {
	for _, t := range targets {
		if t.Rank() == rank {
			return nil
		}
	}
	return errors.Wrapf(errors.ErrUntrackedTarget, "query %v", rank)
}

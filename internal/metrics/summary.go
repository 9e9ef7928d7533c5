// Package metrics exports quantile estimates in the Prometheus format.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/errors"
)

// Summary is one exported summary: a series, optionally restricted to a
// bucket, with its count, sum and quantile estimates.
type Summary struct {
	Series    string
	Bucket    string // empty for whole-stream summaries
	Count     uint64
	Sum       float64
	Estimates []quantile.Estimate
}

// FromResult converts an aggregate bucket. The bucket label is its start
// time in RFC 3339.
func FromResult(r aggregate.Result) Summary {
	return Summary{
		Series:    r.Series,
		Bucket:    r.BucketStartTime().UTC().Format(time.RFC3339),
		Count:     uint64(r.Count),
		Sum:       r.Sum,
		Estimates: r.Quantiles,
	}
}

// SummaryCollector is a prometheus.Collector that reports a fixed set of
// summaries, replaced as a whole by Set.
type SummaryCollector struct {
	desc *prometheus.Desc

	mu        sync.Mutex
	summaries []Summary
}

// NewSummaryCollector creates a collector for the metric name.
func NewSummaryCollector(name, help string) *SummaryCollector {
	return &SummaryCollector{
		desc: prometheus.NewDesc(name, help, []string{"series", "bucket"}, nil),
	}
}

// Set replaces the reported summaries.
func (c *SummaryCollector) Set(summaries []Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries = summaries
}

// Describe implements prometheus.Collector.
func (c *SummaryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *SummaryCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.summaries {
		quantiles := make(map[float64]float64, len(s.Estimates))
		for _, e := range s.Estimates {
			quantiles[e.Rank] = e.Value
		}
		m, err := prometheus.NewConstSummary(c.desc, s.Count, s.Sum, quantiles, s.Series, s.Bucket)
		if err != nil {
			ch <- prometheus.NewInvalidMetric(c.desc, err)
			continue
		}
		ch <- m
	}
}

// WriteTextfile writes the summaries to path in the text exposition format,
// for the node exporter's textfile collector.
func WriteTextfile(path, name string, summaries []Summary) error {
	c := NewSummaryCollector(name, "Biased quantile estimates.")
	c.Set(summaries)

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		return errors.Wrap(err, "register collector")
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

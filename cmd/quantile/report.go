package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/metrics"
)

const (
	formatText = "text"
	formatYAML = "yaml"
)

// Report is everything printed for one run.
type Report struct {
	Inputs  []InputReport      `yaml:"inputs,omitempty"`
	Buckets []aggregate.Result `yaml:"buckets,omitempty"`
}

// InputReport summarizes one input.
type InputReport struct {
	Input   string  `yaml:"input"`
	Count   uint64  `yaml:"count"`
	Sum     float64 `yaml:"sum"`
	Dropped uint64  `yaml:"dropped,omitempty"`
	Samples int     `yaml:"samples"`
	Rows    []Row   `yaml:"quantiles"`
}

// Row is one estimate, with the comparison columns when requested.
type Row struct {
	quantile.Estimate `yaml:",inline"`
	Compare           map[string]float64 `yaml:"compare,omitempty"` // by backend
	Exact             *float64           `yaml:"exact,omitempty"`
}

// Summaries converts the report for metric export. Inputs are exported
// under their name as series.
func (r *Report) Summaries() []metrics.Summary {
	out := make([]metrics.Summary, 0, len(r.Inputs)+len(r.Buckets))
	for _, in := range r.Inputs {
		s := metrics.Summary{Series: in.Input, Count: in.Count, Sum: in.Sum}
		for _, row := range in.Rows {
			s.Estimates = append(s.Estimates, row.Estimate)
		}
		out = append(out, s)
	}
	for _, b := range r.Buckets {
		out = append(out, metrics.FromResult(b))
	}
	return out
}

func writeReport(w io.Writer, format string, r *Report) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r *Report) error {
	for i, in := range r.Inputs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s: %d values, %d samples", in.Input, in.Count, in.Samples)
		if in.Dropped > 0 {
			fmt.Fprintf(w, ", %d NaN dropped", in.Dropped)
		}
		fmt.Fprintln(w)

		compare := len(in.Rows) > 0 && in.Rows[0].Compare != nil

		t := table.NewWriter()
		t.SetOutputMirror(w)
		header := table.Row{"Quantile", "Error", "Value"}
		if compare {
			for _, b := range compareBackends {
				header = append(header, b)
			}
			header = append(header, "Exact")
		}
		t.AppendHeader(header)

		for _, row := range in.Rows {
			cells := table.Row{row.Rank, row.Error, formatFloat(row.Value)}
			if compare {
				for _, b := range compareBackends {
					cells = append(cells, formatFloat(row.Compare[b]))
				}
				cells = append(cells, formatOptional(row.Exact))
			}
			t.AppendRow(cells)
		}
		t.Render()
	}

	if len(r.Buckets) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)

		header := table.Row{"Series", "Bucket", "Count", "Min", "Avg", "Max"}
		for _, q := range r.Buckets[0].Quantiles {
			header = append(header, "p"+strconv.FormatFloat(q.Rank*100, 'g', -1, 64))
		}
		t.AppendHeader(header)

		for _, b := range r.Buckets {
			cells := table.Row{
				b.Series,
				b.BucketStartTime().UTC().Format(time.RFC3339),
				b.Count,
				formatFloat(b.Min), formatFloat(b.Avg), formatFloat(b.Max),
			}
			for _, q := range b.Quantiles {
				cells = append(cells, formatFloat(q.Value))
			}
			t.AppendRow(cells)
		}
		t.Render()
	}

	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}

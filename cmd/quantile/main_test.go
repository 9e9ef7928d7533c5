package main

import (
	"bytes"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
	"github.com/xtxerr/quantile/internal/metrics"
)

func sequenceInput(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString(formatFloat(float64(i)))
		b.WriteByte('\n')
	}
	return b.String()
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := loadConfig(options{
		targets: "0.5:0.005,0.9:0.005",
		format:  formatYAML,
		bucket:  time.Minute,
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	if len(cfg.Targets) != 2 || cfg.Targets[1].Quantile != 0.9 {
		t.Errorf("unexpected targets %+v", cfg.Targets)
	}
	if !cfg.Aggregate.Enabled || cfg.Aggregate.BucketSize != time.Minute {
		t.Errorf("-bucket should enable aggregation, got %+v", cfg.Aggregate)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quantile.yaml")
	data := []byte("targets:\n  - quantile: 0.99\n    error: 0.001\nstream:\n  batch_size: 10\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(options{configPath: path, format: formatText})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if len(cfg.Targets) != 1 || cfg.Stream.BatchSize != 10 {
		t.Errorf("config file not applied: %+v", cfg)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts options
	}{
		{"bad format", options{format: "xml"}},
		{"bad target", options{format: formatText, targets: "1.5"}},
		{"bad log level", options{format: formatText, logLevel: "loud"}},
		{"missing file", options{format: formatText, configPath: filepath.Join(t.TempDir(), "nope.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(tt.opts); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Targets = []config.TargetConfig{{Quantile: 0.5, Error: 0.005}, {Quantile: 0.9, Error: 0.005}}
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}

	rep, err := summarize(context.Background(), "seq", strings.NewReader(sequenceInput(100)), cfg, targets, true)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if rep.Count != 100 {
		t.Errorf("expected count=100, got %d", rep.Count)
	}
	if len(rep.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rep.Rows))
	}
	if rep.Rows[0].Value != 50 || rep.Rows[1].Value != 90 {
		t.Errorf("expected 50 and 90, got %v and %v", rep.Rows[0].Value, rep.Rows[1].Value)
	}
	for _, row := range rep.Rows {
		if len(row.Compare) != len(compareBackends) || row.Exact == nil {
			t.Fatalf("missing comparison columns in %+v", row)
		}
		for backend, v := range row.Compare {
			if d := v - row.Value; d > 2 || d < -2 {
				t.Errorf("p%g: %s %v too far from %v", row.Rank*100, backend, v, row.Value)
			}
		}
		if d := *row.Exact - row.Value; d > 1 || d < -1 {
			t.Errorf("p%g: exact %v too far from %v", row.Rank*100, *row.Exact, row.Value)
		}
	}
}

func TestSummarize_ParseError(t *testing.T) {
	cfg := config.DefaultConfig()
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}

	_, err = summarize(context.Background(), "bad", strings.NewReader("1\ntwo\n"), cfg, targets, false)
	if !errors.Is(err, errors.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad:2") {
		t.Errorf("expected input and line in %q", err.Error())
	}
}

func TestRun_Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(a, []byte(sequenceInput(100)), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("7\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	report, err := run(context.Background(), cfg, options{format: formatText}, []string{a, b})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(report.Inputs))
	}
	if report.Inputs[0].Input != a || report.Inputs[1].Input != b {
		t.Errorf("inputs out of order: %s, %s", report.Inputs[0].Input, report.Inputs[1].Input)
	}
	for _, row := range report.Inputs[1].Rows {
		if row.Value != 7 {
			t.Errorf("single value input: p%g = %v, want 7", row.Rank*100, row.Value)
		}
	}
}

func TestRun_MissingFile(t *testing.T) {
	_, err := run(context.Background(), config.DefaultConfig(), options{}, []string{filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}
}

func TestAggregateInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.txt")
	input := `api 10 1000
api 20 2000
db 5 3000
api 30 61000
5
`
	if err := os.WriteFile(path, []byte(input), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Aggregate.Enabled = true
	cfg.Aggregate.BucketSize = time.Minute
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}

	now := func() time.Time { return time.UnixMilli(30_000) }
	buckets, err := aggregateInputs(context.Background(), cfg, targets, []string{path}, now)
	if err != nil {
		t.Fatalf("aggregateInputs: %v", err)
	}

	want := []struct {
		series string
		start  int64
		count  int64
	}{
		{path, 0, 1},
		{"api", 0, 2},
		{"db", 0, 1},
		{"api", 60_000, 1},
	}
	if len(buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d: %+v", len(want), len(buckets), buckets)
	}
	for i, w := range want {
		b := buckets[i]
		if b.Series != w.series || b.BucketStart != w.start || b.Count != w.count {
			t.Errorf("bucket %d = %s@%d (%d), want %s@%d (%d)",
				i, b.Series, b.BucketStart, b.Count, w.series, w.start, w.count)
		}
	}
}

func TestWriteReport_Text(t *testing.T) {
	cfg := config.DefaultConfig()
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}
	rep, err := summarize(context.Background(), "seq", strings.NewReader(sequenceInput(10)), cfg, targets, false)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeReport(&buf, formatText, &Report{Inputs: []InputReport{rep}}); err != nil {
		t.Fatalf("writeReport: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"# seq: 10 values", "QUANTILE", "0.99"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "DDSKETCH") || strings.Contains(out, "EXACT") {
		t.Errorf("comparison columns printed without -compare:\n%s", out)
	}
}

func TestWriteReport_YAML(t *testing.T) {
	exact := 2.0
	in := &Report{Inputs: []InputReport{{
		Input: "x",
		Count: 3,
		Rows:  []Row{{Compare: map[string]float64{"ddsketch": 2}, Exact: &exact}},
	}}}
	in.Inputs[0].Rows[0].Rank = 0.5
	in.Inputs[0].Rows[0].Error = 0.01
	in.Inputs[0].Rows[0].Value = 2

	var buf bytes.Buffer
	if err := writeReport(&buf, formatYAML, in); err != nil {
		t.Fatalf("writeReport: %v", err)
	}

	var out struct {
		Inputs []struct {
			Input     string `yaml:"input"`
			Count     uint64 `yaml:"count"`
			Quantiles []struct {
				Quantile float64            `yaml:"quantile"`
				Value    float64            `yaml:"value"`
				Compare  map[string]float64 `yaml:"compare"`
				Exact    float64            `yaml:"exact"`
			} `yaml:"quantiles"`
		} `yaml:"inputs"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal report: %v\n%s", err, buf.String())
	}
	if len(out.Inputs) != 1 || out.Inputs[0].Count != 3 || len(out.Inputs[0].Quantiles) != 1 {
		t.Fatalf("unexpected report:\n%s", buf.String())
	}
	q := out.Inputs[0].Quantiles[0]
	if q.Quantile != 0.5 || q.Value != 2 || q.Exact != 2 || q.Compare["ddsketch"] != 2 {
		t.Errorf("unexpected quantile row %+v", q)
	}
}

func TestWriteText_Compare(t *testing.T) {
	cfg := config.DefaultConfig()
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}
	rep, err := summarize(context.Background(), "seq", strings.NewReader(sequenceInput(50)), cfg, targets, true)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeText(&buf, &Report{Inputs: []InputReport{rep}}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"DDSKETCH", "PERKS", "TDIGEST", "EXACT"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected column %s in:\n%s", want, buf.String())
		}
	}
}

func TestWriteText_Buckets(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Aggregate.Enabled = true
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("api 1 500\napi 3 1000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	buckets, err := aggregateInputs(context.Background(), cfg, targets, []string{path}, time.Now)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := writeText(&buf, &Report{Buckets: buckets}); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"SERIES", "P99", "1970-01-01T00:00:00Z", "api"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in:\n%s", want, buf.String())
		}
	}
}

func TestReport_Summaries(t *testing.T) {
	r := &Report{Inputs: []InputReport{{
		Input: "a",
		Count: 2,
		Sum:   3,
		Rows:  []Row{{Estimate: quantile.Estimate{Rank: 0.5, Error: 0.01, Value: 1}}},
	}}}

	got := r.Summaries()
	if len(got) != 1 || got[0].Series != "a" || got[0].Count != 2 || got[0].Sum != 3 || len(got[0].Estimates) != 1 {
		t.Errorf("unexpected summaries %+v", got)
	}

	path := filepath.Join(t.TempDir(), "out.prom")
	if err := metrics.WriteTextfile(path, "quantile_values", got); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := logging.Logger
	t.Cleanup(func() {
		logging.Logger = prev
		if prev != nil {
			slog.SetDefault(prev)
		}
	})
	var buf bytes.Buffer
	logging.InitWriter(&buf, slog.LevelDebug, false)
	return &buf
}

func TestSummarize_LogsInput(t *testing.T) {
	logs := captureLogs(t)

	cfg := config.DefaultConfig()
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := summarize(context.Background(), "seq", strings.NewReader(sequenceInput(10)), cfg, targets, false); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	for _, want := range []string{"input=seq", "component=stream", "flushed observations", "input summarized"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("expected %q in logs:\n%s", want, logs.String())
		}
	}
}

func TestAggregateInputs_LogsSeries(t *testing.T) {
	logs := captureLogs(t)

	path := filepath.Join(t.TempDir(), "series.txt")
	if err := os.WriteFile(path, []byte("api 10 1000\ndb 5 2000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Aggregate.Enabled = true
	cfg.Aggregate.BucketSize = time.Minute
	targets, err := cfg.QuantileTargets()
	if err != nil {
		t.Fatal(err)
	}
	now := func() time.Time { return time.UnixMilli(30_000) }
	if _, err := aggregateInputs(context.Background(), cfg, targets, []string{path}, now); err != nil {
		t.Fatalf("aggregateInputs: %v", err)
	}

	for _, want := range []string{"input=" + path, "series=api", "series=db", "bucket flushed"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("expected %q in logs:\n%s", want, logs.String())
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.NewParse("in.txt", 3, "not a number"), 65},
		{errors.Wrap(errors.NewParse("in.txt", 3, "not a number"), "summarize"), 65},
		{fs.ErrNotExist, 1},
		{errors.ErrInvalidConfig, 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

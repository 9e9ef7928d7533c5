// quantile prints biased quantile estimates for streams of numbers.
//
// Usage:
//
//	quantile [flags] [file ...]
//
// With no files, observations are read from standard input. Each input line
// is a value, or "series value [timestamp_ms]" when -bucket is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/logging"
	"github.com/xtxerr/quantile/internal/metrics"
)

// Version is set at build time via ldflags
var Version = "dev"

type options struct {
	configPath string
	targets    string
	format     string
	logLevel   string
	textfile   string
	metric     string
	bucket     time.Duration
	compare    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "config file path")
	flag.StringVar(&opts.targets, "targets", "", "quantile:error pairs, e.g. 0.5:0.01,0.99:0.001 (overrides config)")
	flag.StringVar(&opts.format, "format", formatText, "output format: text, yaml")
	flag.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn, error (overrides config)")
	flag.DurationVar(&opts.bucket, "bucket", 0, "aggregate by series and time bucket of this width")
	flag.BoolVar(&opts.compare, "compare", false, "add ddsketch, perks, tdigest and exact columns (keeps every value in memory)")
	flag.StringVar(&opts.textfile, "textfile", "", "also write the estimates as Prometheus summaries to this file")
	flag.StringVar(&opts.metric, "metric", "quantile_values", "metric name used by -textfile")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("quantile", Version)
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quantile: %v\n", err)
		os.Exit(2)
	}
	logging.Init(cfg.Logging.SlogLevel(), cfg.Logging.JSON)

	inputs := flag.Args()
	if len(inputs) == 0 {
		inputs = []string{stdinName}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			logging.Info("reading observations from the terminal, end with Ctrl-D")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, cfg, opts, inputs)
	if err != nil {
		logging.Error("quantile failed", "error", err)
		os.Exit(exitCode(err))
	}

	if err := writeReport(os.Stdout, opts.format, report); err != nil {
		logging.Error("write report", "error", err)
		os.Exit(1)
	}

	if opts.textfile != "" {
		if err := metrics.WriteTextfile(opts.textfile, opts.metric, report.Summaries()); err != nil {
			logging.Error("write textfile", "error", err)
			os.Exit(1)
		}
		logging.Info("textfile written", "path", opts.textfile)
	}
}

// loadConfig loads the config file, if any, and applies command line
// overrides.
func loadConfig(opts options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}

	// CLI overrides
	if opts.targets != "" {
		targets, err := config.ParseTargets(opts.targets)
		if err != nil {
			return nil, errors.Wrap(err, "-targets")
		}
		cfg.Targets = targets
	}
	if opts.bucket != 0 {
		cfg.Aggregate.Enabled = true
		cfg.Aggregate.BucketSize = opts.bucket
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	switch opts.format {
	case formatText, formatYAML:
	default:
		return nil, errors.NewInvalidValue("format", opts.format, "must be one of: text, yaml")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// exitCode maps a run error to the exit status. Malformed input exits with
// 65 (EX_DATAERR), everything else with 1.
func exitCode(err error) int {
	if errors.IsInput(err) {
		return 65
	}
	return 1
}

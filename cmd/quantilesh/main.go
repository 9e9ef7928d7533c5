// quantilesh is an interactive shell around a single quantile stream.
//
// On a terminal it offers completion and history; otherwise it reads one
// command per line from standard input, which makes it scriptable.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/config"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/ingest"
	"github.com/xtxerr/quantile/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "config file path")
	targets := flag.String("targets", "", "quantile:error pairs, e.g. 0.5:0.01,0.99:0.001 (overrides config)")
	historySize := flag.Int("history", 100000, "observations kept for exact quantiles")
	flag.Parse()

	sh, err := setup(*cfgPath, *targets, *historySize, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quantilesh: %v\n", err)
		os.Exit(2)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		sh.plain = true
		if err := runLines(sh, os.Stdin, os.Stderr); err != nil {
			os.Exit(1)
		}
		return
	}

	fmt.Println("biased quantile shell, type help for commands")
	p := prompt.New(
		func(line string) {
			if err := sh.execute(line); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		},
		sh.complete,
		prompt.OptionPrefix("quantile> "),
		prompt.OptionTitle("quantilesh"),
		prompt.OptionSetExitCheckerOnInput(func(string, bool) bool { return sh.done }),
	)
	p.Run()
}

// setup builds a shell over a stream configured from the config file and
// the -targets override.
func setup(cfgPath, targets string, historySize int, out io.Writer) (*shell, error) {
	cfg := config.DefaultConfig()
	if cfgPath != "" {
		var err error
		if cfg, err = config.Load(cfgPath); err != nil {
			return nil, err
		}
	}
	if targets != "" {
		tc, err := config.ParseTargets(targets)
		if err != nil {
			return nil, errors.Wrap(err, "-targets")
		}
		cfg.Targets = tc
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	logging.Init(cfg.Logging.SlogLevel(), cfg.Logging.JSON)

	qt, err := cfg.QuantileTargets()
	if err != nil {
		return nil, err
	}
	stream, err := quantile.New(qt, append(cfg.StreamOptions(), quantile.WithLogger(logging.Component("shell")))...)
	if err != nil {
		return nil, err
	}
	return newShell(stream, ingest.NewHistory(historySize), out), nil
}

// runLines executes commands read from r until the end of input or exit.
// Errors are reported to errOut with their line number; the last one is
// returned.
func runLines(sh *shell, r io.Reader, errOut io.Writer) error {
	var last error
	sc := bufio.NewScanner(r)
	for line := 1; sc.Scan() && !sh.done; line++ {
		if err := sh.execute(sc.Text()); err != nil {
			fmt.Fprintf(errOut, "line %d: %v\n", line, err)
			last = err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return last
}

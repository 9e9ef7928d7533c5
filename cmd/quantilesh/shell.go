package main

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/aclements/go-moremath/stats"
	"github.com/c-bata/go-prompt"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/xtxerr/quantile"
	"github.com/xtxerr/quantile/internal/errors"
	"github.com/xtxerr/quantile/internal/ingest"
)

type command struct {
	name  string
	usage string
	help  string
	run   func(sh *shell, args []string) error
}

// commands is filled in init: help refers back to it.
var commands []command

func init() {
	commands = []command{
		{"observe", "observe VALUE...", "add observations (a bare number works too)", (*shell).observe},
		{"query", "query [RANK]", "estimate one target, or all of them", (*shell).query},
		{"exact", "exact [RANK]", "exact quantiles of the retained history", (*shell).exact},
		{"flush", "flush", "merge buffered observations into the summary", (*shell).flush},
		{"samples", "samples", "print the summary tuples", (*shell).samples},
		{"stats", "stats", "print stream counters", (*shell).stats},
		{"targets", "targets", "list the tracked targets", (*shell).listTargets},
		{"reset", "reset", "forget every observation", (*shell).reset},
		{"help", "help", "show this help", (*shell).help},
		{"exit", "exit", "leave the shell", (*shell).exit},
	}
}

func lookup(name string) (command, bool) {
	if name == "quit" {
		name = "exit"
	}
	i := slices.IndexFunc(commands, func(c command) bool { return c.name == name })
	if i < 0 {
		return command{}, false
	}
	return commands[i], true
}

// shell drives one stream from text commands.
type shell struct {
	stream  *quantile.Stream
	history *ingest.History
	out     io.Writer
	done    bool

	// plain renders tables as tab-separated values, for scripts.
	plain bool
}

func newShell(stream *quantile.Stream, history *ingest.History, out io.Writer) *shell {
	return &shell{stream: stream, history: history, out: out}
}

// execute runs one input line.
func (sh *shell) execute(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	if _, err := strconv.ParseFloat(fields[0], 64); err == nil {
		return sh.observe(fields)
	}

	cmd, ok := lookup(strings.ToLower(fields[0]))
	if !ok {
		return errors.Wrapf(errors.ErrUnknownCommand, "%q (try help)", fields[0])
	}
	return cmd.run(sh, fields[1:])
}

// complete suggests command names for the first word.
func (sh *shell) complete(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	sugs := make([]prompt.Suggest, 0, len(commands))
	for _, c := range commands {
		sugs = append(sugs, prompt.Suggest{Text: c.name, Description: c.help})
	}
	return prompt.FilterHasPrefix(sugs, d.GetWordBeforeCursor(), true)
}

func (sh *shell) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(sh.out)
	t.Style().Options = table.OptionsNoBordersAndSeparators
	return t
}

func (sh *shell) render(t table.Writer) {
	if sh.plain {
		t.RenderTSV()
		return
	}
	t.Render()
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrParse, "not a number: %q", s)
	}
	return v, nil
}

func (sh *shell) observe(args []string) error {
	if len(args) == 0 {
		return errors.NewMissingField("value")
	}
	values := make([]float64, 0, len(args))
	for _, a := range args {
		v, err := parseValue(a)
		if err != nil {
			return err
		}
		values = append(values, v)
	}
	for _, v := range values {
		sh.stream.Observe(v)
		if !math.IsNaN(v) {
			sh.history.Push(v)
		}
	}
	return nil
}

func (sh *shell) query(args []string) error {
	if len(args) == 0 {
		t := sh.newTable()
		t.AppendHeader(table.Row{"quantile", "error", "value"})
		for _, e := range sh.stream.Result().Estimates {
			t.AppendRow(table.Row{e.Rank, e.Error, e.Value})
		}
		sh.render(t)
		return nil
	}

	rank, err := parseValue(args[0])
	if err != nil {
		return err
	}
	v, err := sh.stream.Query(rank)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%g\n", v)
	return nil
}

func (sh *shell) exact(args []string) error {
	values := sh.history.Values()
	if len(values) == 0 {
		fmt.Fprintln(sh.out, "no observations")
		return nil
	}
	if !sh.history.Complete() {
		fmt.Fprintf(sh.out, "history holds the last %d observations only\n", len(values))
	}
	slices.Sort(values)
	sample := stats.Sample{Xs: values, Sorted: true}

	ranks := make([]float64, 0, 1)
	if len(args) > 0 {
		rank, err := parseValue(args[0])
		if err != nil {
			return err
		}
		if !(rank >= 0 && rank <= 1) {
			return errors.NewInvalidValue("rank", rank, "must be in [0, 1]")
		}
		ranks = append(ranks, rank)
	} else {
		for _, t := range sh.stream.Targets() {
			ranks = append(ranks, t.Rank())
		}
	}

	for _, r := range ranks {
		fmt.Fprintf(sh.out, "%g\t%g\n", r, sample.Quantile(r))
	}
	return nil
}

func (sh *shell) flush([]string) error {
	sh.stream.Flush()
	fmt.Fprintf(sh.out, "%d samples summarize %d observations\n", sh.stream.Len(), sh.stream.Count())
	return nil
}

func (sh *shell) samples([]string) error {
	t := sh.newTable()
	t.AppendHeader(table.Row{"value", "g", "delta"})
	for _, s := range sh.stream.Samples() {
		t.AppendRow(table.Row{s.Value, s.G, s.Delta})
	}
	sh.render(t)
	return nil
}

func (sh *shell) stats([]string) error {
	hs := sh.history.Stats()
	fmt.Fprintf(sh.out, "count %d\npending %d\ndropped %d\nsamples %d\nhistory %d/%d\n",
		sh.stream.Count(), sh.stream.Pending(), sh.stream.Dropped(), sh.stream.Len(),
		hs.Count, hs.Capacity)
	return nil
}

func (sh *shell) listTargets([]string) error {
	for _, t := range sh.stream.Targets() {
		fmt.Fprintln(sh.out, t)
	}
	return nil
}

func (sh *shell) reset([]string) error {
	sh.stream.Reset()
	sh.history.Clear()
	return nil
}

func (sh *shell) help([]string) error {
	t := sh.newTable()
	for _, c := range commands {
		t.AppendRow(table.Row{c.usage, c.help})
	}
	sh.render(t)
	return nil
}

func (sh *shell) exit([]string) error {
	sh.done = true
	return nil
}

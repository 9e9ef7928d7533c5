// Package ingest reads observations from line-oriented text input.
//
// Each non-blank line is one of
//
//	value
//	series value
//	series value timestamp_ms
//
// Lines starting with '#' are comments.
package ingest

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xtxerr/quantile/internal/aggregate"
	"github.com/xtxerr/quantile/internal/errors"
)

// maxLineSize bounds a single input line.
const maxLineSize = 1 << 20

// Record is one parsed input line.
type Record struct {
	Series      string // empty for bare values
	Value       float64
	TimestampMs int64 // 0 when the line carries no timestamp
	Line        int
}

// HasTimestamp reports whether the line carried a timestamp.
func (r Record) HasTimestamp() bool {
	return r.TimestampMs != 0
}

// Sample converts the record into an aggregate sample. Bare values are
// attributed to series, and records without a timestamp to now.
func (r Record) Sample(series string, now time.Time) aggregate.Sample {
	s := aggregate.Sample{Series: r.Series, Value: r.Value, TimestampMs: r.TimestampMs}
	if s.Series == "" {
		s.Series = series
	}
	if !r.HasTimestamp() {
		s.TimestampMs = now.UnixMilli()
	}
	return s
}

// Stats counts what a Reader has seen.
type Stats struct {
	Lines   int
	Records int
	Skipped int // blank and comment lines
}

// Reader parses records from an io.Reader.
type Reader struct {
	source  string
	scanner *bufio.Scanner
	rules   SeriesRules
	stats   Stats
}

// NewReader creates a Reader. source names the input in parse errors.
func NewReader(r io.Reader, source string) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{source: source, scanner: sc, rules: DefaultSeriesRules()}
}

// SetSeriesRules replaces the rules series names are checked against.
func (r *Reader) SetSeriesRules(rules SeriesRules) {
	r.rules = rules
}

// Next returns the next record, or io.EOF at the end of input.
// Malformed lines yield an error wrapping errors.ErrParse; reading may
// continue after one.
func (r *Reader) Next() (Record, error) {
	for r.scanner.Scan() {
		r.stats.Lines++
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			r.stats.Skipped++
			continue
		}

		rec, err := r.parse(line)
		if err != nil {
			return Record{}, err
		}
		r.stats.Records++
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, errors.Wrapf(err, "read %s", r.source)
	}
	return Record{}, io.EOF
}

func (r *Reader) parse(line string) (Record, error) {
	rec := Record{Line: r.stats.Lines}
	fields := strings.Fields(line)

	var value string
	switch len(fields) {
	case 1:
		value = fields[0]
	case 2, 3:
		rec.Series, value = fields[0], fields[1]
		if err := ValidateSeries(rec.Series, r.rules); err != nil {
			return Record{}, errors.NewParse(r.source, rec.Line, err.Error())
		}
	default:
		return Record{}, errors.NewParse(r.source, rec.Line, "expected 'value' or 'series value [timestamp_ms]'")
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Record{}, errors.NewParse(r.source, rec.Line, "invalid value "+strconv.Quote(value))
	}
	rec.Value = v

	if len(fields) == 3 {
		ts, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return Record{}, errors.NewParse(r.source, rec.Line, "invalid timestamp "+strconv.Quote(fields[2]))
		}
		rec.TimestampMs = ts
	}
	return rec, nil
}

// Stats returns the counters so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

// ReadAll calls fn for every record until the end of input, the first error,
// or cancellation of ctx.
func (r *Reader) ReadAll(ctx context.Context, fn func(Record) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

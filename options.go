package quantile

import "log/slog"

// DefaultBatchSize is the number of observations buffered before they are
// merged into the summary.
const DefaultBatchSize = 500

// Option configures a Stream.
type Option func(*Stream)

// WithBatchSize sets how many observations are buffered between flushes.
// Larger batches amortize sorting better; smaller ones bound the memory
// held by unmerged values. New fails for sizes below 1.
func WithBatchSize(n int) Option {
	return func(s *Stream) {
		s.batchSize = n
	}
}

// WithLogger attaches a logger. The stream emits one debug record per flush
// and never logs on the observation path.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) {
		s.log = l
	}
}

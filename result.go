package quantile

// Estimate is the value found for one target.
type Estimate struct {
	Rank  float64 `yaml:"quantile" json:"quantile"`
	Error float64 `yaml:"error" json:"error"`
	Value float64 `yaml:"value" json:"value"`
}

// Result is a snapshot of every target of a stream.
type Result struct {
	Count     uint64     `yaml:"count" json:"count"`
	Estimates []Estimate `yaml:"estimates" json:"estimates"`
}

// Result flushes the stream and queries every target, in target order.
func (s *Stream) Result() *Result {
	s.Flush()
	res := &Result{
		Count:     s.count,
		Estimates: make([]Estimate, 0, len(s.targets)),
	}
	for _, t := range s.targets {
		// Cannot fail: t is one of the stream's own targets.
		v, _ := s.Query(t.rank)
		res.Estimates = append(res.Estimates, Estimate{Rank: t.rank, Error: t.err, Value: v})
	}
	return res
}

// Get returns the estimate for rank, if it was tracked.
func (r *Result) Get(rank float64) (float64, bool) {
	for _, e := range r.Estimates {
		if e.Rank == rank {
			return e.Value, true
		}
	}
	return 0, false
}

package ingest

import (
	"fmt"
	"strings"
	"unicode"
)

// SeriesRules defines what a series name may look like.
type SeriesRules struct {
	MinLength int
	MaxLength int
	// Punct lists the punctuation allowed besides letters and digits.
	Punct string
}

// DefaultSeriesRules returns the rules applied to series read from input.
// Separators like "api/get" or "db.query:read" are allowed.
func DefaultSeriesRules() SeriesRules {
	return SeriesRules{
		MinLength: 1,
		MaxLength: 255,
		Punct:     "._-/:",
	}
}

// ValidateSeries validates a series name according to the given rules.
func ValidateSeries(name string, rules SeriesRules) error {
	if len(name) < rules.MinLength {
		return fmt.Errorf("series name too short: minimum %d characters required", rules.MinLength)
	}
	if len(name) > rules.MaxLength {
		return fmt.Errorf("series name too long: maximum %d characters allowed", rules.MaxLength)
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("series name cannot contain control characters at position %d", i)
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune(rules.Punct, r) {
			return fmt.Errorf("invalid character %q in series name at position %d", r, i)
		}
	}

	return nil
}

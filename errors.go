package quantile

import "github.com/xtxerr/quantile/internal/errors"

var (
	// ErrInvalidConfig is returned for out-of-range target ranks or error
	// margins, an empty target set, and invalid stream options.
	ErrInvalidConfig = errors.ErrInvalidConfig

	// ErrUntrackedTarget is returned by Query for a rank that is not one of
	// the stream's targets. It also matches ErrInvalidConfig.
	ErrUntrackedTarget = errors.ErrUntrackedTarget
)

package contracts

import "errors"

// Constraint violations: caller errors that must surface as hard failures.
// Degenerate market data (flat series, no trades) is never an error.
var (
	ErrInvalidThreshold = errors.New("threshold must be in (0, 1)")
	ErrLengthMismatch   = errors.New("signal count does not match price count")
	ErrDateMismatch     = errors.New("signal date does not match price date")
	ErrInvalidCapital   = errors.New("initial capital must be > 0")
	ErrInvalidRate      = errors.New("commission and slippage rates must be >= 0")
	ErrUnsortedSeries   = errors.New("price dates must be strictly increasing")
	ErrUnknownSignal    = errors.New("unknown signal")
)

// IsConstraintViolation reports whether err wraps one of the caller-error sentinels
func IsConstraintViolation(err error) bool {
	for _, target := range []error{
		ErrInvalidThreshold,
		ErrLengthMismatch,
		ErrDateMismatch,
		ErrInvalidCapital,
		ErrInvalidRate,
		ErrUnsortedSeries,
		ErrUnknownSignal,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

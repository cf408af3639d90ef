package sweep

import "errors"

// Error categories for the variation/GSA pipeline. Callers match with
// errors.Is; call sites wrap with fmt.Errorf("...: %w", Err...) to attach
// context.
var (
	// ErrValidation covers malformed variation requests caught before any
	// evaluation is dispatched: mixed covariation kinds, unequal discrete
	// lengths, a grid over a continuous dimension.
	ErrValidation = errors.New("invalid variation request")

	// ErrUnsupportedOption marks options a method cannot honor, such as
	// ignoring feature indices under MOAT or RBD.
	ErrUnsupportedOption = errors.New("unsupported option")

	// ErrLookup marks an expected persisted row or discrete member that is
	// absent.
	ErrLookup = errors.New("lookup failed")

	// ErrComputation marks statistics that cannot be normalized, e.g. zero
	// total variance. Detected explicitly rather than yielding NaN or Inf.
	ErrComputation = errors.New("computation failed")
)

package common

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type ErrorCode int

const (
	// NodeKindMismatchError indicates that a rewrite expected a specific operator
	// kind (Sort, SortPreservingMerge, CoalescePartitions) at a position in the
	// plan but found another. It always points at a broken invariant upstream.
	NodeKindMismatchError ErrorCode = iota
	// ReconstructionError is returned when an operator cannot be rebuilt over a
	// new set of children (wrong arity or incompatible schema).
	ReconstructionError
	// InvalidPlanError indicates a plan that violates an ordering or
	// distribution requirement of one of its operators.
	InvalidPlanError
	// SerializationError is returned by the plan codec on malformed input.
	SerializationError
	// ConfigError indicates an invalid configuration value.
	ConfigError
	// DuplicateTableError indicates an attempt to register a table that
	// already exists in the catalog.
	DuplicateTableError
	// NoSuchTableError indicates a request for a table or column that does
	// not exist in the catalog.
	NoSuchTableError
)

func (ec ErrorCode) String() string {
	switch ec {
	case NodeKindMismatchError:
		return "NodeKindMismatchError"
	case ReconstructionError:
		return "ReconstructionError"
	case InvalidPlanError:
		return "InvalidPlanError"
	case SerializationError:
		return "SerializationError"
	case ConfigError:
		return "ConfigError"
	case DuplicateTableError:
		return "DuplicateTableError"
	case NoSuchTableError:
		return "NoSuchTableError"
	}
	return "unknown"
}

// PlanError is the coded error type shared by every package of the optimizer.
// It carries an ErrorCode so callers can tell an internal invariant violation
// apart from bad user input after the error has been wrapped.
type PlanError struct {
	Code      ErrorCode
	ErrString string
}

func (e PlanError) Error() string {
	return fmt.Sprintf("err: %s; msg: %s", e.Code.String(), e.ErrString)
}

// NewPlanError builds a PlanError with a stack trace attached.
func NewPlanError(code ErrorCode, format string, args ...any) error {
	return errors.WithStack(PlanError{Code: code, ErrString: fmt.Sprintf(format, args...)})
}

// CodeOf extracts the ErrorCode of the first PlanError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe PlanError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return 0, false
}

// HasCode reports whether err carries a PlanError with the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

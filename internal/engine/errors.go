package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input. The operation never mutated state.
	ErrValidation = errors.New("validation")
	// ErrNotFound marks a missing item or workflow.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation that is not legal for the record's
	// current status (double-approve, reply on a terminal workflow).
	ErrInvalidState = errors.New("invalid state")
	// ErrExternalDependency marks a commerce or mail channel failure. The
	// local record was left in a retryable state.
	ErrExternalDependency = errors.New("external dependency")
)

// Validationf wraps ErrValidation with a message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// InvalidStatef wraps ErrInvalidState with a message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidState}, args...)...)
}

// ExternalError wraps a dependency failure with the operation that hit it,
// distinct from the engine's semantic errors.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *ExternalError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrExternalDependency) match wrapped failures.
func (e *ExternalError) Is(target error) bool { return target == ErrExternalDependency }

// External wraps err as an ExternalError for op.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Op: op, Err: err}
}

func IsValidation(err error) bool   { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }
func IsExternal(err error) bool     { return errors.Is(err, ErrExternalDependency) }

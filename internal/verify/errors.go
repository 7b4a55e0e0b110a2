package verify

import (
	"errors"
	"fmt"
)

// InvalidArgumentError is returned when a verification is given input it
// cannot interpret. It names the unsupported value.
type InvalidArgumentError struct {
	// Argument names the parameter that received the value.
	Argument string

	// Value is the rejected input.
	Value any

	// Reason says what was expected instead.
	Reason string
}

// Error implements the error interface.
func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("unsupported %s %#v: %s", e.Argument, e.Value, e.Reason)
}

// IsInvalidArgument reports whether err is an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var ie *InvalidArgumentError
	return errors.As(err, &ie)
}

// AssertionError is the failure returned by assertion methods. Its message
// is the rendered failure.
type AssertionError struct {
	Message string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return e.Message
}

// IsAssertionError reports whether err is a failed assertion, as opposed to
// a mistake in how the verification was set up.
func IsAssertionError(err error) bool {
	var ae *AssertionError
	return errors.As(err, &ae)
}

package cardinality

import (
	"errors"
	"fmt"
)

// Error reports an invalid cardinality. No Cardinality value is ever
// created when New returns one.
type Error struct {
	// Code identifies the violated constraint.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	Minimum int
	Maximum int
	Always  bool
}

// ErrorCode categorizes cardinality errors.
type ErrorCode string

const (
	// ErrCodeInvalidState indicates a combination of fields that can never
	// be satisfied or makes no sense, such as a negative minimum.
	ErrCodeInvalidState ErrorCode = "INVALID_CARDINALITY_STATE"

	// ErrCodeInvalidBounds indicates a minimum above the maximum.
	ErrCodeInvalidBounds ErrorCode = "INVALID_CARDINALITY_BOUNDS"

	// ErrCodeInvalidSingular indicates a cardinality used where only zero or
	// one match is meaningful.
	ErrCodeInvalidSingular ErrorCode = "INVALID_SINGULAR_CARDINALITY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (min=%d, max=%d, always=%t)", e.Code, e.Message, e.Minimum, e.Maximum, e.Always)
}

func newError(code ErrorCode, c Cardinality, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Minimum: c.minimum,
		Maximum: c.maximum,
		Always:  c.always,
	}
}

// IsCardinalityError reports whether err is any cardinality error.
func IsCardinalityError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}

// IsStateError reports whether err is an invalid-state cardinality error.
func IsStateError(err error) bool {
	return hasCode(err, ErrCodeInvalidState)
}

// IsBoundsError reports whether err is an invalid-bounds cardinality error.
func IsBoundsError(err error) bool {
	return hasCode(err, ErrCodeInvalidBounds)
}

// IsSingularError reports whether err rejects a non-singular cardinality.
func IsSingularError(err error) bool {
	return hasCode(err, ErrCodeInvalidSingular)
}

func hasCode(err error, code ErrorCode) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

package stub

import (
	"errors"
	"fmt"
)

// ErrNoMatchingRule is returned when no rule accepts the invocation
// arguments.
var ErrNoMatchingRule = errors.New("no rule matches the arguments")

// ErrStubbed is the error thrown by Throws when it was given no errors.
var ErrStubbed = errors.New("stubbed error")

// ConfigError reports a mistake in how a stub was scripted. Config errors
// are never recovered from.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string
}

// ConfigErrorCode categorizes config errors.
type ConfigErrorCode string

const (
	// ErrCodeUnusedCriteria indicates a With that was closed without any
	// answer.
	ErrCodeUnusedCriteria ConfigErrorCode = "UNUSED_CRITERIA"

	// ErrCodeUndefinedAnswer indicates a rule with no answer to give.
	ErrCodeUndefinedAnswer ConfigErrorCode = "UNDEFINED_ANSWER"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newUnusedCriteriaError(criteria string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUnusedCriteria,
		Message: fmt.Sprintf("criteria %s were closed without an answer", criteria),
	}
}

func newUndefinedAnswerError() *ConfigError {
	return &ConfigError{
		Code:    ErrCodeUndefinedAnswer,
		Message: "rule has no answers",
	}
}

// IsUnusedCriteriaError reports whether err is an unused-criteria error.
func IsUnusedCriteriaError(err error) bool {
	return hasCode(err, ErrCodeUnusedCriteria)
}

// IsUndefinedAnswerError reports whether err is an undefined-answer error.
func IsUndefinedAnswerError(err error) bool {
	return hasCode(err, ErrCodeUndefinedAnswer)
}

func hasCode(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

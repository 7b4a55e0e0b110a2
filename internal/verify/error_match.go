package verify

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/roach88/mimic/internal/matcher"
)

type errorMatchKind int

const (
	matchAnyError errorMatchKind = iota
	matchErrorType
	matchErrorValue
	matchErrorMatcher
)

var errorType = reflect.TypeFor[error]()

// ErrorMatch decides which errors satisfy a threw or received-exception
// verification. The zero value matches any non-nil error.
type ErrorMatch struct {
	kind    errorMatchKind
	typ     reflect.Type
	err     error
	matcher matcher.Matcher
}

// AnyError matches any non-nil error.
func AnyError() ErrorMatch {
	return ErrorMatch{}
}

// ErrorOfType matches errors with an error of type T in their chain, as
// errors.As finds them. T may be an interface.
func ErrorOfType[T error]() ErrorMatch {
	return ErrorMatch{kind: matchErrorType, typ: reflect.TypeFor[T]()}
}

// ErrorIs matches errors that errors.Is reports as err, or that are deeply
// equal to it. ErrorIs(nil) matches any error.
func ErrorIs(err error) ErrorMatch {
	if err == nil {
		return AnyError()
	}
	return ErrorMatch{kind: matchErrorValue, err: err}
}

// ErrorMatching matches errors accepted by m.
func ErrorMatching(m matcher.Matcher) ErrorMatch {
	return ErrorMatch{kind: matchErrorMatcher, matcher: m}
}

// ErrorFrom converts loosely typed input into an ErrorMatch. It accepts
// nil (any error), an ErrorMatch, a matcher.Matcher or matcher.Converter,
// an error value, or a reflect.Type of an error type or interface.
// Anything else is an InvalidArgumentError.
func ErrorFrom(v any) (ErrorMatch, error) {
	switch x := v.(type) {
	case nil:
		return AnyError(), nil
	case ErrorMatch:
		return x, nil
	case matcher.Matcher:
		return ErrorMatching(x), nil
	case matcher.Converter:
		return ErrorMatching(x.AsMatcher()), nil
	case error:
		return ErrorIs(x), nil
	case reflect.Type:
		if x.Kind() != reflect.Interface && !x.Implements(errorType) {
			return ErrorMatch{}, &InvalidArgumentError{
				Argument: "error type",
				Value:    x,
				Reason:   "type does not implement error",
			}
		}
		return ErrorMatch{kind: matchErrorType, typ: x}, nil
	}
	return ErrorMatch{}, &InvalidArgumentError{
		Argument: "error match",
		Value:    v,
		Reason:   "expected nil, an error, an error type or a matcher",
	}
}

// Matches reports whether err satisfies the match. A nil err never does.
func (m ErrorMatch) Matches(err error) bool {
	if err == nil {
		return false
	}
	switch m.kind {
	case matchErrorType:
		target := reflect.New(m.typ)
		return errors.As(err, target.Interface())
	case matchErrorValue:
		return errors.Is(err, m.err) || matcher.Equal(m.err).Matches(err)
	case matchErrorMatcher:
		return m.matcher.Matches(err)
	}
	return true
}

// Describe renders the match for failure messages.
func (m ErrorMatch) Describe() string {
	switch m.kind {
	case matchErrorType:
		return fmt.Sprintf("<%v>", m.typ)
	case matchErrorValue:
		return fmt.Sprintf("%q", m.err.Error())
	case matchErrorMatcher:
		return m.matcher.Describe()
	}
	return "<any error>"
}

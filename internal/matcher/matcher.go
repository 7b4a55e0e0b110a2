// Package matcher holds the predicate contract consumed by the stub and
// verification engines, plus the small set of predicates they need to be
// usable on their own.
//
// The engines never inspect predicates beyond Matcher and Wildcard. Richer
// matcher libraries plug in by implementing Matcher, or Converter for values
// that can express themselves as a Matcher.
package matcher

import (
	"fmt"
	"reflect"

	"github.com/google/go-cmp/cmp"
)

// Matcher is a boolean test against a single value.
type Matcher interface {
	Matches(value any) bool
	Describe() string
}

// Converter is implemented by values that can be turned into a Matcher.
type Converter interface {
	AsMatcher() Matcher
}

type anyMatcher struct{}

func (anyMatcher) Matches(any) bool  { return true }
func (anyMatcher) Describe() string { return "<any>" }

// Any matches every value.
func Any() Matcher { return anyMatcher{} }

type equalMatcher struct {
	want any
}

// equalOptions lets equality reach unexported struct fields, so values such
// as errors.New results compare by content.
var equalOptions = cmp.Options{
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

func (m equalMatcher) Matches(value any) bool {
	return cmp.Equal(m.want, value, equalOptions)
}

func (m equalMatcher) Describe() string {
	return fmt.Sprintf("%#v", m.want)
}

// Equal matches values deeply equal to want.
func Equal(want any) Matcher {
	return equalMatcher{want: want}
}

type funcMatcher struct {
	description string
	fn          func(any) bool
}

func (m funcMatcher) Matches(value any) bool { return m.fn(value) }
func (m funcMatcher) Describe() string       { return m.description }

// Func adapts a predicate function into a Matcher.
func Func(description string, fn func(value any) bool) Matcher {
	return funcMatcher{description: description, fn: fn}
}

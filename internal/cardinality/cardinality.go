// Package cardinality implements the multiplicity constraints used by
// verifications: "never", "exactly n times", "at least n", "between a and b",
// optionally combined with "always".
package cardinality

import (
	"fmt"
	"strings"
)

// Unbounded is the maximum of a cardinality with no upper limit.
const Unbounded = -1

// Cardinality is a {minimum, maximum, always} constraint on a match count.
//
// The zero value is not valid; build one with New or a selector.
type Cardinality struct {
	minimum int
	maximum int
	always  bool
}

// New validates and returns a cardinality. A maximum of Unbounded means no
// upper limit.
func New(minimum, maximum int, always bool) (Cardinality, error) {
	c := Cardinality{minimum: minimum, maximum: maximum, always: always}
	switch {
	case minimum < 0:
		return Cardinality{}, newError(ErrCodeInvalidState, c, "minimum must not be negative")
	case maximum < Unbounded:
		return Cardinality{}, newError(ErrCodeInvalidState, c, "maximum must be %d (unbounded) or more", Unbounded)
	case maximum >= 0 && minimum > maximum:
		return Cardinality{}, newError(ErrCodeInvalidBounds, c, "minimum %d exceeds maximum %d", minimum, maximum)
	case maximum < 0 && minimum < 1:
		return Cardinality{}, newError(ErrCodeInvalidState, c, "an unbounded cardinality needs a minimum of at least 1")
	case always && maximum == 0:
		return Cardinality{}, newError(ErrCodeInvalidState, c, "a never cardinality cannot also be always")
	}
	return c, nil
}

// Never matches exactly zero times.
func Never() Cardinality { return Cardinality{minimum: 0, maximum: 0} }

// Once matches exactly one time.
func Once() Cardinality { return Cardinality{minimum: 1, maximum: 1} }

// Twice matches exactly two times.
func Twice() Cardinality { return Cardinality{minimum: 2, maximum: 2} }

// Thrice matches exactly three times.
func Thrice() Cardinality { return Cardinality{minimum: 3, maximum: 3} }

// Default is the cardinality used when none was chosen: at least once.
func Default() Cardinality { return Cardinality{minimum: 1, maximum: Unbounded} }

// Times matches exactly n times.
func Times(n int) (Cardinality, error) { return New(n, n, false) }

// AtLeast matches n or more times. n must be at least 1.
func AtLeast(n int) (Cardinality, error) { return New(n, Unbounded, false) }

// AtMost matches between zero and n times.
func AtMost(n int) (Cardinality, error) { return New(0, n, false) }

// Between matches between minimum and maximum times, inclusive.
func Between(minimum, maximum int) (Cardinality, error) { return New(minimum, maximum, false) }

// Minimum returns the lower bound.
func (c Cardinality) Minimum() int { return c.minimum }

// Maximum returns the upper bound, or Unbounded.
func (c Cardinality) Maximum() int { return c.maximum }

// IsAlways reports whether every opportunity must match.
func (c Cardinality) IsAlways() bool { return c.always }

// IsNever reports whether the cardinality only accepts zero matches.
func (c Cardinality) IsNever() bool { return c.maximum == 0 }

// WithAlways returns a copy of c that also requires every opportunity to
// match.
func (c Cardinality) WithAlways() (Cardinality, error) {
	return New(c.minimum, c.maximum, true)
}

// Matches reports whether count satisfies the constraint. maximumPossible
// is the number of opportunities to match and only matters for always.
func (c Cardinality) Matches(count, maximumPossible int) bool {
	if count < c.minimum {
		return false
	}
	if c.maximum >= 0 && count > c.maximum {
		return false
	}
	if c.always && count < maximumPossible {
		return false
	}
	return true
}

// AssertSingular returns an error unless c only admits zero or one match.
func (c Cardinality) AssertSingular() error {
	if c.minimum > 1 || c.maximum > 1 || c.always {
		return newError(ErrCodeInvalidSingular, c, "only zero or one match is meaningful here")
	}
	return nil
}

func (c Cardinality) String() string {
	var b strings.Builder
	switch {
	case c.maximum == 0:
		b.WriteString("never")
	case c.minimum == c.maximum:
		fmt.Fprintf(&b, "exactly %s", times(c.minimum))
	case c.maximum < 0:
		fmt.Fprintf(&b, "at least %s", times(c.minimum))
	case c.minimum == 0:
		fmt.Fprintf(&b, "at most %s", times(c.maximum))
	default:
		fmt.Fprintf(&b, "between %d and %s", c.minimum, times(c.maximum))
	}
	if c.always {
		b.WriteString(", always")
	}
	return b.String()
}

func times(n int) string {
	if n == 1 {
		return "1 time"
	}
	return fmt.Sprintf("%d times", n)
}

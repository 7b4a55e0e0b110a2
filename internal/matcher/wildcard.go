package matcher

import "fmt"

// Wildcard consumes a variable-width span of arguments, each of which must
// satisfy Inner. Max of -1 means unbounded.
type Wildcard struct {
	Inner Matcher
	Min   int
	Max   int
}

// NewWildcard creates a validated Wildcard. A nil inner matcher matches any
// value.
func NewWildcard(inner Matcher, minimum, maximum int) (*Wildcard, error) {
	if minimum < 0 {
		return nil, fmt.Errorf("wildcard minimum must be non-negative, got %d", minimum)
	}
	if maximum < -1 {
		return nil, fmt.Errorf("wildcard maximum must be -1 (unbounded) or non-negative, got %d", maximum)
	}
	if maximum >= 0 && minimum > maximum {
		return nil, fmt.Errorf("wildcard minimum %d exceeds maximum %d", minimum, maximum)
	}
	if inner == nil {
		inner = Any()
	}
	return &Wildcard{Inner: inner, Min: minimum, Max: maximum}, nil
}

// AnyNumber is a wildcard over any number of arbitrary arguments.
func AnyNumber() *Wildcard {
	return &Wildcard{Inner: Any(), Min: 0, Max: -1}
}

// Matches tests a single element against the inner matcher.
func (w *Wildcard) Matches(value any) bool {
	return w.Inner.Matches(value)
}

// Describe renders the wildcard and its width.
func (w *Wildcard) Describe() string {
	inner := w.Inner.Describe()
	switch {
	case w.Min == 0 && w.Max < 0:
		return inner + "*"
	case w.Min == 1 && w.Max < 0:
		return inner + "+"
	case w.Max < 0:
		return fmt.Sprintf("%s{%d,}", inner, w.Min)
	case w.Min == w.Max:
		return fmt.Sprintf("%s{%d}", inner, w.Min)
	default:
		return fmt.Sprintf("%s{%d,%d}", inner, w.Min, w.Max)
	}
}

package matcher

import "strings"

// Factory converts raw values into matchers.
type Factory struct{}

// NewFactory creates a Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// IsMatcher reports whether value is already matcher-like.
func (f *Factory) IsMatcher(value any) bool {
	switch value.(type) {
	case Matcher, Converter:
		return true
	}
	return false
}

// Adapt returns value as a Matcher. Matchers pass through, converters are
// converted and anything else becomes an equality matcher.
func (f *Factory) Adapt(value any) Matcher {
	switch v := value.(type) {
	case Matcher:
		return v
	case Converter:
		return v.AsMatcher()
	default:
		return Equal(value)
	}
}

// AdaptAll adapts every value in order.
func (f *Factory) AdaptAll(values []any) []Matcher {
	matchers := make([]Matcher, len(values))
	for i, v := range values {
		matchers[i] = f.Adapt(v)
	}
	return matchers
}

// Verifier checks an ordered matcher list against concrete arguments.
type Verifier struct{}

// NewVerifier creates a Verifier.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Matches reports whether args satisfy matchers.
//
// Matching is positional and arity-sensitive: every matcher consumes exactly
// one argument, except a *Wildcard, which greedily consumes up to Max
// arguments satisfying its inner matcher and fails if fewer than Min were
// consumed. There is no backtracking. All arguments must be consumed.
func (v *Verifier) Matches(matchers []Matcher, args []any) bool {
	pos := 0
	for _, m := range matchers {
		if w, ok := m.(*Wildcard); ok {
			count := 0
			for pos < len(args) && (w.Max < 0 || count < w.Max) && w.Inner.Matches(args[pos]) {
				pos++
				count++
			}
			if count < w.Min {
				return false
			}
			continue
		}

		if pos >= len(args) || !m.Matches(args[pos]) {
			return false
		}
		pos++
	}
	return pos == len(args)
}

// Describe renders a matcher list as a parenthesized list.
func Describe(matchers []Matcher) string {
	parts := make([]string, len(matchers))
	for i, m := range matchers {
		parts[i] = m.Describe()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

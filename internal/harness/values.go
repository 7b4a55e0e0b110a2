package harness

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/mimic/internal/ir"
	"github.com/roach88/mimic/internal/matcher"
	"github.com/roach88/mimic/internal/stub"
	"github.com/roach88/mimic/internal/verify"
)

// Sentinels accepted wherever a scenario lists criteria.
const (
	anyValue  = "<any>"
	anyNumber = "<any>*"
)

// normalizeAll converts scenario values to the shared value model.
func normalizeAll(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		n, err := ir.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// sentinel returns the matcher a criteria sentinel stands for.
func sentinel(v any) (matcher.Matcher, bool) {
	s, ok := v.(string)
	if !ok {
		return nil, false
	}
	switch s {
	case anyValue:
		return matcher.Any(), true
	case anyNumber:
		return matcher.AnyNumber(), true
	}
	return nil, false
}

// stubCriteria converts a rule's "with" list. Calls pass normalized
// arguments, so plain values compare equal without further conversion.
func stubCriteria(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		if m, ok := sentinel(v); ok {
			out[i] = m
			continue
		}
		n, err := ir.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("with[%d]: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// expectedValues converts verification arguments to matchers that compare
// against the normalized form of what was recorded, so a generator's int
// keys match scenario integers.
func expectedValues(values []any) ([]any, error) {
	out := make([]any, len(values))
	for i, v := range values {
		if m, ok := sentinel(v); ok {
			out[i] = m
			continue
		}
		want, err := ir.Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		out[i] = normalizedEqual(want)
	}
	return out, nil
}

func normalizedEqual(want any) matcher.Matcher {
	eq := matcher.Equal(want)
	return matcher.Func(eq.Describe(), func(value any) bool {
		got, err := ir.Normalize(value)
		return err == nil && eq.Matches(got)
	})
}

// errorMessage matches errors by message. Histories reloaded from a store
// carry recorded errors, so the concrete type cannot be relied on.
func errorMessage(msg string) verify.ErrorMatch {
	return verify.ErrorMatching(matcher.Func(fmt.Sprintf("%q", msg), func(value any) bool {
		err, ok := value.(error)
		return ok && err.Error() == msg
	}))
}

// thrownError builds the error a "throws" entry names. A null message
// stands for stub.ErrStubbed.
func thrownError(v any) (error, bool) {
	switch msg := v.(type) {
	case nil:
		return stub.ErrStubbed, true
	case string:
		return errors.New(msg), true
	}
	return nil, false
}

// integer reads a position or count written as a scenario number.
func integer(v any) (int, error) {
	n, err := ir.Normalize(v)
	if err != nil {
		return 0, err
	}
	i, ok := n.(int64)
	if !ok {
		return 0, fmt.Errorf("expected an integer, got %v", v)
	}
	return int(i), nil
}

// object reads a nested mapping with the given allowed keys.
func object(v any, allowed ...string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a mapping, got %T", v)
	}
	for key := range m {
		if !slices.Contains(allowed, key) {
			return nil, fmt.Errorf("unknown key %q", key)
		}
	}
	return m, nil
}

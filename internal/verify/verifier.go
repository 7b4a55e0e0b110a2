// Package verify answers questions about recorded call histories.
//
// A Verifier is built for a subject: one call (ForCall) or a collection of
// calls (ForCalls). Cardinality selectors such as Times or AtLeast set the
// constraint for the next check only; without one, a check requires at
// least one match.
//
// Counting depends on the subject. For a single call, every matching
// sub-event counts, so "this generator produced x three times" works. For a
// collection, a call counts once if any of its sub-events match, so
// "three of the calls produced x" works. The number of opportunities used
// by Always follows the same split: the sub-events of the relevant kind for
// a single call, the number of calls for a collection.
//
// Check methods never fail a test: they return nil evidence when the
// verification does not hold, and an error only for a mistake in the
// verification itself. Assertion methods run the same check and, only when
// it failed, render the failure and return it as an error.
package verify

import (
	"io"
	"log/slog"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/cardinality"
	"github.com/roach88/mimic/internal/matcher"
)

// Verifier checks a subject's recorded calls.
//
// A Verifier holds the pending cardinality between a selector and the check
// that consumes it, so it is not safe for concurrent use.
type Verifier struct {
	single *call.Call
	calls  []*call.Call

	factory  *matcher.Factory
	verifier *matcher.Verifier
	renderer Renderer
	recorder AssertionRecorder
	logger   *slog.Logger

	cardinality cardinality.Cardinality
	err         error

	// subjectErr is returned by every check when the subject is unusable.
	subjectErr error
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithMatcherFactory sets the factory that turns expected values into
// matchers.
func WithMatcherFactory(f *matcher.Factory) Option {
	return func(v *Verifier) { v.factory = f }
}

// WithMatcherVerifier sets the verifier used for argument criteria.
func WithMatcherVerifier(mv *matcher.Verifier) Option {
	return func(v *Verifier) { v.verifier = mv }
}

// WithRenderer sets the failure renderer.
func WithRenderer(r Renderer) Option {
	return func(v *Verifier) { v.renderer = r }
}

// WithAssertionRecorder sets the hook that assertion outcomes are reported
// to.
func WithAssertionRecorder(r AssertionRecorder) Option {
	return func(v *Verifier) { v.recorder = r }
}

// WithLogger sets the logger. Defaults to a logger that discards.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Verifier) { v.logger = logger }
}

func newVerifier(single *call.Call, calls []*call.Call, opts []Option) *Verifier {
	v := &Verifier{
		single:      single,
		calls:       calls,
		factory:     matcher.NewFactory(),
		verifier:    matcher.NewVerifier(),
		renderer:    DefaultRenderer{},
		recorder:    ErrorRecorder{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		cardinality: cardinality.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ForCall creates a verifier whose subject is a single call.
// A nil call yields a verifier whose checks all fail with an
// InvalidArgumentError.
func ForCall(c *call.Call, opts ...Option) *Verifier {
	if c == nil {
		v := newVerifier(nil, nil, opts)
		v.subjectErr = &InvalidArgumentError{Argument: "call", Value: c, Reason: "expected a recorded call"}
		return v
	}
	return newVerifier(c, []*call.Call{c}, opts)
}

// ForCalls creates a verifier whose subject is a collection of calls, such
// as everything a spy recorded.
func ForCalls(calls []*call.Call, opts ...Option) *Verifier {
	return newVerifier(nil, append([]*call.Call(nil), calls...), opts)
}

// IsSingleCall reports whether the subject is one call.
func (v *Verifier) IsSingleCall() bool { return v.single != nil }

// Calls returns the calls under inspection.
func (v *Verifier) Calls() []*call.Call {
	return append([]*call.Call(nil), v.calls...)
}

// set makes c the pending cardinality, or latches err for the next check.
func (v *Verifier) set(c cardinality.Cardinality, err error) *Verifier {
	if err != nil {
		v.err = err
		return v
	}
	v.cardinality = c
	return v
}

// Never requires no match.
func (v *Verifier) Never() *Verifier { return v.set(cardinality.Never(), nil) }

// Once requires exactly one match.
func (v *Verifier) Once() *Verifier { return v.set(cardinality.Once(), nil) }

// Twice requires exactly two matches.
func (v *Verifier) Twice() *Verifier { return v.set(cardinality.Twice(), nil) }

// Thrice requires exactly three matches.
func (v *Verifier) Thrice() *Verifier { return v.set(cardinality.Thrice(), nil) }

// Times requires exactly n matches.
func (v *Verifier) Times(n int) *Verifier { return v.set(cardinality.Times(n)) }

// AtLeast requires n or more matches.
func (v *Verifier) AtLeast(n int) *Verifier { return v.set(cardinality.AtLeast(n)) }

// AtMost requires at most n matches.
func (v *Verifier) AtMost(n int) *Verifier { return v.set(cardinality.AtMost(n)) }

// Between requires between minimum and maximum matches.
func (v *Verifier) Between(minimum, maximum int) *Verifier {
	return v.set(cardinality.Between(minimum, maximum))
}

// Always additionally requires every opportunity to match.
func (v *Verifier) Always() *Verifier {
	if v.err != nil {
		return v
	}
	return v.set(v.cardinality.WithAlways())
}

// take consumes the pending cardinality.
func (v *Verifier) take() (cardinality.Cardinality, error) {
	c, err := v.cardinality, v.err
	v.cardinality, v.err = cardinality.Default(), nil
	if v.subjectErr != nil {
		return c, v.subjectErr
	}
	return c, err
}

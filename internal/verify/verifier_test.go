package verify

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/cardinality"
	"github.com/roach88/mimic/internal/matcher"
)

// history builds recorded calls by hand with increasing sequence numbers.
type history struct {
	t     *testing.T
	seq   int64
	index int
}

func newHistory(t *testing.T) *history {
	return &history{t: t}
}

func (h *history) next() int64 {
	h.seq++
	return h.seq
}

func (h *history) open(args ...any) *call.Call {
	c := call.New(h.index, call.NewCalledEvent(h.next(), "callback", call.NewArguments(args...)))
	h.index++
	return c
}

func (h *history) returning(value any, args ...any) *call.Call {
	c := h.open(args...)
	require.NoError(h.t, c.SetResponseEvent(call.NewReturnedEvent(h.next(), value)))
	return c
}

func (h *history) generator(args ...any) *call.Call {
	c := h.open(args...)
	require.NoError(h.t, c.SetResponseEvent(call.NewIterableReturnedEvent(h.next(), nil, call.Generator)))
	require.NoError(h.t, c.AddIterableEvent(call.NewUsedEvent(h.next())))
	return c
}

func (h *history) iterator(args ...any) *call.Call {
	c := h.open(args...)
	require.NoError(h.t, c.SetResponseEvent(call.NewIterableReturnedEvent(h.next(), nil, call.Iterator)))
	require.NoError(h.t, c.AddIterableEvent(call.NewUsedEvent(h.next())))
	return c
}

func (h *history) produce(c *call.Call, key, value any) {
	require.NoError(h.t, c.AddIterableEvent(call.NewProducedEvent(h.next(), key, value)))
}

func (h *history) receive(c *call.Call, value any) {
	require.NoError(h.t, c.AddIterableEvent(call.NewReceivedEvent(h.next(), value)))
}

func (h *history) receiveException(c *call.Call, err error) {
	require.NoError(h.t, c.AddIterableEvent(call.NewReceivedExceptionEvent(h.next(), err)))
}

func (h *history) finish(c *call.Call, value any, err error) {
	var e call.Event = call.NewReturnedEvent(h.next(), value)
	if err != nil {
		e = call.NewThrewEvent(h.next(), err)
	}
	require.NoError(h.t, c.SetEndEvent(e))
}

func (h *history) consume(c *call.Call) {
	require.NoError(h.t, c.SetEndEvent(call.NewConsumedEvent(h.next())))
}

// producers returns G1, which produced (a, b) twice and (c, d) once and
// returned "done", and G2, which produced (a, b) once and is still open.
func producers(t *testing.T) (g1, g2 *call.Call) {
	h := newHistory(t)

	g1 = h.generator("first")
	h.produce(g1, "a", "b")
	h.produce(g1, "a", "b")
	h.produce(g1, "c", "d")
	h.finish(g1, "done", nil)

	g2 = h.generator("second")
	h.produce(g2, "a", "b")
	return g1, g2
}

func TestProduced_CountingGranularity(t *testing.T) {
	g1, g2 := producers(t)

	evidence, err := ForCalls([]*call.Call{g1, g2}).Times(2).CheckProduced("a", "b")
	require.NoError(t, err)
	require.NotNil(t, evidence, "two distinct calls produced (a, b)")
	assert.Equal(t, 3, evidence.Len())
	assert.Equal(t, []*call.Call{g1, g2}, evidence.Calls())

	evidence, err = ForCalls([]*call.Call{g1, g2}).Times(3).CheckProduced("a", "b")
	require.NoError(t, err)
	assert.Nil(t, evidence, "a collection counts calls, not events")

	evidence, err = ForCall(g1).Times(2).CheckProduced("a", "b")
	require.NoError(t, err)
	assert.NotNil(t, evidence, "a single call counts events")

	evidence, err = ForCall(g2).Times(2).CheckProduced("a", "b")
	require.NoError(t, err)
	assert.Nil(t, evidence)

	evidence, err = ForCall(g2).Times(1).CheckProduced("a", "b")
	require.NoError(t, err)
	assert.NotNil(t, evidence)
}

func TestProduced_Arguments(t *testing.T) {
	g1, g2 := producers(t)
	v := ForCalls([]*call.Call{g1, g2})

	tests := []struct {
		name string
		args []any
		pass bool
	}{
		{"anything", nil, true},
		{"value only", []any{"d"}, true},
		{"value that was a key", []any{"c"}, false},
		{"key and value", []any{"c", "d"}, true},
		{"matchers", []any{matcher.Any(), "b"}, true},
		{"mismatched pair", []any{"a", "d"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evidence, err := v.CheckProduced(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.pass, evidence != nil)
		})
	}

	_, err := v.CheckProduced("a", "b", "c")
	assert.True(t, IsInvalidArgument(err))
}

func TestAlways_UsesOpportunitiesOfTheSubject(t *testing.T) {
	g1, g2 := producers(t)

	evidence, err := ForCalls([]*call.Call{g1, g2}).Always().CheckProduced("a", "b")
	require.NoError(t, err)
	assert.NotNil(t, evidence, "every call produced (a, b)")

	evidence, err = ForCall(g1).Always().CheckProduced("a", "b")
	require.NoError(t, err)
	assert.Nil(t, evidence, "one of three produced events was (c, d)")

	evidence, err = ForCall(g2).Always().CheckProduced("a", "b")
	require.NoError(t, err)
	assert.NotNil(t, evidence)
}

func TestCardinality_ConsumedByEachCheck(t *testing.T) {
	g1, g2 := producers(t)
	v := ForCalls([]*call.Call{g1, g2})

	evidence, err := v.Never().CheckProduced("a", "b")
	require.NoError(t, err)
	assert.Nil(t, evidence)

	evidence, err = v.CheckProduced("a", "b")
	require.NoError(t, err)
	assert.NotNil(t, evidence, "default is at least once")

	evidence, err = v.Never().CheckProduced("x")
	require.NoError(t, err)
	assert.NotNil(t, evidence)
	assert.Zero(t, evidence.Len())
}

func TestCardinality_InvalidSelectorIsReportedByNextCheck(t *testing.T) {
	g1, _ := producers(t)
	v := ForCall(g1)

	_, err := v.AtLeast(0).Always().CheckProduced()
	assert.True(t, cardinality.IsStateError(err))

	evidence, err := v.CheckProduced()
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	_, err = v.Between(3, 1).CheckProduced()
	assert.True(t, cardinality.IsBoundsError(err))

	_, err = v.Never().Always().CheckProduced()
	assert.True(t, cardinality.IsStateError(err))
}

func TestForCall_NilCallFailsEveryCheck(t *testing.T) {
	v := ForCall(nil)
	assert.False(t, v.IsSingleCall())
	assert.Empty(t, v.Calls())

	checks := map[string]func() (*Evidence, error){
		"called":   func() (*Evidence, error) { return v.Once().CheckCalled() },
		"used":     func() (*Evidence, error) { return v.CheckUsed() },
		"produced": func() (*Evidence, error) { return v.AtLeast(1).CheckProduced() },
		"consumed": func() (*Evidence, error) { return v.Consumed() },
		"returned": func() (*Evidence, error) { return v.Returned() },
	}
	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			var evidence *Evidence
			var err error
			require.NotPanics(t, func() { evidence, err = check() })
			assert.Nil(t, evidence)
			assert.True(t, IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestSingularChecks_RejectPluralCardinalityOnSingleCall(t *testing.T) {
	g1, g2 := producers(t)

	_, err := ForCall(g1).Twice().CheckUsed()
	assert.True(t, cardinality.IsSingularError(err))

	_, err = ForCall(g1).AtLeast(2).CheckReturned()
	assert.True(t, cardinality.IsSingularError(err))

	evidence, err := ForCall(g1).CheckUsed()
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	evidence, err = ForCalls([]*call.Call{g1, g2}).Twice().CheckUsed()
	require.NoError(t, err)
	assert.NotNil(t, evidence, "collections may use any cardinality")

	evidence, err = ForCall(g1).Thrice().CheckProduced()
	require.NoError(t, err)
	assert.NotNil(t, evidence, "produced is not a singular check")
}

type timeoutError struct{ op string }

func (e timeoutError) Error() string { return e.op + ": timeout" }

func exceptions(t *testing.T) *call.Call {
	h := newHistory(t)
	g := h.generator()
	h.produce(g, 0, "x")
	h.receiveException(g, fmt.Errorf("wrapped: %w", timeoutError{op: "read"}))
	h.produce(g, 1, "y")
	h.receiveException(g, errors.New("plain"))
	h.produce(g, 2, "z")
	h.receive(g, "sent")
	return g
}

func TestReceivedException_TypeMatching(t *testing.T) {
	g := exceptions(t)

	evidence, err := ForCall(g).Once().CheckReceivedException(ErrorOfType[timeoutError]())
	require.NoError(t, err)
	require.NotNil(t, evidence)
	assert.IsType(t, &call.ReceivedExceptionEvent{}, evidence.First())

	evidence, err = ForCall(g).Twice().CheckReceivedException()
	require.NoError(t, err)
	assert.NotNil(t, evidence, "no argument matches any error")

	evidence, err = ForCall(g).Once().CheckReceivedException(ErrorIs(errors.New("plain")))
	require.NoError(t, err)
	assert.NotNil(t, evidence, "equal errors match")

	evidence, err = ForCall(g).CheckReceivedException(ErrorOfType[*timeoutError]())
	require.NoError(t, err)
	assert.Nil(t, evidence, "pointer type is a different type")

	_, err = ForCall(g).CheckReceivedException(AnyError(), AnyError())
	assert.True(t, IsInvalidArgument(err))
}

func TestErrorFrom(t *testing.T) {
	boom := errors.New("boom")
	timeout := fmt.Errorf("op: %w", timeoutError{op: "dial"})

	tests := []struct {
		name  string
		input any
		err   error
		want  bool
	}{
		{"nil is any error", nil, boom, true},
		{"error value", boom, fmt.Errorf("wrapped: %w", boom), true},
		{"different error value", boom, errors.New("other"), false},
		{"error type", reflect.TypeFor[timeoutError](), timeout, true},
		{"error type mismatch", reflect.TypeFor[timeoutError](), boom, false},
		{"interface type", reflect.TypeFor[interface{ Error() string }](), boom, true},
		{"matcher", matcher.Func("mentions boom", func(v any) bool {
			e, ok := v.(error)
			return ok && e.Error() == "boom"
		}), boom, true},
		{"error match", ErrorOfType[timeoutError](), timeout, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ErrorFrom(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Matches(tt.err))
			assert.False(t, m.Matches(nil))
		})
	}
}

func TestErrorFrom_RejectsUnsupportedInput(t *testing.T) {
	for _, input := range []any{struct{ Name string }{"x"}, "boom", 42, reflect.TypeFor[string]()} {
		_, err := ErrorFrom(input)
		require.Error(t, err)
		assert.True(t, IsInvalidArgument(err), "input %#v", input)

		var ie *InvalidArgumentError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, input, ie.Value)
	}
}

func TestReceived(t *testing.T) {
	g := exceptions(t)

	evidence, err := ForCall(g).Once().CheckReceived("sent")
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	evidence, err = ForCall(g).Always().CheckReceived()
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	evidence, err = ForCall(g).CheckReceived("other")
	require.NoError(t, err)
	assert.Nil(t, evidence)

	_, err = ForCall(g).CheckReceived("a", "b")
	assert.True(t, IsInvalidArgument(err))
}

func TestReturnedAndThrew_OnlyFinishedGenerators(t *testing.T) {
	boom := errors.New("boom")
	h := newHistory(t)

	done := h.generator()
	h.finish(done, "done", nil)
	failed := h.generator()
	h.finish(failed, nil, boom)
	open := h.generator()
	plain := h.returning("done")

	all := ForCalls([]*call.Call{done, failed, open, plain})

	evidence, err := all.Once().CheckReturned("done")
	require.NoError(t, err)
	require.NotNil(t, evidence, "plain calls are not generators")
	assert.Same(t, done, evidence.First().Call())

	evidence, err = all.Once().CheckThrew(ErrorIs(boom))
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	evidence, err = all.Once().CheckReturned()
	require.NoError(t, err)
	assert.NotNil(t, evidence, "a thrown error is not a returned value")

	evidence, err = ForCall(open).CheckReturned()
	require.NoError(t, err)
	assert.Nil(t, evidence)

	evidence, err = ForCall(open).Never().CheckThrew()
	require.NoError(t, err)
	assert.NotNil(t, evidence)
}

func TestConsumed(t *testing.T) {
	h := newHistory(t)
	consumed := h.iterator()
	h.produce(consumed, 0, "a")
	h.consume(consumed)
	abandoned := h.iterator()
	finished := h.generator()
	h.finish(finished, nil, nil)
	plain := h.returning(1)

	evidence, err := ForCalls([]*call.Call{consumed, abandoned, finished, plain}).Twice().CheckConsumed()
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	evidence, err = ForCall(abandoned).CheckConsumed()
	require.NoError(t, err)
	assert.Nil(t, evidence)

	evidence, err = ForCall(plain).Never().CheckConsumed()
	require.NoError(t, err)
	assert.NotNil(t, evidence)
}

func TestCalledWith(t *testing.T) {
	h := newHistory(t)
	calls := []*call.Call{
		h.returning(nil, 1, "a"),
		h.returning(nil, 1, "b", "c"),
		h.returning(nil, 2),
	}
	v := ForCalls(calls)

	evidence, err := v.Thrice().CheckCalled()
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	evidence, err = v.Twice().CheckCalledWith(1, matcher.AnyNumber())
	require.NoError(t, err)
	require.NotNil(t, evidence)
	assert.IsType(t, &call.CalledEvent{}, evidence.First())

	evidence, err = v.Never().CheckCalledWith()
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	_, err = ForCall(calls[0]).Twice().CheckCalled()
	assert.True(t, cardinality.IsSingularError(err))
}

func TestAssertions_ReportToRecorder(t *testing.T) {
	g1, g2 := producers(t)
	recorder := &CountingRecorder{}
	v := ForCalls([]*call.Call{g1, g2}, WithAssertionRecorder(recorder))

	evidence, err := v.Twice().Produced("a", "b")
	require.NoError(t, err)
	assert.NotNil(t, evidence)

	_, err = v.Never().Produced("a", "b")
	require.Error(t, err)
	assert.True(t, IsAssertionError(err))

	_, err = v.Produced(1, 2, 3)
	assert.True(t, IsInvalidArgument(err), "usage errors are not assertion failures")

	assert.Equal(t, 1, recorder.Successes())
	assert.Equal(t, 1, recorder.Failures())
}

type renderSpy struct {
	calls int
}

func (r *renderSpy) RenderFailure(f Failure) string {
	r.calls++
	return "rendered"
}

func TestAssertions_RenderOnlyAfterFailure(t *testing.T) {
	g1, _ := producers(t)
	renderer := &renderSpy{}
	v := ForCall(g1, WithRenderer(renderer))

	_, err := v.Used()
	require.NoError(t, err)
	_, err = v.Returned("done")
	require.NoError(t, err)
	assert.Zero(t, renderer.calls)

	_, err = v.Threw()
	assert.EqualError(t, err, "rendered")
	assert.Equal(t, 1, renderer.calls)
}

func TestDefaultRenderer_Golden(t *testing.T) {
	g1, g2 := producers(t)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	_, err := ForCall(g2).Twice().Produced("a", "b")
	require.Error(t, err)
	g.Assert(t, "single_call_failure", []byte(err.Error()))

	_, err = ForCalls([]*call.Call{g1, g2}).Thrice().Produced("a", "b")
	require.Error(t, err)
	g.Assert(t, "collection_failure", []byte(err.Error()))

	_, err = ForCalls(nil).Called()
	require.Error(t, err)
	g.Assert(t, "no_calls_failure", []byte(err.Error()))
}

func TestFormatEvent(t *testing.T) {
	h := newHistory(t)
	tests := []struct {
		event call.Event
		want  string
	}{
		{call.NewCalledEvent(h.next(), nil, call.NewArguments(1, "a")), `called (1, "a")`},
		{call.NewReturnedEvent(h.next(), 3), "returned 3"},
		{call.NewIterableReturnedEvent(h.next(), nil, call.Iterator), "returned <iterator>"},
		{call.NewThrewEvent(h.next(), errors.New("boom")), `threw "boom"`},
		{call.NewProducedEvent(h.next(), 0, "x"), `produced 0: "x"`},
		{call.NewReceivedEvent(h.next(), nil), "received <nil>"},
		{call.NewReceivedExceptionEvent(h.next(), errors.New("in")), `received exception "in"`},
		{call.NewConsumedEvent(h.next()), "consumed"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatEvent(tt.event))
	}
}

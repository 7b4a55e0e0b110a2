package recorder

import (
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/iterable"
	"github.com/roach88/mimic/internal/stub"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func kinds(c *call.Call) []call.Kind {
	var out []call.Kind
	for _, e := range c.Events() {
		out = append(out, call.KindOf(e))
	}
	return out
}

func assertKinds(t *testing.T, c *call.Call, want ...call.Kind) {
	t.Helper()
	if diff := cmp.Diff(want, kinds(c)); diff != "" {
		t.Errorf("event kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_RecordsReturnAndThrow(t *testing.T) {
	boom := errors.New("boom")
	r := New(WithSessionIDGenerator(NewFixedGenerator("session-1")))
	spy := r.Spy(func(n int) (int, error) {
		if n < 0 {
			return 0, boom
		}
		return n * 2, nil
	})

	got, err := spy.Invoke(4)
	require.NoError(t, err)
	assert.Equal(t, 8, got)

	_, err = spy.Invoke(-1)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, "session-1", r.ID())
	calls := spy.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls, r.Calls())

	assertKinds(t, calls[0], call.KindCalled, call.KindReturned)
	assert.True(t, calls[0].HasCompleted())
	value, err := calls[0].Response()
	require.NoError(t, err)
	assert.Equal(t, 8, value)

	assertKinds(t, calls[1], call.KindCalled, call.KindThrew)
	_, err = calls[1].Response()
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 0, calls[0].Index())
	assert.Equal(t, 1, calls[1].Index())
}

func TestRecorder_SequencesIncrease(t *testing.T) {
	r := New()
	spy := r.Spy(func() {})
	for range 3 {
		_, err := spy.Invoke()
		require.NoError(t, err)
	}

	var last int64
	for _, c := range r.Calls() {
		for _, e := range c.Events() {
			assert.Greater(t, e.Sequence(), last)
			last = e.Sequence()
		}
	}
	assert.Equal(t, r.Clock().Current(), last)
}

func TestRecorder_SpiesOnStub(t *testing.T) {
	s := stub.New()
	s.With(1).Returns("one")

	r := New()
	spy := r.Spy(s)

	got, err := spy.Invoke(1)
	require.NoError(t, err)
	assert.Equal(t, "one", got)

	_, err = spy.Invoke(2)
	assert.ErrorIs(t, err, stub.ErrNoMatchingRule)

	calls := spy.Calls()
	require.Len(t, calls, 2)
	assert.Same(t, s, calls[0].Callback())
	assertKinds(t, calls[1], call.KindCalled, call.KindThrew)
}

func generatorStub() *stub.Stub {
	s := stub.New()
	s.Generates("a", "b").Returns("result")
	return s
}

func TestRecorder_GeneratorDrained(t *testing.T) {
	spy := New().Spy(generatorStub())

	got, err := spy.Invoke()
	require.NoError(t, err)
	values, result, err := iterable.Collect(got.(*iterable.Generator))
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, values)
	assert.Equal(t, "result", result)

	c := spy.Calls()[0]
	assertKinds(t, c,
		call.KindCalled, call.KindReturned,
		call.KindUsed,
		call.KindProduced, call.KindReceived,
		call.KindProduced, call.KindReceived,
		call.KindReturned)
	assert.True(t, c.IsGenerator())
	assert.True(t, c.HasCompleted())

	final, err := c.GeneratorResponse()
	require.NoError(t, err)
	assert.Equal(t, "result", final)

	produced := c.IterableEvents()[1].(*call.ProducedEvent)
	assert.Equal(t, 0, produced.Key)
	assert.Equal(t, "a", produced.Value)
}

func TestRecorder_GeneratorSendAndThrow(t *testing.T) {
	boom := errors.New("boom")
	spy := New().Spy(generatorStub())

	got, err := spy.Invoke()
	require.NoError(t, err)
	g := got.(*iterable.Generator)

	g.Next()
	_, value, ok := g.Send("hello")
	require.True(t, ok)
	assert.Equal(t, "b", value)
	_, _, ok = g.Throw(boom)
	assert.False(t, ok)

	c := spy.Calls()[0]
	assertKinds(t, c,
		call.KindCalled, call.KindReturned,
		call.KindUsed,
		call.KindProduced, call.KindReceived,
		call.KindProduced, call.KindReceivedException,
		call.KindThrew)

	received := c.IterableEvents()[2].(*call.ReceivedEvent)
	assert.Equal(t, "hello", received.Value)

	_, err = c.GeneratorResponse()
	assert.ErrorIs(t, err, boom)
}

func TestRecorder_GeneratorStoppedEarlyHasNoEnd(t *testing.T) {
	spy := New().Spy(generatorStub())

	got, err := spy.Invoke()
	require.NoError(t, err)
	g := got.(*iterable.Generator)
	g.Next()
	g.Stop()

	c := spy.Calls()[0]
	assertKinds(t, c, call.KindCalled, call.KindReturned, call.KindUsed, call.KindProduced)
	assert.False(t, c.HasCompleted())
}

func TestRecorder_GeneratorNeverStarted(t *testing.T) {
	spy := New().Spy(generatorStub())

	got, err := spy.Invoke()
	require.NoError(t, err)
	got.(*iterable.Generator).Stop()

	assertKinds(t, spy.Calls()[0], call.KindCalled, call.KindReturned)
}

func pairs() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for i, v := range []string{"x", "y", "z"} {
			if !yield(i, v) {
				return
			}
		}
	}
}

func TestRecorder_Seq2(t *testing.T) {
	spy := New().Spy(pairs)

	got, err := spy.Invoke()
	require.NoError(t, err)
	seq := got.(iter.Seq2[any, any])

	var values []any
	for _, v := range seq {
		values = append(values, v)
	}
	assert.Equal(t, []any{"x", "y", "z"}, values)

	c := spy.Calls()[0]
	assertKinds(t, c,
		call.KindCalled, call.KindReturned,
		call.KindUsed, call.KindProduced, call.KindProduced, call.KindProduced,
		call.KindConsumed)
	assert.True(t, c.IsIterable())
	assert.False(t, c.IsGenerator())

	// A second pass cannot be recorded on a completed call; it still works.
	values = values[:0]
	for _, v := range seq {
		values = append(values, v)
	}
	assert.Len(t, values, 3)
	assert.Len(t, c.Events(), 7)
}

func TestRecorder_Seq2BreakIsNotConsumed(t *testing.T) {
	spy := New().Spy(pairs)

	got, err := spy.Invoke()
	require.NoError(t, err)
	for range got.(iter.Seq2[any, any]) {
		break
	}

	c := spy.Calls()[0]
	assertKinds(t, c, call.KindCalled, call.KindReturned, call.KindUsed, call.KindProduced)
	assert.False(t, c.HasCompleted())
}

func TestRecorder_Seq(t *testing.T) {
	spy := New().Spy(func() iter.Seq[any] {
		return func(yield func(any) bool) {
			_ = yield("only") && yield("second")
		}
	})

	got, err := spy.Invoke()
	require.NoError(t, err)
	var values []any
	for v := range got.(iter.Seq[any]) {
		values = append(values, v)
	}
	assert.Equal(t, []any{"only", "second"}, values)

	events := spy.Calls()[0].IterableEvents()
	require.Len(t, events, 3)
	assert.Equal(t, 1, events[2].(*call.ProducedEvent).Key)
}

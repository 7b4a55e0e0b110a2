package call

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCall(t *testing.T, values ...any) *Call {
	t.Helper()
	return New(0, NewCalledEvent(1, "callback", NewArguments(values...)))
}

func TestCall_NonIterableResponseEndsCall(t *testing.T) {
	c := newTestCall(t, "a")

	returned := NewReturnedEvent(2, "result")
	require.NoError(t, c.SetResponseEvent(returned))

	assert.True(t, c.HasResponded())
	assert.True(t, c.HasCompleted())
	assert.Same(t, c, returned.Call())
	assert.Equal(t, Event(returned), c.EndEvent())
	assert.False(t, c.IsIterable())

	value, err := c.Response()
	require.NoError(t, err)
	assert.Equal(t, "result", value)
}

func TestCall_ThrewResponse(t *testing.T) {
	c := newTestCall(t)
	boom := errors.New("boom")

	require.NoError(t, c.SetResponseEvent(NewThrewEvent(2, boom)))

	_, err := c.Response()
	assert.ErrorIs(t, err, boom)
	assert.True(t, c.HasCompleted())
}

func TestCall_RejectsDuplicateResponse(t *testing.T) {
	c := newTestCall(t)
	require.NoError(t, c.SetResponseEvent(NewReturnedEvent(2, "first")))

	err := c.SetResponseEvent(NewReturnedEvent(3, "second"))
	assert.ErrorIs(t, err, ErrAlreadyResponded)

	value, _ := c.Response()
	assert.Equal(t, "first", value, "rejected write must leave the call unchanged")
}

func TestCall_RejectsDuplicateEnd(t *testing.T) {
	c := newTestCall(t)
	require.NoError(t, c.SetResponseEvent(NewIterableReturnedEvent(2, nil, Iterator)))
	require.NoError(t, c.SetEndEvent(NewConsumedEvent(3)))

	err := c.SetEndEvent(NewConsumedEvent(4))
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestCall_IterableLifecycle(t *testing.T) {
	c := newTestCall(t)
	require.NoError(t, c.SetResponseEvent(NewIterableReturnedEvent(2, nil, Iterator)))

	assert.True(t, c.IsIterable())
	assert.False(t, c.IsGenerator())
	assert.False(t, c.HasCompleted())

	require.NoError(t, c.AddIterableEvent(NewUsedEvent(3)))
	require.NoError(t, c.AddIterableEvent(NewProducedEvent(4, 0, "a")))
	require.NoError(t, c.SetEndEvent(NewConsumedEvent(5)))

	err := c.AddIterableEvent(NewProducedEvent(6, 1, "b"))
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	kinds := make([]Kind, 0)
	for _, e := range c.Events() {
		kinds = append(kinds, KindOf(e))
	}
	assert.Equal(t, []Kind{KindCalled, KindReturned, KindUsed, KindProduced, KindConsumed}, kinds)
	assert.Len(t, c.IterableEvents(), 2)
}

func TestCall_AddIterableEventRequiresIterableResponse(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Call)
	}{
		{"no response", func(c *Call) {}},
		{"plain response", func(c *Call) { _ = c.SetResponseEvent(NewReturnedEvent(2, 1)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCall(t)
			tt.setup(c)
			err := c.AddIterableEvent(NewUsedEvent(3))
			assert.ErrorIs(t, err, ErrNotIterable)
		})
	}
}

func TestCall_RejectsWrongEventTypes(t *testing.T) {
	c := newTestCall(t)

	assert.Error(t, c.SetResponseEvent(NewUsedEvent(2)))
	assert.Error(t, c.SetEndEvent(NewProducedEvent(2, 0, 1)))

	require.NoError(t, c.SetResponseEvent(NewIterableReturnedEvent(2, nil, Generator)))
	assert.Error(t, c.AddIterableEvent(NewConsumedEvent(3)))
}

func TestCall_GeneratorResponse(t *testing.T) {
	c := newTestCall(t)
	require.NoError(t, c.SetResponseEvent(NewIterableReturnedEvent(2, nil, Generator)))

	value, err := c.GeneratorResponse()
	assert.Nil(t, value)
	assert.NoError(t, err, "running generator has no terminal outcome")

	require.NoError(t, c.AddIterableEvent(NewReceivedEvent(3, "x")))
	require.NoError(t, c.SetEndEvent(NewReturnedEvent(4, "done")))

	value, err = c.GeneratorResponse()
	require.NoError(t, err)
	assert.Equal(t, "done", value)
	assert.True(t, c.IsGenerator())
}

func TestCall_EndWithoutResponseDoublesAsResponse(t *testing.T) {
	c := newTestCall(t)
	boom := errors.New("boom")

	require.NoError(t, c.SetEndEvent(NewThrewEvent(2, boom)))

	assert.Equal(t, c.EndEvent(), c.ResponseEvent())
	assert.ErrorIs(t, c.SetResponseEvent(NewReturnedEvent(3, nil)), ErrAlreadyResponded)
}

func TestCall_ConcurrentWritesKeepMonotonicProgression(t *testing.T) {
	c := newTestCall(t)
	require.NoError(t, c.SetResponseEvent(NewIterableReturnedEvent(2, nil, Iterator)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.AddIterableEvent(NewProducedEvent(int64(10+i), i, i))
		}(i)
	}
	wg.Wait()

	var ends int
	var mu sync.Mutex
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.SetEndEvent(NewConsumedEvent(100)) == nil {
				mu.Lock()
				ends++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, c.IterableEvents(), 50)
	assert.Equal(t, 1, ends, "exactly one end write may win")
}

package recorder

import "sync/atomic"

// Clock is the monotonic logical clock that stamps recorded events.
//
// Every event gets a strictly increasing sequence number, so the order of
// events across calls is explicit and a reloaded history sorts the same way
// it was recorded.
//
// Thread-safety: Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at start. Used when appending to a
// history that was reloaded from the store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

package call

import (
	"fmt"
	"sync"
)

// IterableKind classifies a call's response value.
type IterableKind int

const (
	// NotIterable responses end the call when they are recorded.
	NotIterable IterableKind = iota
	// Iterator responses record Used/Produced events and end with Consumed.
	Iterator
	// Generator responses additionally record Received and
	// ReceivedException events and end with the generator's final value or
	// error.
	Generator
)

// Call is the recorded lifecycle of one invocation.
//
// Thread-safety: all methods are safe for concurrent use. Writes are
// serialized by a per-call mutex and must progress monotonically
// (response, then sub-events, then end).
type Call struct {
	mu       sync.Mutex
	index    int
	called   *CalledEvent
	response Event
	end      Event
	events   []Event
}

// New creates a call from its called event.
func New(index int, called *CalledEvent) *Call {
	c := &Call{index: index, called: called}
	called.attach(c)
	return c
}

// Index is the position of the call within its recorder.
func (c *Call) Index() int { return c.index }

// CalledEvent returns the event that opened the call.
func (c *Call) CalledEvent() *CalledEvent { return c.called }

// Arguments returns the arguments the call was made with.
func (c *Call) Arguments() *Arguments { return c.called.Arguments }

// Callback returns the callback that was invoked.
func (c *Call) Callback() any { return c.called.Callback }

// SetResponseEvent records the call's response. A non-iterable response also
// ends the call.
func (c *Call) SetResponseEvent(e Event) error {
	if !isResponseEvent(e) {
		return fmt.Errorf("invalid response event %T", e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.response != nil {
		return ErrAlreadyResponded
	}
	e.attach(c)
	c.response = e
	if iterableKind(e) == NotIterable {
		c.end = e
	}
	return nil
}

// AddIterableEvent appends a sub-event to an open iterable call.
func (c *Call) AddIterableEvent(e Event) error {
	if !isIterableEvent(e) {
		return fmt.Errorf("invalid iterable event %T", e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if iterableKind(c.response) == NotIterable {
		return ErrNotIterable
	}
	if c.end != nil {
		return ErrAlreadyCompleted
	}
	e.attach(c)
	c.events = append(c.events, e)
	return nil
}

// SetEndEvent records the end of the call. If no response was recorded yet,
// the end event doubles as the response.
func (c *Call) SetEndEvent(e Event) error {
	switch e.(type) {
	case *ReturnedEvent, *ThrewEvent, *ConsumedEvent:
	default:
		return fmt.Errorf("invalid end event %T", e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.end != nil {
		return ErrAlreadyCompleted
	}
	e.attach(c)
	if c.response == nil {
		c.response = e
	}
	c.end = e
	return nil
}

// ResponseEvent returns the response event, or nil.
func (c *Call) ResponseEvent() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.response
}

// EndEvent returns the end event, or nil while the call is still open.
func (c *Call) EndEvent() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end
}

// IterableEvents returns a copy of the recorded sub-events in order.
func (c *Call) IterableEvents() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]Event, len(c.events))
	copy(events, c.events)
	return events
}

// Events returns every event of the call in the order it was recorded.
func (c *Call) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := []Event{c.called}
	if c.response != nil {
		events = append(events, c.response)
	}
	events = append(events, c.events...)
	if c.end != nil && c.end != c.response {
		events = append(events, c.end)
	}
	return events
}

// HasResponded reports whether a response has been recorded.
func (c *Call) HasResponded() bool {
	return c.ResponseEvent() != nil
}

// HasCompleted reports whether the call has ended.
func (c *Call) HasCompleted() bool {
	return c.EndEvent() != nil
}

// IsIterable reports whether the call responded with an iterable value.
func (c *Call) IsIterable() bool {
	return iterableKind(c.ResponseEvent()) != NotIterable
}

// IsGenerator reports whether the call responded with a generator.
func (c *Call) IsGenerator() bool {
	return iterableKind(c.ResponseEvent()) == Generator
}

// Response returns the value or error the call responded with.
func (c *Call) Response() (any, error) {
	return outcome(c.ResponseEvent())
}

// GeneratorResponse returns the final value or error of a finished generator
// call. Both are nil for non-generator calls and generators still running.
func (c *Call) GeneratorResponse() (any, error) {
	if !c.IsGenerator() {
		return nil, nil
	}
	return outcome(c.EndEvent())
}

func outcome(e Event) (any, error) {
	switch ev := e.(type) {
	case *ReturnedEvent:
		return ev.Value, nil
	case *ThrewEvent:
		return nil, ev.Err
	}
	return nil, nil
}

func iterableKind(e Event) IterableKind {
	if r, ok := e.(*ReturnedEvent); ok {
		return r.Iterable
	}
	return NotIterable
}

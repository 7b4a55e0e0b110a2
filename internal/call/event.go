package call

// Event is a sealed variant over the occurrences recorded for a Call.
// Only the event types in this package implement it.
type Event interface {
	// Sequence is the logical clock value stamped when the event occurred.
	Sequence() int64

	// Call is the call this event belongs to. Nil until the event has been
	// attached to a Call.
	Call() *Call

	attach(c *Call)
}

// event is the common part of every Event.
type event struct {
	seq  int64
	call *Call
}

func (e *event) Sequence() int64 { return e.seq }
func (e *event) Call() *Call     { return e.call }
func (e *event) attach(c *Call)  { e.call = c }

// CalledEvent records the start of an invocation.
type CalledEvent struct {
	event
	Callback  any
	Arguments *Arguments
}

// ReturnedEvent records a value returned by a call, or the final value of a
// generator.
type ReturnedEvent struct {
	event
	Value    any
	Iterable IterableKind
}

// ThrewEvent records an error returned by a call, or the error a generator
// finished with.
type ThrewEvent struct {
	event
	Err error
}

// UsedEvent records the start of iteration over an iterable response.
type UsedEvent struct {
	event
}

// ProducedEvent records one key/value pair handed out by an iterable.
type ProducedEvent struct {
	event
	Key   any
	Value any
}

// ReceivedEvent records a value sent into a generator.
type ReceivedEvent struct {
	event
	Value any
}

// ReceivedExceptionEvent records an error thrown into a generator.
type ReceivedExceptionEvent struct {
	event
	Err error
}

// ConsumedEvent records that a plain iterable was iterated to the end.
type ConsumedEvent struct {
	event
}

// NewCalledEvent creates a CalledEvent.
func NewCalledEvent(seq int64, callback any, args *Arguments) *CalledEvent {
	if args == nil {
		args = NewArguments()
	}
	return &CalledEvent{event: event{seq: seq}, Callback: callback, Arguments: args}
}

// NewReturnedEvent creates a ReturnedEvent for a non-iterable value.
func NewReturnedEvent(seq int64, value any) *ReturnedEvent {
	return &ReturnedEvent{event: event{seq: seq}, Value: value}
}

// NewIterableReturnedEvent creates a ReturnedEvent whose value will be
// iterated and spied upon.
func NewIterableReturnedEvent(seq int64, value any, kind IterableKind) *ReturnedEvent {
	return &ReturnedEvent{event: event{seq: seq}, Value: value, Iterable: kind}
}

// NewThrewEvent creates a ThrewEvent.
func NewThrewEvent(seq int64, err error) *ThrewEvent {
	return &ThrewEvent{event: event{seq: seq}, Err: err}
}

// NewUsedEvent creates a UsedEvent.
func NewUsedEvent(seq int64) *UsedEvent {
	return &UsedEvent{event: event{seq: seq}}
}

// NewProducedEvent creates a ProducedEvent.
func NewProducedEvent(seq int64, key, value any) *ProducedEvent {
	return &ProducedEvent{event: event{seq: seq}, Key: key, Value: value}
}

// NewReceivedEvent creates a ReceivedEvent.
func NewReceivedEvent(seq int64, value any) *ReceivedEvent {
	return &ReceivedEvent{event: event{seq: seq}, Value: value}
}

// NewReceivedExceptionEvent creates a ReceivedExceptionEvent.
func NewReceivedExceptionEvent(seq int64, err error) *ReceivedExceptionEvent {
	return &ReceivedExceptionEvent{event: event{seq: seq}, Err: err}
}

// NewConsumedEvent creates a ConsumedEvent.
func NewConsumedEvent(seq int64) *ConsumedEvent {
	return &ConsumedEvent{event: event{seq: seq}}
}

// Kind names an event type. Used by renderers and storage.
type Kind string

const (
	KindCalled            Kind = "called"
	KindReturned          Kind = "returned"
	KindThrew             Kind = "threw"
	KindUsed              Kind = "used"
	KindProduced          Kind = "produced"
	KindReceived          Kind = "received"
	KindReceivedException Kind = "received_exception"
	KindConsumed          Kind = "consumed"
)

// KindOf returns the Kind of an event.
func KindOf(e Event) Kind {
	switch e.(type) {
	case *CalledEvent:
		return KindCalled
	case *ReturnedEvent:
		return KindReturned
	case *ThrewEvent:
		return KindThrew
	case *UsedEvent:
		return KindUsed
	case *ProducedEvent:
		return KindProduced
	case *ReceivedEvent:
		return KindReceived
	case *ReceivedExceptionEvent:
		return KindReceivedException
	case *ConsumedEvent:
		return KindConsumed
	default:
		return ""
	}
}

// isIterableEvent reports whether e may appear between a call's response
// and its end.
func isIterableEvent(e Event) bool {
	switch e.(type) {
	case *UsedEvent, *ProducedEvent, *ReceivedEvent, *ReceivedExceptionEvent:
		return true
	}
	return false
}

// isResponseEvent reports whether e can be a call's response.
func isResponseEvent(e Event) bool {
	switch e.(type) {
	case *ReturnedEvent, *ThrewEvent:
		return true
	}
	return false
}

// Package recorder builds call histories by spying on callbacks.
//
// Each invocation through a Recorder becomes a call.Call: a Called event,
// then a Returned or Threw response. Iterable responses are wrapped before
// they reach the caller, so iterating them appends Used, Produced, Received
// and ReceivedException events and finally the end event.
//
// Recording problems (for example iterating a plain sequence twice) are
// logged and never surfaced to the code under test.
package recorder

import (
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/invoke"
	"github.com/roach88/mimic/internal/iterable"
)

// Recorder records calls made through its spies.
//
// Thread-safety: Recorder is safe for concurrent use. Each Call serializes
// its own writes.
type Recorder struct {
	mu    sync.Mutex
	calls []*call.Call

	id      string
	clock   *Clock
	invoker *invoke.Invoker
	logger  *slog.Logger
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Defaults to a logger that discards.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithClock sets the clock used to stamp events.
func WithClock(clock *Clock) Option {
	return func(r *Recorder) { r.clock = clock }
}

// WithSessionIDGenerator sets the generator for the recorder's ID.
// Defaults to UUIDv7Generator.
func WithSessionIDGenerator(gen SessionIDGenerator) Option {
	return func(r *Recorder) { r.id = gen.Generate() }
}

// WithInvoker sets the invoker used to call spied callbacks.
func WithInvoker(inv *invoke.Invoker) Option {
	return func(r *Recorder) { r.invoker = inv }
}

// New creates an empty recorder.
func New(opts ...Option) *Recorder {
	r := &Recorder{
		clock:   NewClock(),
		invoker: invoke.New(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = UUIDv7Generator{}.Generate()
	}
	return r
}

// ID returns the recorder's session ID.
func (r *Recorder) ID() string { return r.id }

// Clock returns the recorder's clock.
func (r *Recorder) Clock() *Clock { return r.clock }

// Calls returns every recorded call in invocation order.
func (r *Recorder) Calls() []*call.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*call.Call(nil), r.calls...)
}

// Record invokes callback with args and records the call. The returned
// value is what the caller should use: iterable responses come back
// wrapped.
func (r *Recorder) Record(callback any, args *call.Arguments) (any, error) {
	_, value, err := r.record(callback, args)
	return value, err
}

func (r *Recorder) record(callback any, args *call.Arguments) (*call.Call, any, error) {
	if args == nil {
		args = call.NewArguments()
	}

	r.mu.Lock()
	c := call.New(len(r.calls), call.NewCalledEvent(r.clock.Next(), callback, args))
	r.calls = append(r.calls, c)
	r.mu.Unlock()

	r.logger.Debug("call recorded", "session", r.id, "index", c.Index(), "arguments", args.String())

	value, err := r.invoker.CallWith(callback, args)
	if err != nil {
		r.respond(c, call.NewThrewEvent(r.clock.Next(), err))
		return c, nil, err
	}

	switch v := value.(type) {
	case *iterable.Generator:
		spied := r.spyGenerator(c, v)
		r.respond(c, call.NewIterableReturnedEvent(r.clock.Next(), spied, call.Generator))
		return c, spied, nil
	case iter.Seq2[any, any]:
		spied := r.spySeq2(c, v)
		r.respond(c, call.NewIterableReturnedEvent(r.clock.Next(), spied, call.Iterator))
		return c, spied, nil
	case func(func(any, any) bool):
		spied := r.spySeq2(c, v)
		r.respond(c, call.NewIterableReturnedEvent(r.clock.Next(), spied, call.Iterator))
		return c, spied, nil
	case iter.Seq[any]:
		spied := r.spySeq(c, v)
		r.respond(c, call.NewIterableReturnedEvent(r.clock.Next(), spied, call.Iterator))
		return c, spied, nil
	case func(func(any) bool):
		spied := r.spySeq(c, v)
		r.respond(c, call.NewIterableReturnedEvent(r.clock.Next(), spied, call.Iterator))
		return c, spied, nil
	}

	r.respond(c, call.NewReturnedEvent(r.clock.Next(), value))
	return c, value, nil
}

func (r *Recorder) respond(c *call.Call, e call.Event) {
	if err := c.SetResponseEvent(e); err != nil {
		r.logger.Warn("recording response failed", "session", r.id, "index", c.Index(), "error", err)
	}
}

func (r *Recorder) add(c *call.Call, e call.Event) {
	if err := c.AddIterableEvent(e); err != nil {
		r.logger.Warn("recording iterable event failed",
			"session", r.id, "index", c.Index(), "event", call.KindOf(e), "error", err)
	}
}

func (r *Recorder) end(c *call.Call, e call.Event) {
	if err := c.SetEndEvent(e); err != nil {
		r.logger.Warn("recording end failed", "session", r.id, "index", c.Index(), "error", err)
	}
}

// spyGenerator wraps g in a generator that forwards everything to g and
// records it. Every resume after a yield records what the consumer sent:
// a Received value (nil for Next) or a ReceivedException. A generator the
// consumer stops early records no end event.
func (r *Recorder) spyGenerator(c *call.Call, g *iterable.Generator) *iterable.Generator {
	return iterable.New(func(yield iterable.Yield) (any, error) {
		r.add(c, call.NewUsedEvent(r.clock.Next()))

		key, value, ok := g.Next()
		for ok {
			r.add(c, call.NewProducedEvent(r.clock.Next(), key, value))

			sent, thrown := yield(key, value)
			switch {
			case errors.Is(thrown, iterable.ErrStopped):
				g.Stop()
				return nil, thrown
			case thrown != nil:
				r.add(c, call.NewReceivedExceptionEvent(r.clock.Next(), thrown))
				key, value, ok = g.Throw(thrown)
			default:
				r.add(c, call.NewReceivedEvent(r.clock.Next(), sent))
				key, value, ok = g.Send(sent)
			}
		}

		result, err := g.Return()
		if err != nil {
			r.end(c, call.NewThrewEvent(r.clock.Next(), err))
			return nil, err
		}
		r.end(c, call.NewReturnedEvent(r.clock.Next(), result))
		return result, nil
	})
}

// spySeq2 wraps seq so iterating it records Used and Produced events, and
// Consumed once it is iterated to the end.
func (r *Recorder) spySeq2(c *call.Call, seq iter.Seq2[any, any]) iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		r.add(c, call.NewUsedEvent(r.clock.Next()))
		for k, v := range seq {
			r.add(c, call.NewProducedEvent(r.clock.Next(), k, v))
			if !yield(k, v) {
				return
			}
		}
		r.end(c, call.NewConsumedEvent(r.clock.Next()))
	}
}

// spySeq is spySeq2 for single-value sequences; keys are positions.
func (r *Recorder) spySeq(c *call.Call, seq iter.Seq[any]) iter.Seq[any] {
	return func(yield func(any) bool) {
		r.add(c, call.NewUsedEvent(r.clock.Next()))
		i := 0
		for v := range seq {
			r.add(c, call.NewProducedEvent(r.clock.Next(), i, v))
			i++
			if !yield(v) {
				return
			}
		}
		r.end(c, call.NewConsumedEvent(r.clock.Next()))
	}
}

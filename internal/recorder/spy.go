package recorder

import (
	"sync"

	"github.com/roach88/mimic/internal/call"
)

// Spy records every invocation of one callback.
//
// A Spy is itself Invokable, so it can be handed to anything that accepts a
// callback, including a stub answer.
type Spy struct {
	recorder *Recorder
	callback any

	mu    sync.Mutex
	calls []*call.Call
}

// Spy returns a spy recording invocations of callback. The callback may be
// any func, or an Invokable such as a *stub.Stub.
func (r *Recorder) Spy(callback any) *Spy {
	return &Spy{recorder: r, callback: callback}
}

// Callback returns the spied callback.
func (s *Spy) Callback() any { return s.callback }

// Invoke calls the spied callback with positional arguments.
func (s *Spy) Invoke(values ...any) (any, error) {
	return s.InvokeWith(call.NewArguments(values...))
}

// InvokeWith calls the spied callback and records the call.
func (s *Spy) InvokeWith(args *call.Arguments) (any, error) {
	c, value, err := s.recorder.record(s.callback, args)

	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()

	return value, err
}

// Calls returns the calls made through this spy, in order.
func (s *Spy) Calls() []*call.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*call.Call(nil), s.calls...)
}

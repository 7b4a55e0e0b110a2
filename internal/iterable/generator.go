// Package iterable provides the pull-driven generator that stubs hand out
// and the recorder spies on.
//
// A Generator runs its body cooperatively: the body only executes while the
// consumer is inside Next, Send or Throw. Nothing runs in the background, but
// a generator that was started and not run to completion must be released
// with Stop.
package iterable

import (
	"errors"
	"iter"
)

// ErrStopped is returned from Yield when the consumer stopped the generator
// before it finished. Bodies should return promptly when they see it.
var ErrStopped = errors.New("generator stopped")

// Yield hands a key/value pair to the consumer and suspends the body. It
// returns the value the consumer sent back in (nil for Next), or the error
// the consumer threw in.
type Yield func(key, value any) (sent any, err error)

// Body is the code of a generator. Its results become the generator's final
// value or error.
type Body func(yield Yield) (any, error)

// Generator is a resumable producer of key/value pairs that can receive
// values and errors from its consumer.
//
// Generators are not safe for concurrent use.
type Generator struct {
	body Body
	next func() (any, any, bool)
	stop func()

	sent   any
	thrown error

	key     any
	value   any
	result  any
	err     error
	started bool
	done    bool
}

// New creates a generator around body. The body does not run, and no
// resources are held, until the first call to Next, Send or Throw.
func New(body Body) *Generator {
	return &Generator{body: body}
}

func (g *Generator) pull() {
	g.next, g.stop = iter.Pull2(func(yield func(any, any) bool) {
		g.result, g.err = g.body(func(key, value any) (any, error) {
			if !yield(key, value) {
				return nil, ErrStopped
			}
			sent, thrown := g.sent, g.thrown
			g.sent, g.thrown = nil, nil
			return sent, thrown
		})
	})
}

func (g *Generator) resume() (any, any, bool) {
	if g.done {
		return nil, nil, false
	}
	if !g.started {
		g.started = true
		g.pull()
	}
	key, value, ok := g.next()
	if !ok {
		g.done = true
		g.stop()
		g.key, g.value = nil, nil
		return nil, nil, false
	}
	g.key, g.value = key, value
	return key, value, true
}

// Next resumes the body and returns the next pair. ok is false once the
// generator has finished.
func (g *Generator) Next() (key, value any, ok bool) {
	return g.resume()
}

// Send resumes the body with v as the result of its pending yield. On a
// generator that has not started, the body first runs to its first yield.
func (g *Generator) Send(v any) (key, value any, ok bool) {
	if !g.started {
		if _, _, ok := g.resume(); !ok {
			return nil, nil, false
		}
	}
	if g.done {
		return nil, nil, false
	}
	g.sent = v
	return g.resume()
}

// Throw resumes the body with err as the error of its pending yield. On a
// generator that has not started, the body first runs to its first yield.
func (g *Generator) Throw(err error) (key, value any, ok bool) {
	if !g.started {
		if _, _, ok := g.resume(); !ok {
			return nil, nil, false
		}
	}
	if g.done {
		return nil, nil, false
	}
	g.thrown = err
	return g.resume()
}

// Stop abandons the generator. A body suspended in Yield sees ErrStopped.
// Stop is idempotent.
func (g *Generator) Stop() {
	if g.done {
		return
	}
	g.done = true
	if g.started {
		g.stop()
	}
}

// Current returns the most recently produced pair.
func (g *Generator) Current() (key, value any) {
	return g.key, g.value
}

// Done reports whether the generator has finished or was stopped.
func (g *Generator) Done() bool {
	return g.done
}

// Return returns the final value or error of a finished generator.
func (g *Generator) Return() (any, error) {
	return g.result, g.err
}

// All iterates the remaining pairs. Breaking out of the loop stops the
// generator.
func (g *Generator) All() iter.Seq2[any, any] {
	return func(yield func(any, any) bool) {
		for {
			key, value, ok := g.Next()
			if !ok {
				return
			}
			if !yield(key, value) {
				g.Stop()
				return
			}
		}
	}
}

// Collect drains the generator and returns its values and final outcome.
func Collect(g *Generator) ([]any, any, error) {
	var values []any
	for _, v := range g.All() {
		values = append(values, v)
	}
	result, err := g.Return()
	return values, result, err
}

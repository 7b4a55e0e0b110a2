package stub

import (
	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/iterable"
)

type iteration struct {
	secondary []CallRequest
	key       any
	autoKey   bool
	value     any
}

// GeneratorAnswer scripts the generator returned by an answer. Each
// invocation gets a fresh *iterable.Generator that runs the scripted
// iterations in order.
//
// The answer is added to its stub when Generates is called. The builder
// edits it until Returns, Throws or Done hands the stub back, or until the
// rule holding it closes. Later edits are ignored.
type GeneratorAnswer struct {
	stub       *Stub
	iterations []iteration
	pending    []CallRequest
	trailing   []CallRequest
	value      any
	err        error
	sealed     bool
}

// Generates adds an answer returning a generator that yields values with
// automatic integer keys. Further iterations are scripted on the returned
// builder.
func (s *Stub) Generates(values ...any) *GeneratorAnswer {
	g := &GeneratorAnswer{stub: s}
	g.YieldsFrom(values...)
	s.addAnswers(&Answer{Primary: withArguments(g.generator)})
	s.onClose(g.seal)
	return g
}

// Calls adds secondary requests run before the next iteration, or before
// the generator finishes if no iteration follows.
func (g *GeneratorAnswer) Calls(callbacks ...any) *GeneratorAnswer {
	if g.sealed {
		return g
	}
	for _, cb := range callbacks {
		g.pending = append(g.pending, CallRequest{Callback: cb, SuffixArguments: true})
	}
	return g
}

// CallsWith adds a secondary request run before the next iteration.
func (g *GeneratorAnswer) CallsWith(req CallRequest) *GeneratorAnswer {
	if g.sealed {
		return g
	}
	g.pending = append(g.pending, req)
	return g
}

// CallsArgument adds secondary requests calling the invocation arguments
// at the given positions before the next iteration.
func (g *GeneratorAnswer) CallsArgument(positions ...int) *GeneratorAnswer {
	if g.sealed {
		return g
	}
	if len(positions) == 0 {
		positions = []int{0}
	}
	for _, p := range positions {
		g.pending = append(g.pending, g.stub.callArgument(p, CallRequest{}))
	}
	return g
}

// SetsArgument adds a secondary request writing an invocation argument
// before the next iteration.
func (g *GeneratorAnswer) SetsArgument(position int, value any) *GeneratorAnswer {
	if g.sealed {
		return g
	}
	g.pending = append(g.pending, withArguments(func(args *call.Arguments) (any, error) {
		return nil, args.Set(position, value)
	}))
	return g
}

// Yields adds an iteration producing value with the next automatic key.
func (g *GeneratorAnswer) Yields(value any) *GeneratorAnswer {
	return g.add(iteration{autoKey: true, value: value})
}

// YieldsPair adds an iteration producing an explicit key and value.
func (g *GeneratorAnswer) YieldsPair(key, value any) *GeneratorAnswer {
	return g.add(iteration{key: key, value: value})
}

// YieldsFrom adds one automatic-key iteration per value.
func (g *GeneratorAnswer) YieldsFrom(values ...any) *GeneratorAnswer {
	for _, v := range values {
		g.Yields(v)
	}
	return g
}

func (g *GeneratorAnswer) add(it iteration) *GeneratorAnswer {
	if g.sealed {
		return g
	}
	it.secondary, g.pending = g.pending, nil
	g.iterations = append(g.iterations, it)
	return g
}

// Returns sets the generator's final value and returns the stub.
func (g *GeneratorAnswer) Returns(value any) *Stub {
	if !g.sealed {
		g.value, g.err = value, nil
	}
	return g.Done()
}

// Throws makes the generator finish with err and returns the stub.
func (g *GeneratorAnswer) Throws(err error) *Stub {
	if err == nil {
		err = ErrStubbed
	}
	if !g.sealed {
		g.value, g.err = nil, err
	}
	return g.Done()
}

// Done finishes scripting and returns the stub.
func (g *GeneratorAnswer) Done() *Stub {
	g.seal()
	return g.stub
}

// seal moves pending secondary requests to the end of the generator and
// stops further edits.
func (g *GeneratorAnswer) seal() {
	if g.sealed {
		return
	}
	g.trailing = append(g.trailing, g.pending...)
	g.pending = nil
	g.sealed = true
}

func (g *GeneratorAnswer) generator(args *call.Arguments) (any, error) {
	iterations := append([]iteration(nil), g.iterations...)
	trailing := append([]CallRequest(nil), g.trailing...)
	value, finalErr := g.value, g.err
	s := g.stub

	return iterable.New(func(yield iterable.Yield) (any, error) {
		next := 0
		for _, it := range iterations {
			for _, req := range it.secondary {
				_, _ = s.execute(req, args)
			}
			key := it.key
			if it.autoKey {
				key = next
				next++
			}
			if _, err := yield(key, it.value); err != nil {
				return nil, err
			}
		}
		for _, req := range trailing {
			_, _ = s.execute(req, args)
		}
		return value, finalErr
	}), nil
}

package verify

import (
	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/matcher"
)

// probe describes one verification: what it is called in failure messages
// and how it counts.
type probe struct {
	verification string
	expected     string

	// singular probes only make sense zero or one times per call.
	singular bool

	count func() tally
}

type tally struct {
	count  int
	total  int
	events []call.Event
}

// run consumes the pending cardinality and evaluates p. Evidence is nil when
// the verification does not hold; the returned Failure then describes it.
func (v *Verifier) run(p probe) (*Evidence, *Failure, error) {
	card, err := v.take()
	if err != nil {
		return nil, nil, err
	}
	if p.singular && v.single != nil {
		if err := card.AssertSingular(); err != nil {
			return nil, nil, err
		}
	}

	t := p.count()
	passed := card.Matches(t.count, t.total)
	v.logger.Debug("verification evaluated",
		"verification", p.verification,
		"expected", p.expected,
		"cardinality", card.String(),
		"count", t.count,
		"total", t.total,
		"passed", passed)

	if passed {
		return &Evidence{Events: t.events}, nil, nil
	}
	return nil, &Failure{
		Verification: p.verification,
		Expected:     p.expected,
		Cardinality:  card,
		Single:       v.single != nil,
		Calls:        v.Calls(),
		Count:        t.count,
		Total:        t.total,
	}, nil
}

func (v *Verifier) check(p probe, err error) (*Evidence, error) {
	if err != nil {
		v.take()
		return nil, err
	}
	evidence, _, err := v.run(p)
	return evidence, err
}

// countSubEvents walks the sub-events of every call. relevant selects the
// event kind being verified and match tests one event.
func (v *Verifier) countSubEvents(relevant, match func(call.Event) bool) tally {
	var t tally
	for _, c := range v.calls {
		matched := false
		for _, e := range c.IterableEvents() {
			if !relevant(e) {
				continue
			}
			if v.single != nil {
				t.total++
			}
			if !match(e) {
				continue
			}
			t.events = append(t.events, e)
			matched = true
			if v.single != nil {
				t.count++
			}
		}
		if v.single == nil {
			t.total++
			if matched {
				t.count++
			}
		}
	}
	return t
}

// countCalls counts calls for which match returns a non-nil event.
func (v *Verifier) countCalls(match func(*call.Call) call.Event) tally {
	t := tally{total: len(v.calls)}
	for _, c := range v.calls {
		if e := match(c); e != nil {
			t.count++
			t.events = append(t.events, e)
		}
	}
	return t
}

func always(call.Event) bool { return true }

func optionalMatcher(f *matcher.Factory, name string, values []any) (matcher.Matcher, error) {
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return f.Adapt(values[0]), nil
	}
	return nil, &InvalidArgumentError{Argument: name, Value: values, Reason: "expected at most one value"}
}

func optionalErrorMatch(name string, matches []ErrorMatch) (ErrorMatch, error) {
	switch len(matches) {
	case 0:
		return AnyError(), nil
	case 1:
		return matches[0], nil
	}
	return ErrorMatch{}, &InvalidArgumentError{Argument: name, Value: matches, Reason: "expected at most one error match"}
}

func describe(m matcher.Matcher) string {
	if m == nil {
		return ""
	}
	return m.Describe()
}

func matches(m matcher.Matcher, value any) bool {
	return m == nil || m.Matches(value)
}

func (v *Verifier) used() (probe, error) {
	return probe{
		verification: "be used",
		singular:     true,
		count: func() tally {
			return v.countSubEvents(func(e call.Event) bool {
				_, ok := e.(*call.UsedEvent)
				return ok
			}, always)
		},
	}, nil
}

func (v *Verifier) produced(args []any) (probe, error) {
	var key, value matcher.Matcher
	expected := ""
	switch len(args) {
	case 0:
	case 1:
		value = v.factory.Adapt(args[0])
		expected = value.Describe()
	case 2:
		key, value = v.factory.Adapt(args[0]), v.factory.Adapt(args[1])
		expected = key.Describe() + ": " + value.Describe()
	default:
		return probe{}, &InvalidArgumentError{
			Argument: "produced arguments",
			Value:    args,
			Reason:   "expected nothing, a value, or a key and a value",
		}
	}

	return probe{
		verification: "produce",
		expected:     expected,
		count: func() tally {
			return v.countSubEvents(func(e call.Event) bool {
				_, ok := e.(*call.ProducedEvent)
				return ok
			}, func(e call.Event) bool {
				p := e.(*call.ProducedEvent)
				return matches(key, p.Key) && matches(value, p.Value)
			})
		},
	}, nil
}

func (v *Verifier) received(values []any) (probe, error) {
	value, err := optionalMatcher(v.factory, "received value", values)
	if err != nil {
		return probe{}, err
	}
	return probe{
		verification: "receive",
		expected:     describe(value),
		count: func() tally {
			return v.countSubEvents(func(e call.Event) bool {
				_, ok := e.(*call.ReceivedEvent)
				return ok
			}, func(e call.Event) bool {
				return matches(value, e.(*call.ReceivedEvent).Value)
			})
		},
	}, nil
}

func (v *Verifier) receivedException(errs []ErrorMatch) (probe, error) {
	m, err := optionalErrorMatch("received exception", errs)
	if err != nil {
		return probe{}, err
	}
	return probe{
		verification: "receive exception",
		expected:     m.Describe(),
		count: func() tally {
			return v.countSubEvents(func(e call.Event) bool {
				_, ok := e.(*call.ReceivedExceptionEvent)
				return ok
			}, func(e call.Event) bool {
				return m.Matches(e.(*call.ReceivedExceptionEvent).Err)
			})
		},
	}, nil
}

func (v *Verifier) consumed() (probe, error) {
	return probe{
		verification: "be consumed",
		singular:     true,
		count: func() tally {
			return v.countCalls(func(c *call.Call) call.Event {
				if !c.IsIterable() {
					return nil
				}
				return c.EndEvent()
			})
		},
	}, nil
}

// generatorEnd returns the end event of a finished generator call.
func generatorEnd(c *call.Call) call.Event {
	if !c.IsGenerator() {
		return nil
	}
	return c.EndEvent()
}

func (v *Verifier) returned(values []any) (probe, error) {
	value, err := optionalMatcher(v.factory, "returned value", values)
	if err != nil {
		return probe{}, err
	}
	return probe{
		verification: "return",
		expected:     describe(value),
		singular:     true,
		count: func() tally {
			return v.countCalls(func(c *call.Call) call.Event {
				r, ok := generatorEnd(c).(*call.ReturnedEvent)
				if !ok || !matches(value, r.Value) {
					return nil
				}
				return r
			})
		},
	}, nil
}

func (v *Verifier) threw(errs []ErrorMatch) (probe, error) {
	m, err := optionalErrorMatch("thrown error", errs)
	if err != nil {
		return probe{}, err
	}
	return probe{
		verification: "throw",
		expected:     m.Describe(),
		singular:     true,
		count: func() tally {
			return v.countCalls(func(c *call.Call) call.Event {
				t, ok := generatorEnd(c).(*call.ThrewEvent)
				if !ok || !m.Matches(t.Err) {
					return nil
				}
				return t
			})
		},
	}, nil
}

func (v *Verifier) called() (probe, error) {
	return probe{
		verification: "be called",
		singular:     true,
		count: func() tally {
			return v.countCalls(func(c *call.Call) call.Event {
				return c.CalledEvent()
			})
		},
	}, nil
}

func (v *Verifier) calledWith(args []any) (probe, error) {
	criteria := v.factory.AdaptAll(args)
	return probe{
		verification: "be called with",
		expected:     matcher.Describe(criteria),
		singular:     true,
		count: func() tally {
			return v.countCalls(func(c *call.Call) call.Event {
				if !v.verifier.Matches(criteria, c.Arguments().Values()) {
					return nil
				}
				return c.CalledEvent()
			})
		},
	}, nil
}

// CheckUsed verifies that iteration of the subject's response started.
func (v *Verifier) CheckUsed() (*Evidence, error) { return v.check(v.used()) }

// CheckProduced verifies produced pairs. With one argument it matches the
// value, with two the key and the value.
func (v *Verifier) CheckProduced(args ...any) (*Evidence, error) { return v.check(v.produced(args)) }

// CheckReceived verifies values sent into a generator.
func (v *Verifier) CheckReceived(value ...any) (*Evidence, error) {
	return v.check(v.received(value))
}

// CheckReceivedException verifies errors thrown into a generator.
func (v *Verifier) CheckReceivedException(match ...ErrorMatch) (*Evidence, error) {
	return v.check(v.receivedException(match))
}

// CheckConsumed verifies that iterable responses were iterated to the end.
func (v *Verifier) CheckConsumed() (*Evidence, error) { return v.check(v.consumed()) }

// CheckReturned verifies the final value of finished generators.
func (v *Verifier) CheckReturned(value ...any) (*Evidence, error) {
	return v.check(v.returned(value))
}

// CheckThrew verifies the error finished generators ended with.
func (v *Verifier) CheckThrew(match ...ErrorMatch) (*Evidence, error) {
	return v.check(v.threw(match))
}

// CheckCalled verifies the number of calls.
func (v *Verifier) CheckCalled() (*Evidence, error) { return v.check(v.called()) }

// CheckCalledWith verifies calls whose arguments satisfy the criteria.
func (v *Verifier) CheckCalledWith(args ...any) (*Evidence, error) {
	return v.check(v.calledWith(args))
}

package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/ir"
	"github.com/roach88/mimic/internal/iterable"
	"github.com/roach88/mimic/internal/recorder"
	"github.com/roach88/mimic/internal/store"
	"github.com/roach88/mimic/internal/stub"
)

// Harness executes one scenario against a fresh stub and recorder.
type Harness struct {
	stub   *stub.Stub
	spy    *recorder.Spy
	store  *store.Store
	logger *slog.Logger
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger passed to the stub, recorder and verifier.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// WithStore persists the recorded history under the scenario's session.
func WithStore(st *store.Store) Option {
	return func(h *Harness) { h.store = st }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Configure the stub from the scenario's rules
// 2. Make each call through a recording spy and drive returned generators
// 3. Evaluate verifications against the recorded calls
// 4. Persist the history if a store was given
//
// Failed expectations and verifications are reported in the result. An
// error is returned only if the scenario cannot be executed.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(h)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	session := scenario.Session
	if session == "" {
		session = "session-" + scenario.Name
	}
	digest, err := Digest(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to compute scenario digest: %w", err)
	}

	label := scenario.Stub.Label
	if label == "" {
		label = scenario.Name
	}
	h.stub = stub.New(stub.WithLabel(label), stub.WithLogger(h.logger))
	if err := configureStub(h.stub, scenario.Stub.Rules); err != nil {
		return nil, fmt.Errorf("failed to configure stub: %w", err)
	}

	rec := recorder.New(
		recorder.WithSessionIDGenerator(recorder.NewFixedGenerator(session)),
		recorder.WithLogger(h.logger),
	)
	h.spy = rec.Spy(h.stub)

	result := NewResult(session, digest)
	for i, step := range scenario.Calls {
		if err := h.executeCall(i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute calls[%d]: %w", i, err)
		}
	}

	calls := h.spy.Calls()
	result.Calls = calls
	result.Trace = BuildTrace(calls)

	for i, v := range scenario.Verify {
		if err := evaluate(calls, v, h.logger); err != nil {
			result.AddError(fmt.Sprintf("verify[%d]: %v", i, err))
		}
	}

	if h.store != nil {
		sess := store.Session{ID: session, Scenario: scenario.Name, Digest: digest}
		if err := h.store.WriteCalls(ctx, sess, calls); err != nil {
			return nil, fmt.Errorf("failed to store history: %w", err)
		}
	}

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"session", session,
		"calls", len(calls),
		"events", len(result.Trace),
		"pass", result.Pass)
	return result, nil
}

// Digest identifies a scenario by its canonical content. Scenarios that
// decode to the same structure have the same digest whatever file format
// they were written in.
func Digest(scenario *Scenario) (string, error) {
	data, err := json.Marshal(scenario)
	if err != nil {
		return "", err
	}
	value, err := ir.ParseJSON(data)
	if err != nil {
		return "", err
	}
	return ir.ScenarioDigest(value)
}

// configureStub closes one rule per entry so later entries take precedence.
func configureStub(s *stub.Stub, rules []RuleConfig) error {
	for i, rule := range rules {
		if rule.With != nil {
			criteria, err := stubCriteria(*rule.With)
			if err != nil {
				return fmt.Errorf("rules[%d]: %w", i, err)
			}
			s.With(criteria...)
		}
		for j, answer := range rule.Answers {
			if err := addAnswer(s, answer); err != nil {
				return fmt.Errorf("rules[%d].answers[%d]: %w", i, j, err)
			}
		}
		if err := s.CloseRule(); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}

func addAnswer(s *stub.Stub, answer map[string]any) error {
	if err := validateAnswer(answer); err != nil {
		return err
	}

	for key, raw := range answer {
		switch key {
		case AnswerReturns:
			v, err := ir.Normalize(raw)
			if err != nil {
				return err
			}
			s.Returns(v)
		case AnswerThrows:
			err, ok := thrownError(raw)
			if !ok {
				return fmt.Errorf("throws needs a message or null, got %T", raw)
			}
			s.Throws(err)
		case AnswerReturnsArgument:
			position, err := integer(raw)
			if err != nil {
				return fmt.Errorf("returns_argument: %w", err)
			}
			s.ReturnsArgument(position)
		case AnswerReturnsSelf:
			if raw != true {
				return fmt.Errorf("returns_self must be true")
			}
			s.ReturnsSelf()
		case AnswerSetsArgument:
			m, err := object(raw, "position", "value")
			if err != nil {
				return fmt.Errorf("sets_argument: %w", err)
			}
			position, err := integer(m["position"])
			if err != nil {
				return fmt.Errorf("sets_argument: position: %w", err)
			}
			v, err := ir.Normalize(m["value"])
			if err != nil {
				return fmt.Errorf("sets_argument: value: %w", err)
			}
			s.SetsArgument(position, v)
		case AnswerGenerates:
			if err := addGenerator(s, raw); err != nil {
				return fmt.Errorf("generates: %w", err)
			}
		}
	}
	return s.Err()
}

// addGenerator scripts a generator answer. A yield written as a mapping of
// exactly key and value produces that pair; anything else gets the next
// automatic key.
func addGenerator(s *stub.Stub, raw any) error {
	m, err := object(raw, "yields", "returns", "throws")
	if err != nil {
		return err
	}
	if _, hasReturns := m["returns"]; hasReturns {
		if _, hasThrows := m["throws"]; hasThrows {
			return fmt.Errorf("returns and throws are exclusive")
		}
	}

	g := s.Generates()
	yields, _ := m["yields"].([]any)
	if m["yields"] != nil && yields == nil {
		return fmt.Errorf("yields must be a list, got %T", m["yields"])
	}
	for i, y := range yields {
		if pair, ok := y.(map[string]any); ok && len(pair) == 2 {
			key, hasKey := pair["key"]
			value, hasValue := pair["value"]
			if hasKey && hasValue {
				k, err := ir.Normalize(key)
				if err != nil {
					return fmt.Errorf("yields[%d].key: %w", i, err)
				}
				v, err := ir.Normalize(value)
				if err != nil {
					return fmt.Errorf("yields[%d].value: %w", i, err)
				}
				g.YieldsPair(k, v)
				continue
			}
		}
		v, err := ir.Normalize(y)
		if err != nil {
			return fmt.Errorf("yields[%d]: %w", i, err)
		}
		g.Yields(v)
	}

	if raw, ok := m["throws"]; ok {
		err, ok := thrownError(raw)
		if !ok {
			return fmt.Errorf("throws needs a message or null, got %T", raw)
		}
		g.Throws(err)
		return nil
	}
	v, err := ir.Normalize(m["returns"])
	if err != nil {
		return fmt.Errorf("returns: %w", err)
	}
	g.Returns(v)
	return nil
}

// callArguments builds the arguments of a call step: positional values
// first, then named values in key order.
func callArguments(step CallStep) (*call.Arguments, error) {
	positional, err := normalizeAll(step.Args)
	if err != nil {
		return nil, fmt.Errorf("args%w", err)
	}
	args := make([]call.Argument, 0, len(positional)+len(step.Named))
	for _, v := range positional {
		args = append(args, call.Argument{Value: v})
	}

	names := make([]string, 0, len(step.Named))
	for name := range step.Named {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v, err := ir.Normalize(step.Named[name])
		if err != nil {
			return nil, fmt.Errorf("named[%q]: %w", name, err)
		}
		args = append(args, call.Named(name, v))
	}
	return call.NewArgumentsFrom(args...), nil
}

type driveStep struct {
	op    string
	value any
	err   error
}

const (
	driveNext  = "next"
	driveStop  = "stop"
	driveDrain = "drain"
	driveSend  = "send"
	driveThrow = "throw"
)

func parseDriveStep(raw any) (driveStep, error) {
	switch x := raw.(type) {
	case string:
		switch x {
		case driveNext, driveStop, driveDrain:
			return driveStep{op: x}, nil
		}
		return driveStep{}, fmt.Errorf("unknown drive step %q", x)
	case map[string]any:
		if len(x) != 1 {
			return driveStep{}, fmt.Errorf("a drive step mapping has exactly one of send, throw")
		}
		if v, ok := x[driveSend]; ok {
			n, err := ir.Normalize(v)
			if err != nil {
				return driveStep{}, fmt.Errorf("send: %w", err)
			}
			return driveStep{op: driveSend, value: n}, nil
		}
		if v, ok := x[driveThrow]; ok {
			msg, ok := v.(string)
			if !ok {
				return driveStep{}, fmt.Errorf("throw needs a message, got %T", v)
			}
			return driveStep{op: driveThrow, err: errors.New(msg)}, nil
		}
		return driveStep{}, fmt.Errorf("unknown drive step %v", x)
	}
	return driveStep{}, fmt.Errorf("unsupported drive step %T", raw)
}

// executeCall invokes the stub once and drives a returned generator.
// A generator left unfinished is stopped so its body is released.
func (h *Harness) executeCall(index int, step CallStep, result *Result) error {
	args, err := callArguments(step)
	if err != nil {
		return err
	}

	value, callErr := h.spy.InvokeWith(args)

	g, isGenerator := value.(*iterable.Generator)
	if !isGenerator {
		if len(step.Drive) > 0 {
			result.AddError(fmt.Sprintf("calls[%d]: drive needs a generator response, got %s", index, describeOutcome(value, callErr)))
		}
		h.checkExpect(index, step.Expect, value, callErr, result)
		return nil
	}

	for _, raw := range step.Drive {
		d, err := parseDriveStep(raw)
		if err != nil {
			return err
		}
		drive(g, d)
	}

	if !g.Done() {
		g.Stop()
		if step.Expect != nil {
			result.AddError(fmt.Sprintf("calls[%d]: generator did not finish, cannot check expect", index))
		}
		return nil
	}
	final, finalErr := g.Return()
	h.checkExpect(index, step.Expect, final, finalErr, result)
	return nil
}

func drive(g *iterable.Generator, d driveStep) {
	switch d.op {
	case driveNext:
		g.Next()
	case driveSend:
		g.Send(d.value)
	case driveThrow:
		g.Throw(d.err)
	case driveStop:
		g.Stop()
	case driveDrain:
		for {
			if _, _, ok := g.Next(); !ok {
				return
			}
		}
	}
}

func (h *Harness) checkExpect(index int, expect map[string]any, value any, err error, result *Result) {
	if want, ok := expect[AnswerThrows]; ok {
		msg, _ := want.(string)
		if err == nil || err.Error() != msg {
			result.AddError(fmt.Sprintf("calls[%d]: expected error %q, got %s", index, msg, describeOutcome(value, err)))
		}
		return
	}
	want, ok := expect[AnswerReturns]
	if !ok {
		return
	}
	normalized, nerr := ir.Normalize(want)
	if nerr != nil {
		result.AddError(fmt.Sprintf("calls[%d]: expect: %v", index, nerr))
		return
	}
	if err != nil || !normalizedEqual(normalized).Matches(value) {
		result.AddError(fmt.Sprintf("calls[%d]: expected %#v, got %s", index, normalized, describeOutcome(value, err)))
	}
}

func describeOutcome(value any, err error) string {
	if err != nil {
		return fmt.Sprintf("error %q", err.Error())
	}
	return fmt.Sprintf("%#v", traceValue(value))
}

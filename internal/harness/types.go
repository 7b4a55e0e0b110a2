package harness

import (
	"fmt"
	"sort"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/ir"
	"github.com/roach88/mimic/internal/iterable"
)

// TraceEvent is one recorded event in a deterministic, serializable form.
// Which of the optional fields are meaningful depends on Kind.
type TraceEvent struct {
	Call int    `json:"call"`
	Seq  int64  `json:"seq"`
	Kind string `json:"kind"`

	// Args and Named are set for called events.
	Args  []any          `json:"args,omitempty"`
	Named map[string]any `json:"named,omitempty"`

	// Iterable is "generator" or "iterator" for an iterable response.
	Iterable string `json:"iterable,omitempty"`

	Key   any    `json:"key,omitempty"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expectation and verification held.
	Pass bool `json:"pass"`

	Session string `json:"session"`

	// Digest identifies the scenario content the result was produced from.
	Digest string `json:"digest"`

	// Trace contains every recorded event in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Calls is the recorded history the trace was built from.
	Calls []*call.Call `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(session, digest string) *Result {
	return &Result{
		Pass:    true,
		Session: session,
		Digest:  digest,
		Trace:   []TraceEvent{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// BuildTrace flattens calls into trace events ordered by sequence number.
func BuildTrace(calls []*call.Call) []TraceEvent {
	trace := []TraceEvent{}
	for _, c := range calls {
		for _, e := range c.Events() {
			trace = append(trace, traceEvent(c, e))
		}
	}
	sort.SliceStable(trace, func(i, j int) bool { return trace[i].Seq < trace[j].Seq })
	return trace
}

func traceEvent(c *call.Call, e call.Event) TraceEvent {
	te := TraceEvent{
		Call: c.Index(),
		Seq:  e.Sequence(),
		Kind: string(call.KindOf(e)),
	}

	switch ev := e.(type) {
	case *call.CalledEvent:
		te.Args = []any{}
		for _, arg := range ev.Arguments.All() {
			te.Args = append(te.Args, traceValue(arg.Value))
			if arg.Name != "" {
				if te.Named == nil {
					te.Named = make(map[string]any)
				}
				te.Named[arg.Name] = traceValue(arg.Value)
			}
		}
	case *call.ReturnedEvent:
		switch ev.Iterable {
		case call.Generator:
			te.Iterable = "generator"
		case call.Iterator:
			te.Iterable = "iterator"
		default:
			te.Value = traceValue(ev.Value)
		}
	case *call.ThrewEvent:
		te.Error = ev.Err.Error()
	case *call.ProducedEvent:
		te.Key = traceValue(ev.Key)
		te.Value = traceValue(ev.Value)
	case *call.ReceivedEvent:
		te.Value = traceValue(ev.Value)
	case *call.ReceivedExceptionEvent:
		te.Error = ev.Err.Error()
	}
	return te
}

// traceValue renders a recorded value in the shared value model. Values
// with no canonical form are replaced by a type placeholder.
func traceValue(v any) any {
	switch x := v.(type) {
	case *iterable.Generator:
		return "<generator>"
	case error:
		return x.Error()
	case fmt.GoStringer:
		return x.GoString()
	}
	n, err := ir.Normalize(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	return n
}

// canonical returns the event as a map whose keys depend only on its kind,
// so a nil value is written as null instead of being dropped.
func (e TraceEvent) canonical() map[string]any {
	m := map[string]any{
		"call": e.Call,
		"seq":  e.Seq,
		"kind": e.Kind,
	}
	switch call.Kind(e.Kind) {
	case call.KindCalled:
		m["args"] = e.Args
		if len(e.Named) > 0 {
			m["named"] = e.Named
		}
	case call.KindReturned:
		if e.Iterable != "" {
			m["iterable"] = e.Iterable
		} else {
			m["value"] = e.Value
		}
	case call.KindProduced:
		m["key"] = e.Key
		m["value"] = e.Value
	case call.KindReceived:
		m["value"] = e.Value
	case call.KindThrew, call.KindReceivedException:
		m["error"] = e.Error
	}
	return m
}

package verify

import (
	"fmt"
	"strings"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/cardinality"
)

// Failure describes a verification that did not hold.
type Failure struct {
	Verification string
	Expected     string
	Cardinality  cardinality.Cardinality
	Single       bool
	Calls        []*call.Call
	Count        int
	Total        int
}

// Renderer turns a Failure into a message.
type Renderer interface {
	RenderFailure(f Failure) string
}

// DefaultRenderer renders a headline followed by the subject's events.
type DefaultRenderer struct{}

// RenderFailure implements Renderer.
func (DefaultRenderer) RenderFailure(f Failure) string {
	var b strings.Builder

	what := f.Verification
	if f.Expected != "" {
		what += " " + f.Expected
	}
	fmt.Fprintf(&b, "Expected %s to %s, %s.\n", subject(f), what, f.Cardinality)

	unit := "calls"
	if f.Single {
		unit = "events"
	}
	fmt.Fprintf(&b, "Matched %d of %d %s.\n", f.Count, f.Total, unit)

	if len(f.Calls) == 0 {
		b.WriteString("No calls were recorded.\n")
		return b.String()
	}
	b.WriteString("Events:\n")
	for _, c := range f.Calls {
		fmt.Fprintf(&b, "  #%d %s\n", c.Index(), c.Arguments())
		for _, e := range c.Events()[1:] {
			fmt.Fprintf(&b, "    %s\n", FormatEvent(e))
		}
	}
	return b.String()
}

func subject(f Failure) string {
	if f.Single && len(f.Calls) == 1 {
		return fmt.Sprintf("call #%d", f.Calls[0].Index())
	}
	return "calls"
}

// FormatEvent renders one event on a single line.
func FormatEvent(e call.Event) string {
	switch ev := e.(type) {
	case *call.CalledEvent:
		return "called " + ev.Arguments.String()
	case *call.ReturnedEvent:
		switch ev.Iterable {
		case call.Generator:
			return "returned <generator>"
		case call.Iterator:
			return "returned <iterator>"
		}
		return fmt.Sprintf("returned %#v", ev.Value)
	case *call.ThrewEvent:
		return fmt.Sprintf("threw %q", ev.Err.Error())
	case *call.UsedEvent:
		return "used"
	case *call.ProducedEvent:
		return fmt.Sprintf("produced %#v: %#v", ev.Key, ev.Value)
	case *call.ReceivedEvent:
		return fmt.Sprintf("received %#v", ev.Value)
	case *call.ReceivedExceptionEvent:
		return fmt.Sprintf("received exception %q", ev.Err.Error())
	case *call.ConsumedEvent:
		return "consumed"
	}
	return fmt.Sprintf("%T", e)
}

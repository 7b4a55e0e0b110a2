package verify

import "github.com/roach88/mimic/internal/call"

// Evidence is the set of events that made a verification pass, in the
// order they were found.
type Evidence struct {
	Events []call.Event
}

// Len returns the number of events.
func (e *Evidence) Len() int {
	if e == nil {
		return 0
	}
	return len(e.Events)
}

// First returns the first event, or nil.
func (e *Evidence) First() call.Event {
	if e.Len() == 0 {
		return nil
	}
	return e.Events[0]
}

// Calls returns the distinct calls the events belong to, in order of first
// appearance.
func (e *Evidence) Calls() []*call.Call {
	if e == nil {
		return nil
	}
	seen := make(map[*call.Call]bool)
	var calls []*call.Call
	for _, ev := range e.Events {
		c := ev.Call()
		if c == nil || seen[c] {
			continue
		}
		seen[c] = true
		calls = append(calls, c)
	}
	return calls
}

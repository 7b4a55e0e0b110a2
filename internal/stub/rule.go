package stub

import (
	"sync/atomic"

	"github.com/roach88/mimic/internal/matcher"
)

// Answer is the scripted outcome of one matching invocation: a primary
// request whose result is surfaced, preceded by secondary requests run for
// their side effects.
type Answer struct {
	Primary   CallRequest
	Secondary []CallRequest
}

// Rule is a closed statement: criteria plus the answers to cycle through.
type Rule struct {
	criteria    []matcher.Matcher
	answers     []*Answer
	calledCount atomic.Int64
}

// NewRule creates a rule. Criteria and answers are copied.
func NewRule(criteria []matcher.Matcher, answers []*Answer) *Rule {
	return &Rule{
		criteria: append([]matcher.Matcher(nil), criteria...),
		answers:  append([]*Answer(nil), answers...),
	}
}

// Criteria returns the matchers an argument list must satisfy.
func (r *Rule) Criteria() []matcher.Matcher {
	return append([]matcher.Matcher(nil), r.criteria...)
}

// Answers returns the rule's answers in order.
func (r *Rule) Answers() []*Answer {
	return append([]*Answer(nil), r.answers...)
}

// CalledCount returns how many invocations the rule has answered.
func (r *Rule) CalledCount() int {
	return int(r.calledCount.Load())
}

// Next returns the answer for the next invocation and advances the
// counter. Past the last answer, the last answer repeats.
func (r *Rule) Next() (*Answer, error) {
	if len(r.answers) == 0 {
		return nil, newUndefinedAnswerError()
	}
	n := r.calledCount.Add(1) - 1
	i := min(int(n), len(r.answers)-1)
	return r.answers[i], nil
}

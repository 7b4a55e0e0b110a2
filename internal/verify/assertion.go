package verify

import "sync"

// AssertionRecorder receives the outcome of assertion methods. It is the
// hook a test framework uses to count assertions or turn failures into its
// own error type.
type AssertionRecorder interface {
	RecordSuccess(evidence *Evidence)
	CreateFailure(message string) error
}

// ErrorRecorder ignores successes and returns failures as *AssertionError.
type ErrorRecorder struct{}

// RecordSuccess does nothing.
func (ErrorRecorder) RecordSuccess(*Evidence) {}

// CreateFailure returns an *AssertionError.
func (ErrorRecorder) CreateFailure(message string) error {
	return &AssertionError{Message: message}
}

// CountingRecorder counts assertion outcomes. Failures are returned as
// *AssertionError.
type CountingRecorder struct {
	mu        sync.Mutex
	successes int
	failures  int
}

// RecordSuccess counts a passed assertion.
func (r *CountingRecorder) RecordSuccess(*Evidence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.successes++
}

// CreateFailure counts a failed assertion.
func (r *CountingRecorder) CreateFailure(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
	return &AssertionError{Message: message}
}

// Successes returns the number of passed assertions.
func (r *CountingRecorder) Successes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.successes
}

// Failures returns the number of failed assertions.
func (r *CountingRecorder) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// assert runs p and reports the outcome to the assertion recorder. The
// failure is only rendered once the check has failed.
func (v *Verifier) assert(p probe, err error) (*Evidence, error) {
	if err != nil {
		v.take()
		return nil, err
	}
	evidence, failure, err := v.run(p)
	if err != nil {
		return nil, err
	}
	if failure != nil {
		return nil, v.recorder.CreateFailure(v.renderer.RenderFailure(*failure))
	}
	v.recorder.RecordSuccess(evidence)
	return evidence, nil
}

// Used asserts that iteration of the subject's response started.
func (v *Verifier) Used() (*Evidence, error) { return v.assert(v.used()) }

// Produced asserts produced pairs; see CheckProduced.
func (v *Verifier) Produced(args ...any) (*Evidence, error) { return v.assert(v.produced(args)) }

// Received asserts values sent into a generator.
func (v *Verifier) Received(value ...any) (*Evidence, error) { return v.assert(v.received(value)) }

// ReceivedException asserts errors thrown into a generator.
func (v *Verifier) ReceivedException(match ...ErrorMatch) (*Evidence, error) {
	return v.assert(v.receivedException(match))
}

// Consumed asserts that iterable responses were iterated to the end.
func (v *Verifier) Consumed() (*Evidence, error) { return v.assert(v.consumed()) }

// Returned asserts the final value of finished generators.
func (v *Verifier) Returned(value ...any) (*Evidence, error) { return v.assert(v.returned(value)) }

// Threw asserts the error finished generators ended with.
func (v *Verifier) Threw(match ...ErrorMatch) (*Evidence, error) { return v.assert(v.threw(match)) }

// Called asserts the number of calls.
func (v *Verifier) Called() (*Evidence, error) { return v.assert(v.called()) }

// CalledWith asserts calls whose arguments satisfy the criteria.
func (v *Verifier) CalledWith(args ...any) (*Evidence, error) { return v.assert(v.calledWith(args)) }

// Package call defines the recorded-call model shared by the stub engine,
// the recorder and the verification engine.
//
// A Call is the lifecycle record of one invocation:
//
//	called -> responded -> [iterable sub-events] -> ended
//
// Calls are append-only. The response and end slots are set exactly once and
// iterable sub-events can only be added while the call is still open. These
// ordering checks are the only consistency mechanism: out-of-order or
// duplicate writes fail with ErrAlreadyResponded, ErrAlreadyCompleted or
// ErrNotIterable. Writes to a single Call are serialized by a per-call lock.
//
// Events form a sealed variant (see Event). Every event carries a logical
// sequence number stamped by the recorder's clock, never a wall-clock time.
//
// Arguments is the ordered, optionally named snapshot of call inputs. Its
// slots are mutable cells: a write through one *Arguments is visible to every
// holder of the same pointer.
package call

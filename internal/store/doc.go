// Package store persists recorded call histories in SQLite.
//
// A session is one recorder's worth of calls, usually one scenario run.
// Every call keeps its arguments and events; ReadCalls rebuilds them as
// *call.Call values that verify.ForCalls accepts unchanged, so a history can
// be recorded once and inspected later.
//
// Values are stored as canonical JSON (see internal/ir). Values that have no
// JSON form, such as callbacks or the iterables a call returned, keep only
// their Go type and come back as Opaque. Errors keep their type name and
// message and come back as *RecordedError.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Call IDs are content-addressed (ir.CallID), so writing the same call twice
// is a no-op.
package store

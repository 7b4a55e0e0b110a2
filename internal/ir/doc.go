// Package ir is the value model shared by scenario files, persisted call
// histories and the runner.
//
// Scenario arguments, stubbed return values and recorded event payloads all
// pass through ir before they are compared or stored, so two sources of the
// same value always agree: integers are int64, floats are rejected, strings
// are NFC normalized at the serialization boundary.
//
// ir imports nothing internal.
package ir

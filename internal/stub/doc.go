// Package stub implements the rule-resolution engine behind stubs.
//
// A Stub is configured in statements. Each statement optionally narrows
// which argument lists it applies to with With, then lists one or more
// answers:
//
//	s := stub.New()
//	s.With(1).Returns("a")
//	s.With(2).Returns("b", "c")
//	s.With(matcher.AnyNumber()).Throws(errBoom)
//
// Closing a statement freezes it into a Rule and puts it in front of every
// rule closed before it, so later statements shadow earlier ones wherever
// their criteria overlap. A statement closes when the next With starts,
// when CloseRule is called, or when the stub is invoked.
//
// Each rule counts the invocations it answered. Invocation n uses answer n;
// once the answers run out the last one repeats forever.
//
// A stub invoked before any rule was configured installs a match-all rule
// through its default answer callback, so a bare stub always answers.
//
// Builder methods chain and therefore cannot return errors. The first
// configuration error is latched instead: every later builder call is a
// no-op, and CloseRule, InvokeWith and Err return it.
package stub

// Package harness runs stub and verification scenarios described in files.
//
// A scenario configures a stub, makes calls against it through a recording
// spy, optionally drives the generators those calls return, and then checks
// the recorded history with cardinality-based verifications.
//
// # Scenario Format
//
// Scenarios are YAML files (unknown fields rejected) or CUE files (unified
// with the #Scenario schema in schema.cue):
//
//	name: generator_duality
//	description: one call counts events, a collection counts calls
//	stub:
//	  label: repo
//	  rules:
//	    - with: ["<any>*"]
//	      answers:
//	        - returns: 1
//	        - throws: boom
//	    - with: ["first"]
//	      answers:
//	        - generates:
//	            yields: ["b", {key: "a", value: "b"}]
//	            returns: done
//	calls:
//	  - args: ["first"]
//	    drive: [next, {send: "x"}, drain]
//	    expect: {returns: done}
//	  - args: [1, 2]
//	    expect: {returns: 1}
//	verify:
//	  - check: produced
//	    args: ["<any>", "b"]
//	    once: true
//	  - check: received
//	    call: 0
//	    args: ["x"]
//	    once: true
//
// Rules are configured in file order, so later rules take precedence. A rule
// without "with" matches any arguments; "with: []" matches only calls with
// no arguments. Answers cycle in order and the last one repeats.
//
// Answer entries have exactly one key: returns, throws, returns_argument,
// returns_self, generates, or the secondary sets_argument, which attaches to
// the next primary answer.
//
// In criteria and verification arguments the strings "<any>" and "<any>*"
// stand for one arbitrary value and any number of values.
//
// Drive steps are next, drain, stop, {send: value} and {throw: message}.
//
// # Verifications
//
// check is one of used, produced, received, received_exception, consumed,
// returned, threw, called and called_with. Without call the subject is every
// call; with call it is that one call. The cardinality is one of never, once,
// twice, thrice, times, at_least, at_most and between, plus always; without
// one at least one match is required. fails: true expects the verification not to hold.
//
// # Deterministic Testing
//
// The session ID is fixed per scenario and the recorder's logical clock
// starts at zero, so the trace of a scenario is identical across runs and
// can be compared against a golden file.
package harness

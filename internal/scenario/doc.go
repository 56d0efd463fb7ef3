// Package scenario runs YAML-defined command scenarios against a fresh
// in-memory engine and checks the outcome.
//
// A scenario is a list of steps, each invoking one engine command, followed
// by assertions over the recorded trace and the final stored state.
// Harnesses are named by alias in the scenario (bound with "as:"), and the
// trace refers to them by alias, so traces are stable across runs and can
// be compared against golden files.
//
// Every run uses an in-memory store, a deterministic clock and a sequential
// id generator, so the same scenario always produces the same trace.
//
// Example:
//
//	name: fork_after_release
//	description: Updating a released harness forks revision 02
//	steps:
//	  - invoke: create
//	    as: h1
//	    args: {name: Loom}
//	  - invoke: submit
//	    args: {harness: h1}
//	  - invoke: release
//	    args: {harness: h1}
//	  - invoke: update
//	    as: h2
//	    args: {harness: h1, description: v2}
//	    expect: {result: {revision: "02", forked: true}}
//	assertions:
//	  - type: final_state
//	    harness: h1
//	    expect: {releaseState: released}
package scenario

// Package execution implements the execution context that owns the
// suite → case → step tree of a run.
//
// The context records start and end timestamps from an injectable Clock and
// evaluates each node against its warning and critical thresholds. The
// test-case lifecycle drives it through ports.Orchestrator.
//
// Calling step operations without an open test case, or opening a second
// step or case while one is open, is a programming error and panics.
//
// The context is not safe for concurrent use. A run executes one test case
// at a time.
package execution

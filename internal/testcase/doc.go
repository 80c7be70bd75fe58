// Package testcase implements the lifecycle of one executing test case.
//
// A TestCase brackets the steps of a running script. Steps are named
// retroactively: the step open while script code executes has no name
// until EndOfStep is called at its boundary, which names it, closes it and
// opens the next one.
//
// LIFECYCLE:
//
//	New ──> StepOpen ──EndOfStep──> StepOpen ... ──SaveResult──> Finalized
//
// Exactly one step is open between New and SaveResult. Step operations on a
// finalized TestCase are programming errors and panic.
//
// STEP CACHE:
//
// When a Cache is supplied, New reads the steps of the last fully successful
// run. Reading alone changes nothing. If HandleException is called while the
// in-flight step is still unnamed, the cached step at the same ordinal
// position lends it its id and thresholds so the failure is reported under
// a meaningful name.
//
// SaveResult writes the complete live step list to the cache, but only when
// no step carries an error. A failed run never overwrites a good entry.
//
// Matching is by position only. If steps were added or removed since the
// entry was written, the lent identity may belong to a different step.
//
// Concurrency: a TestCase is not safe for concurrent use. The suite runner
// executes one test case's operations in order.
package testcase

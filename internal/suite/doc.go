// Package suite loads suite definitions and runs their test cases.
//
// # Suite Format
//
// Suites are defined in YAML files with the following structure:
//
//	id: checkout-suite
//	cases:
//	  - id: login
//	    folder: login            # relative to the suite file
//	    warning: 10s
//	    critical: 20s
//	    image_paths: [images, /shared/images]
//	    steps:
//	      - name: open login page
//	        warning: 2s
//	        critical: 5s
//	        sleep: 1s
//	      - name: submit credentials
//	        fail: "button not found"
//
// A step with fail raises a step failure instead of ending normally. A
// step with sleep waits before it ends, which makes thresholds observable.
//
// # Execution
//
// Cases execute sequentially in file order. For every case the runner
// constructs a testcase.TestCase, runs its script, routes a script error
// through HandleException, then calls SaveResult and closes the case.
// A case that cannot be constructed is recorded as failed and the suite
// continues.
package suite

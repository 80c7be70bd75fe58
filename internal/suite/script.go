package suite

import (
	"context"
	"time"

	"github.com/roach88/stepwise/internal/testcase"
)

// Script drives the steps of one test case. A returned error is routed
// through TestCase.HandleException.
type Script interface {
	Run(ctx context.Context, tc *testcase.TestCase) error
}

// ScriptFunc adapts a function to Script.
type ScriptFunc func(ctx context.Context, tc *testcase.TestCase) error

// Run implements Script.
func (f ScriptFunc) Run(ctx context.Context, tc *testcase.TestCase) error {
	return f(ctx, tc)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StepScript replays the steps of a suite case.
type StepScript struct {
	Steps []Step
	Sleep Sleeper
}

// Run implements Script. Each step sleeps, then either fails or ends.
func (s StepScript) Run(ctx context.Context, tc *testcase.TestCase) error {
	sleep := s.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	for _, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return testcase.WrapStepFailure(err, "interrupted before "+st.Name)
		}
		if st.Sleep > 0 {
			if err := sleep(ctx, st.Sleep.Std()); err != nil {
				return testcase.WrapStepFailure(err, "interrupted in "+st.Name)
			}
		}
		if st.Fail != "" {
			return testcase.NewStepFailure("%s", st.Fail)
		}
		tc.EndOfStep(st.Name, st.Warning.Std(), st.Critical.Std())
	}
	return nil
}

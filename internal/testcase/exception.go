package testcase

import (
	"context"
	"fmt"

	"github.com/roach88/stepwise/internal/model"
)

// HandleException records err on the current step, logs it and takes an
// error screenshot when the project properties ask for one.
//
// HandleException never fails. Screenshot failures are logged at debug
// level and otherwise ignored. A nil err records nothing.
func (tc *TestCase) HandleException(ctx context.Context, err error) {
	tc.mustBeOpen("HandleException")
	if err == nil {
		return
	}

	tc.exec.UpdateCurrentTestStep(model.StepUpdate{Err: err})
	tc.reconcileFromCache()

	tc.exec.Logger().Error(
		fmt.Sprintf("Error in test case %s: %s", tc.descriptor.ID, err.Error()),
		stackOf(err),
	)

	if tc.deps.Properties == nil {
		return
	}
	props := tc.deps.Properties.Properties()
	if !props.ErrorScreenshot || tc.deps.Screenshots == nil {
		return
	}
	path, shotErr := tc.deps.Screenshots.TakeScreenshotWithTimestamp(ctx, props.ScreenshotDir)
	if shotErr != nil {
		tc.exec.Logger().Debug("error screenshot failed", "case", tc.descriptor.ID, "error", shotErr)
		return
	}
	tc.exec.Logger().Debug("error screenshot taken", "case", tc.descriptor.ID, "path", path)
}

// reconcileFromCache lends the in-flight step the identity the step at
// the same position had in the cached run.
func (tc *TestCase) reconcileFromCache() {
	if tc.cached == nil {
		return
	}
	idx := firstPending(tc.exec.CurrentTestCase().Children())
	if idx < 0 || idx >= len(tc.cached) {
		return
	}
	rec := tc.cached[idx]
	if rec.ID.IsPending() {
		return
	}
	tc.exec.UpdateCurrentTestStep(model.StepUpdate{
		Kind:         model.KindStep,
		ID:           model.Ptr(rec.ID),
		WarningTime:  model.Ptr(rec.WarningTime),
		CriticalTime: model.Ptr(rec.CriticalTime),
	})
}

func firstPending(steps []model.StepRecord) int {
	for i, s := range steps {
		if s.ID.IsPending() {
			return i
		}
	}
	return -1
}

package testcase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/stepwise/internal/imagepath"
	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/ports"
	"github.com/roach88/stepwise/internal/stepcache"
)

// State is the lifecycle state of a TestCase.
type State int

// Lifecycle states.
const (
	StateInitializing State = iota
	StateStepOpen
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateStepOpen:
		return "step-open"
	case StateFinalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Deps holds the collaborators of a TestCase.
type Deps struct {
	// Cache is the step cache of this case. Optional.
	Cache stepcache.Cache

	// Properties resolves the active project properties.
	Properties ports.PropertiesFactory

	// Screenshots takes error screenshots. Optional when properties
	// disable them.
	Screenshots ports.Screenshotter

	// Images receives the resolved image search paths. Optional.
	Images *imagepath.Registry

	// WorkingDir overrides the working directory source. Optional.
	WorkingDir imagepath.WorkingDir
}

// TestCase drives one test case through the orchestrator.
type TestCase struct {
	exec       ports.Orchestrator
	deps       Deps
	descriptor model.TestCaseDescriptor
	images     imagepath.SearchPaths

	// cached holds the entry read at construction; nil if none was read.
	cached []model.StepRecord
	state  State
}

// New starts a test case.
//
// Image paths are resolved before the orchestrator is touched, so a missing
// folder leaves no partial registration behind. Cache read failures are
// returned; a broken cache is not treated as a fresh run.
func New(ctx context.Context, exec ports.Orchestrator, deps Deps, d model.TestCaseDescriptor, additionalImagePaths ...string) (*TestCase, error) {
	images, err := imagepath.ResolveWith(deps.WorkingDir, d.Folder, additionalImagePaths)
	if err != nil {
		return nil, err
	}

	tc := &TestCase{
		exec:       exec,
		deps:       deps,
		descriptor: d,
		images:     images,
		state:      StateInitializing,
	}

	exec.StartTestCase(model.TestCaseDescriptor{
		ID:           d.ID,
		WarningTime:  d.WarningTime,
		CriticalTime: d.CriticalTime,
	})
	if deps.Images != nil {
		deps.Images.Install(images)
	}

	if deps.Cache != nil {
		exists, err := deps.Cache.Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("test case %q: check step cache: %w", d.ID, err)
		}
		if exists {
			steps, err := deps.Cache.Read(ctx)
			switch {
			case errors.Is(err, stepcache.ErrCacheMiss):
				// Entry vanished after Exists; treat as no history.
				exec.Logger().Debug("step cache entry gone before read", "case", d.ID)
			case err != nil:
				return nil, fmt.Errorf("test case %q: read step cache: %w", d.ID, err)
			default:
				tc.cached = steps
				exec.Logger().Debug("step cache loaded", "case", d.ID, "steps", len(steps))
			}
		}
	}

	exec.StartTestStep()
	tc.state = StateStepOpen
	return tc, nil
}

// ID returns the test case id.
func (tc *TestCase) ID() string {
	return tc.descriptor.ID
}

// ImagePaths returns the resolved image search list.
func (tc *TestCase) ImagePaths() imagepath.SearchPaths {
	out := make(imagepath.SearchPaths, len(tc.images))
	copy(out, tc.images)
	return out
}

// CachedSteps returns the steps read from the cache at construction.
func (tc *TestCase) CachedSteps() []model.StepRecord {
	out := make([]model.StepRecord, len(tc.cached))
	copy(out, tc.cached)
	return out
}

// State returns the lifecycle state.
func (tc *TestCase) State() State {
	return tc.state
}

// EndOfStep names and closes the current step, then opens the next one.
func (tc *TestCase) EndOfStep(id string, warning, critical time.Duration) {
	tc.mustBeOpen("EndOfStep")

	tc.exec.UpdateCurrentTestStep(model.StepUpdate{
		ID:           model.Ptr(model.Named(id)),
		WarningTime:  model.Ptr(warning),
		CriticalTime: model.Ptr(critical),
	})
	tc.exec.EndTestStep()
	tc.exec.StartTestStep()
}

// SaveResult closes the last step and commits the step cache when the run
// succeeded. Step errors are never returned; cache write errors are.
func (tc *TestCase) SaveResult(ctx context.Context) error {
	tc.mustBeOpen("SaveResult")

	last := tc.exec.CurrentTestStep()
	tc.exec.EndTestStep()
	tc.exec.StartTestStep()
	tc.state = StateFinalized

	if tc.deps.Cache == nil {
		return nil
	}
	if last.Err != nil {
		tc.exec.Logger().Debug("step cache not written: last step failed", "case", tc.descriptor.ID)
		return nil
	}
	steps := tc.exec.CurrentTestCase().Children()
	if model.HasError(steps) {
		tc.exec.Logger().Debug("step cache not written: run has failed steps", "case", tc.descriptor.ID)
		return nil
	}
	if err := tc.deps.Cache.Write(ctx, steps); err != nil {
		return fmt.Errorf("test case %q: write step cache: %w", tc.descriptor.ID, err)
	}
	tc.exec.Logger().Debug("step cache written", "case", tc.descriptor.ID, "steps", len(steps))
	return nil
}

func (tc *TestCase) mustBeOpen(op string) {
	if tc.state != StateStepOpen {
		panic(fmt.Sprintf("testcase: %s called on %q in state %s", op, tc.descriptor.ID, tc.state))
	}
}

package testcase

import (
	"context"
	"errors"

	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/ports"
)

// loggedError is one Logger.Error call.
type loggedError struct {
	msg   string
	stack string
}

type fakeLogger struct {
	errors []loggedError
	debugs []string
}

func (l *fakeLogger) Error(msg string, stack string) {
	l.errors = append(l.errors, loggedError{msg: msg, stack: stack})
}

func (l *fakeLogger) Info(msg string, args ...any) {}

func (l *fakeLogger) Debug(msg string, args ...any) {
	l.debugs = append(l.debugs, msg)
}

type fakeCaseView struct {
	children []model.StepRecord
}

func (v fakeCaseView) Children() []model.StepRecord {
	return v.children
}

// fakeOrchestrator records every call made by the lifecycle.
// CurrentTestStep and CurrentTestCase return the configured values.
type fakeOrchestrator struct {
	calls        []string
	startedCases []model.TestCaseDescriptor
	stepUpdates  []model.StepUpdate
	caseUpdates  []model.CaseUpdate
	startSteps   int
	endSteps     int
	endCases     int

	currentStep model.StepRecord
	children    []model.StepRecord
	log         *fakeLogger
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{log: &fakeLogger{}}
}

var _ ports.Orchestrator = (*fakeOrchestrator)(nil)

func (f *fakeOrchestrator) StartTestCase(d model.TestCaseDescriptor) {
	f.calls = append(f.calls, "StartTestCase")
	f.startedCases = append(f.startedCases, d)
}

func (f *fakeOrchestrator) EndTestCase() {
	f.calls = append(f.calls, "EndTestCase")
	f.endCases++
}

func (f *fakeOrchestrator) StartTestStep() {
	f.calls = append(f.calls, "StartTestStep")
	f.startSteps++
}

func (f *fakeOrchestrator) EndTestStep() {
	f.calls = append(f.calls, "EndTestStep")
	f.endSteps++
}

func (f *fakeOrchestrator) UpdateCurrentTestStep(u model.StepUpdate) {
	f.calls = append(f.calls, "UpdateCurrentTestStep")
	f.stepUpdates = append(f.stepUpdates, u)
}

func (f *fakeOrchestrator) UpdateCurrentTestCase(u model.CaseUpdate) {
	f.calls = append(f.calls, "UpdateCurrentTestCase")
	f.caseUpdates = append(f.caseUpdates, u)
}

func (f *fakeOrchestrator) CurrentTestStep() model.StepRecord {
	return f.currentStep
}

func (f *fakeOrchestrator) CurrentTestCase() ports.CaseView {
	return fakeCaseView{children: f.children}
}

func (f *fakeOrchestrator) Logger() ports.Logger {
	return f.log
}

type fakeScreenshotter struct {
	dirs []string
	err  error
}

func (s *fakeScreenshotter) TakeScreenshotWithTimestamp(ctx context.Context, dir string) (string, error) {
	s.dirs = append(s.dirs, dir)
	if s.err != nil {
		return "", s.err
	}
	return dir + "/shot.png", nil
}

// spyCache is a Cache recording exactly what it is asked to write.
type spyCache struct {
	exists    bool
	steps     []model.StepRecord
	existsErr error
	readErr   error
	writeErr  error

	reads   int
	written [][]model.StepRecord
}

func (c *spyCache) Exists(ctx context.Context) (bool, error) {
	return c.exists, c.existsErr
}

func (c *spyCache) Read(ctx context.Context) ([]model.StepRecord, error) {
	c.reads++
	if c.readErr != nil {
		return nil, c.readErr
	}
	return c.steps, nil
}

func (c *spyCache) Write(ctx context.Context, steps []model.StepRecord) error {
	c.written = append(c.written, steps)
	return c.writeErr
}

var errDummy = errors.New("Dummy")

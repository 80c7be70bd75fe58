package ports

import "github.com/roach88/stepwise/internal/model"

// Orchestrator owns the suite/case/step tree and records timing.
// The test-case lifecycle drives it through this narrow contract.
type Orchestrator interface {
	StartTestCase(d model.TestCaseDescriptor)
	EndTestCase()
	StartTestStep()
	EndTestStep()
	UpdateCurrentTestStep(u model.StepUpdate)
	UpdateCurrentTestCase(u model.CaseUpdate)
	CurrentTestStep() model.StepRecord
	CurrentTestCase() CaseView
	Logger() Logger
}

// CaseView exposes the live children of the current test case.
type CaseView interface {
	Children() []model.StepRecord
}

// Logger is the orchestrator's logger.
type Logger interface {
	Error(msg string, stack string)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

package execution

import (
	"time"

	"github.com/roach88/stepwise/internal/model"
)

// StepNode is a recorded step.
type StepNode struct {
	Record    model.StepRecord
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration returns the step runtime, zero while the step is open.
func (n *StepNode) Duration() time.Duration {
	if n.EndedAt.IsZero() {
		return 0
	}
	return n.EndedAt.Sub(n.StartedAt)
}

// State evaluates the step against its thresholds.
func (n *StepNode) State() model.State {
	return model.Evaluate(n.Duration(), n.Record.WarningTime, n.Record.CriticalTime, n.Record.Err)
}

// CaseNode is a recorded test case.
type CaseNode struct {
	Descriptor model.TestCaseDescriptor
	Err        error
	StartedAt  time.Time
	EndedAt    time.Time
	Steps      []*StepNode
}

// Children returns the step records in execution order.
func (c *CaseNode) Children() []model.StepRecord {
	out := make([]model.StepRecord, len(c.Steps))
	for i, s := range c.Steps {
		out[i] = s.Record
	}
	return out
}

// Duration returns the case runtime, zero while the case is open.
func (c *CaseNode) Duration() time.Duration {
	if c.EndedAt.IsZero() {
		return 0
	}
	return c.EndedAt.Sub(c.StartedAt)
}

// State is the worst of the case's own evaluation and its steps' states.
func (c *CaseNode) State() model.State {
	states := []model.State{
		model.Evaluate(c.Duration(), c.Descriptor.WarningTime, c.Descriptor.CriticalTime, c.Err),
	}
	for _, s := range c.Steps {
		states = append(states, s.State())
	}
	return model.Worst(states...)
}

// FirstError returns the case error or the first step error.
func (c *CaseNode) FirstError() error {
	if c.Err != nil {
		return c.Err
	}
	for _, s := range c.Steps {
		if s.Record.Err != nil {
			return s.Record.Err
		}
	}
	return nil
}

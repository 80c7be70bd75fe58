package execution

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/ports"
)

// Context records one run of a suite.
type Context struct {
	runID   string
	suiteID string
	clock   Clock
	idGen   IDGenerator
	logger  *Logger

	startedAt time.Time
	endedAt   time.Time
	cases     []*CaseNode
	current   *CaseNode
	step      *StepNode
}

var _ ports.Orchestrator = (*Context)(nil)

// Option configures a Context.
type Option func(*Context)

// WithClock overrides the clock. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(ctx *Context) { ctx.clock = c }
}

// WithRunID sets a fixed run id instead of a generated UUIDv7.
func WithRunID(id string) Option {
	return func(ctx *Context) { ctx.runID = id }
}

// WithIDGenerator sets the run id source. Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(ctx *Context) { ctx.idGen = g }
}

// WithLogger sets the slog logger behind Logger(). Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(ctx *Context) { ctx.logger = NewLogger(l) }
}

// New starts recording a run of suiteID.
func New(suiteID string, opts ...Option) *Context {
	ctx := &Context{
		suiteID: suiteID,
		clock:   SystemClock{},
		idGen:   UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(ctx)
	}
	if ctx.runID == "" {
		ctx.runID = ctx.idGen.Generate()
	}
	if ctx.logger == nil {
		ctx.logger = NewLogger(nil)
	}
	ctx.startedAt = ctx.clock.Now()
	return ctx
}

// RunID returns the run identifier.
func (c *Context) RunID() string {
	return c.runID
}

// SuiteID returns the suite identifier.
func (c *Context) SuiteID() string {
	return c.suiteID
}

// StartTestCase opens a new case. Panics if a case is already open.
func (c *Context) StartTestCase(d model.TestCaseDescriptor) {
	if c.current != nil {
		panic(fmt.Sprintf("execution: StartTestCase %q while %q is open", d.ID, c.current.Descriptor.ID))
	}
	c.current = &CaseNode{Descriptor: d, StartedAt: c.clock.Now()}
	c.cases = append(c.cases, c.current)
	c.logger.Debug("test case started", "case", d.ID)
}

// EndTestCase closes the open case. A still-open step is closed too, unless
// it is the unnamed errorless placeholder left by the lifecycle, which is
// dropped from the record.
func (c *Context) EndTestCase() {
	cn := c.requireCase("EndTestCase")
	now := c.clock.Now()
	if c.step != nil {
		if c.step.Record.ID.IsPending() && c.step.Record.Err == nil {
			cn.Steps = cn.Steps[:len(cn.Steps)-1]
		} else {
			c.step.EndedAt = now
		}
		c.step = nil
	}
	cn.EndedAt = now
	c.current = nil
	c.logger.Debug("test case ended", "case", cn.Descriptor.ID, "state", cn.State())
}

// StartTestStep opens a new unnamed step in the open case.
func (c *Context) StartTestStep() {
	cn := c.requireCase("StartTestStep")
	if c.step != nil {
		panic(fmt.Sprintf("execution: StartTestStep in %q while a step is open", cn.Descriptor.ID))
	}
	c.step = &StepNode{Record: model.PendingStep(), StartedAt: c.clock.Now()}
	cn.Steps = append(cn.Steps, c.step)
}

// EndTestStep closes the open step.
func (c *Context) EndTestStep() {
	c.requireStep("EndTestStep")
	c.step.EndedAt = c.clock.Now()
	c.step = nil
}

// UpdateCurrentTestStep applies u to the open step.
func (c *Context) UpdateCurrentTestStep(u model.StepUpdate) {
	c.requireStep("UpdateCurrentTestStep")
	c.step.Record = u.Apply(c.step.Record)
}

// UpdateCurrentTestCase applies u to the open case.
func (c *Context) UpdateCurrentTestCase(u model.CaseUpdate) {
	cn := c.requireCase("UpdateCurrentTestCase")
	if u.ID != nil {
		cn.Descriptor.ID = *u.ID
	}
	if u.WarningTime != nil {
		cn.Descriptor.WarningTime = *u.WarningTime
	}
	if u.CriticalTime != nil {
		cn.Descriptor.CriticalTime = *u.CriticalTime
	}
	if u.Err != nil {
		cn.Err = u.Err
	}
}

// CurrentTestStep returns the open step, or the zero record if none is open.
func (c *Context) CurrentTestStep() model.StepRecord {
	if c.step == nil {
		return model.StepRecord{}
	}
	return c.step.Record
}

// CurrentTestCase returns the open case; an empty view if none is open.
func (c *Context) CurrentTestCase() ports.CaseView {
	if c.current == nil {
		return &CaseNode{}
	}
	return c.current
}

// CaseOpen reports whether a test case is currently open.
func (c *Context) CaseOpen() bool {
	return c.current != nil
}

// Logger returns the run logger.
func (c *Context) Logger() ports.Logger {
	return c.logger
}

// AbortTestCase records a case that failed before it could start,
// e.g. because of a configuration error.
func (c *Context) AbortTestCase(d model.TestCaseDescriptor, err error) {
	if c.current != nil {
		panic(fmt.Sprintf("execution: AbortTestCase %q while %q is open", d.ID, c.current.Descriptor.ID))
	}
	now := c.clock.Now()
	c.cases = append(c.cases, &CaseNode{Descriptor: d, Err: err, StartedAt: now, EndedAt: now})
}

// End marks the run finished.
func (c *Context) End() {
	c.endedAt = c.clock.Now()
}

// Cases returns the recorded cases in execution order.
func (c *Context) Cases() []*CaseNode {
	out := make([]*CaseNode, len(c.cases))
	copy(out, c.cases)
	return out
}

// State is the worst state of all recorded cases.
func (c *Context) State() model.State {
	states := make([]model.State, len(c.cases))
	for i, cn := range c.cases {
		states[i] = cn.State()
	}
	return model.Worst(states...)
}

func (c *Context) requireCase(op string) *CaseNode {
	if c.current == nil {
		panic(fmt.Sprintf("execution: %s without an open test case", op))
	}
	return c.current
}

func (c *Context) requireStep(op string) {
	cn := c.requireCase(op)
	if c.step == nil {
		panic(fmt.Sprintf("execution: %s in %q without an open step", op, cn.Descriptor.ID))
	}
}

package execution

import (
	"time"

	"github.com/roach88/stepwise/internal/model"
)

// Report is a serializable snapshot of a run.
type Report struct {
	RunID     string       `json:"run_id"`
	SuiteID   string       `json:"suite_id"`
	State     model.State  `json:"state"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
	Cases     []CaseReport `json:"cases"`
}

// CaseReport is one test case in a Report.
type CaseReport struct {
	ID         string       `json:"id"`
	State      model.State  `json:"state"`
	StartedAt  time.Time    `json:"started_at"`
	EndedAt    time.Time    `json:"ended_at"`
	DurationMs int64        `json:"duration_ms"`
	WarningMs  int64        `json:"warning_ms"`
	CriticalMs int64        `json:"critical_ms"`
	Error      string       `json:"error,omitempty"`
	Steps      []StepReport `json:"steps"`
}

// StepReport is one step in a CaseReport.
type StepReport struct {
	ID         model.StepID `json:"id"`
	State      model.State  `json:"state"`
	DurationMs int64        `json:"duration_ms"`
	WarningMs  int64        `json:"warning_ms"`
	CriticalMs int64        `json:"critical_ms"`
	Error      string       `json:"error,omitempty"`
}

// Failed reports whether any case errored.
func (r *Report) Failed() bool {
	return r.State.Failed()
}

// Report snapshots the recorded run.
func (c *Context) Report() *Report {
	r := &Report{
		RunID:     c.runID,
		SuiteID:   c.suiteID,
		State:     c.State(),
		StartedAt: c.startedAt,
		EndedAt:   c.endedAt,
		Cases:     make([]CaseReport, 0, len(c.cases)),
	}
	for _, cn := range c.cases {
		cr := CaseReport{
			ID:         cn.Descriptor.ID,
			State:      cn.State(),
			StartedAt:  cn.StartedAt,
			EndedAt:    cn.EndedAt,
			DurationMs: cn.Duration().Milliseconds(),
			WarningMs:  cn.Descriptor.WarningTime.Milliseconds(),
			CriticalMs: cn.Descriptor.CriticalTime.Milliseconds(),
			Error:      errString(cn.FirstError()),
			Steps:      make([]StepReport, 0, len(cn.Steps)),
		}
		for _, sn := range cn.Steps {
			cr.Steps = append(cr.Steps, StepReport{
				ID:         sn.Record.ID,
				State:      sn.State(),
				DurationMs: sn.Duration().Milliseconds(),
				WarningMs:  sn.Record.WarningTime.Milliseconds(),
				CriticalMs: sn.Record.CriticalTime.Milliseconds(),
				Error:      errString(sn.Record.Err),
			})
		}
		r.Cases = append(r.Cases, cr)
	}
	return r
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

package model

import "time"

// Kind tags a node tracked by the execution context.
type Kind string

// Node kinds.
const (
	KindStep  Kind = "step"
	KindCase  Kind = "case"
	KindSuite Kind = "suite"
)

// TestCaseDescriptor identifies a test case and its timing thresholds.
// Folder is the test-case folder; an empty Folder means none was provided.
type TestCaseDescriptor struct {
	ID           string        `json:"id" yaml:"id"`
	Folder       string        `json:"folder,omitempty" yaml:"folder,omitempty"`
	WarningTime  time.Duration `json:"warning_time" yaml:"warning_time"`
	CriticalTime time.Duration `json:"critical_time" yaml:"critical_time"`
}

// StepRecord is one unit of cached or live progress inside a test case.
type StepRecord struct {
	Kind         Kind          `json:"kind"`
	ID           StepID        `json:"id"`
	WarningTime  time.Duration `json:"warning_time"`
	CriticalTime time.Duration `json:"critical_time"`
	Err          error         `json:"-"`
}

// NewStep creates a named step record.
func NewStep(id string, warning, critical time.Duration) StepRecord {
	return StepRecord{
		Kind:         KindStep,
		ID:           Named(id),
		WarningTime:  warning,
		CriticalTime: critical,
	}
}

// PendingStep creates a step record that has not been named yet.
func PendingStep() StepRecord {
	return StepRecord{Kind: KindStep, ID: Pending()}
}

// HasError reports whether any record in steps carries an error.
func HasError(steps []StepRecord) bool {
	for _, s := range steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// StepUpdate is a partial StepRecord applied to the current step.
// Zero-valued fields leave the target untouched.
type StepUpdate struct {
	Kind         Kind
	ID           *StepID
	WarningTime  *time.Duration
	CriticalTime *time.Duration
	Err          error
}

// Apply returns rec with the non-zero fields of u applied.
func (u StepUpdate) Apply(rec StepRecord) StepRecord {
	if u.Kind != "" {
		rec.Kind = u.Kind
	}
	if u.ID != nil {
		rec.ID = *u.ID
	}
	if u.WarningTime != nil {
		rec.WarningTime = *u.WarningTime
	}
	if u.CriticalTime != nil {
		rec.CriticalTime = *u.CriticalTime
	}
	if u.Err != nil {
		rec.Err = u.Err
	}
	return rec
}

// CaseUpdate is a partial TestCaseDescriptor applied to the current case.
type CaseUpdate struct {
	ID           *string
	WarningTime  *time.Duration
	CriticalTime *time.Duration
	Err          error
}

// Ptr returns a pointer to v. Used to build partial updates.
func Ptr[T any](v T) *T {
	return &v
}

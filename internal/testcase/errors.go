package testcase

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/roach88/stepwise/internal/imagepath"
)

// ConfigurationError reports a missing construction input. Fatal to New;
// the test case never starts.
type ConfigurationError = imagepath.ConfigurationError

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// StackTracer is implemented by errors that carry the stack of their origin.
type StackTracer interface {
	StackTrace() string
}

// StepFailure is an error raised by script code inside a step.
// It records the stack at the point of failure.
type StepFailure struct {
	Message string
	Err     error
	stack   string
}

// NewStepFailure creates a StepFailure capturing the caller's stack.
func NewStepFailure(format string, args ...any) *StepFailure {
	return &StepFailure{
		Message: fmt.Sprintf(format, args...),
		stack:   string(debug.Stack()),
	}
}

// WrapStepFailure wraps err as a StepFailure capturing the caller's stack.
func WrapStepFailure(err error, message string) *StepFailure {
	return &StepFailure{Message: message, Err: err, stack: string(debug.Stack())}
}

// Error implements the error interface.
func (e *StepFailure) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error, if any.
func (e *StepFailure) Unwrap() error {
	return e.Err
}

// StackTrace implements StackTracer.
func (e *StepFailure) StackTrace() string {
	return e.stack
}

// stackOf returns the origin stack of err, or the current stack when err
// does not carry one.
func stackOf(err error) string {
	var st StackTracer
	if errors.As(err, &st) {
		if s := st.StackTrace(); s != "" {
			return s
		}
	}
	return string(debug.Stack())
}

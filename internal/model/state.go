package model

import "time"

// State is the evaluated outcome of a step, case or suite.
type State string

// States ordered by severity.
const (
	StateOK       State = "ok"
	StateWarning  State = "warning"
	StateCritical State = "critical"
	StateError    State = "error"
)

var severity = map[State]int{
	StateOK:       0,
	StateWarning:  1,
	StateCritical: 2,
	StateError:    3,
}

// Evaluate derives the state of a node from its runtime and thresholds.
// An error always wins. A zero threshold disables its check.
func Evaluate(d, warning, critical time.Duration, err error) State {
	switch {
	case err != nil:
		return StateError
	case critical > 0 && d > critical:
		return StateCritical
	case warning > 0 && d > warning:
		return StateWarning
	default:
		return StateOK
	}
}

// Worst returns the most severe of the given states, StateOK if none.
func Worst(states ...State) State {
	worst := StateOK
	for _, s := range states {
		if severity[s] > severity[worst] {
			worst = s
		}
	}
	return worst
}

// Failed reports whether the state means the node did not pass.
func (s State) Failed() bool {
	return s == StateError
}

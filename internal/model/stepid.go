package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StepID identifies a step. A step is either Named (possibly with an empty
// name) or Pending, meaning it is still executing and has not been named.
//
// The zero value is Pending.
type StepID struct {
	name  string
	named bool
}

// Named returns the identity of a step called name.
func Named(name string) StepID {
	return StepID{name: name, named: true}
}

// Pending returns the identity of a step that has not been named yet.
func Pending() StepID {
	return StepID{}
}

// IsPending reports whether the step has not been named.
func (id StepID) IsPending() bool {
	return !id.named
}

// Name returns the step name and whether the step is named.
func (id StepID) Name() (string, bool) {
	return id.name, id.named
}

// String returns the name, or "<pending>" for an unnamed step.
func (id StepID) String() string {
	if !id.named {
		return "<pending>"
	}
	return id.name
}

// MarshalJSON encodes a pending id as null and a named id as a string.
func (id StepID) MarshalJSON() ([]byte, error) {
	if !id.named {
		return []byte("null"), nil
	}
	return json.Marshal(id.name)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (id *StepID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = Pending()
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("step id: %w", err)
	}
	*id = Named(name)
	return nil
}

// MarshalYAML encodes a pending id as null and a named id as a string.
func (id StepID) MarshalYAML() (interface{}, error) {
	if !id.named {
		return nil, nil
	}
	return id.name, nil
}

// UnmarshalYAML is the inverse of MarshalYAML.
func (id *StepID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*id = Pending()
		return nil
	}
	var name string
	if err := node.Decode(&name); err != nil {
		return fmt.Errorf("step id: %w", err)
	}
	*id = Named(name)
	return nil
}

package suite

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Suite is a parsed suite definition.
type Suite struct {
	// ID identifies the suite in run history.
	ID string `yaml:"id"`

	// Cases run in file order.
	Cases []Case `yaml:"cases"`

	// BaseDir is the directory of the suite file. Relative case folders
	// resolve against it.
	BaseDir string `yaml:"-"`
}

// Case is one test case of a suite.
type Case struct {
	ID       string   `yaml:"id"`
	Folder   string   `yaml:"folder"`
	Warning  Duration `yaml:"warning,omitempty"`
	Critical Duration `yaml:"critical,omitempty"`

	// ImagePaths are additional image search locations, relative to Folder
	// unless absolute.
	ImagePaths []string `yaml:"image_paths,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is one scripted step.
type Step struct {
	Name     string   `yaml:"name"`
	Warning  Duration `yaml:"warning,omitempty"`
	Critical Duration `yaml:"critical,omitempty"`

	// Sleep delays the end of the step.
	Sleep Duration `yaml:"sleep,omitempty"`

	// Fail, when set, fails the step with this message.
	Fail string `yaml:"fail,omitempty"`
}

// FolderPath returns the case folder resolved against the suite directory.
// An empty folder stays empty.
func (s *Suite) FolderPath(c Case) string {
	if c.Folder == "" || filepath.IsAbs(c.Folder) || s.BaseDir == "" {
		return c.Folder
	}
	return filepath.Join(s.BaseDir, c.Folder)
}

// Duration is a time.Duration written as a Go duration string ("1.5s").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string like \"10s\"", node.Line)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// ValidationError lists every problem found in a suite definition.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return e.Problems[0]
	}
	return fmt.Sprintf("%s (and %d more)", e.Problems[0], len(e.Problems)-1)
}

// IsValidationError returns true if err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// LoadSuite reads and parses a suite YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve suite directory: %w", err)
	}
	s.BaseDir = abs
	return s, nil
}

// Parse decodes and validates a suite definition. BaseDir is left empty.
func Parse(data []byte) (*Suite, error) {
	var s Suite
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(&s); err != nil {
		return nil, fmt.Errorf("invalid suite: %w", err)
	}
	return &s, nil
}

// wholeMillis reports whether d survives the millisecond resolution of the
// step cache and the run store.
func wholeMillis(d Duration) bool {
	return time.Duration(d)%time.Millisecond == 0
}

// Validate checks required fields, case id uniqueness and thresholds.
// A missing case folder is not a definition error; it fails that case
// at run time.
func Validate(s *Suite) error {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.ID == "" {
		addf("id is required")
	}
	if len(s.Cases) == 0 {
		addf("cases list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i, c := range s.Cases {
		if c.ID == "" {
			addf("cases[%d]: id is required", i)
		} else if seen[c.ID] {
			addf("cases[%d]: duplicate case id %q", i, c.ID)
		}
		seen[c.ID] = true

		if c.Warning < 0 || c.Critical < 0 {
			addf("cases[%d]: thresholds must not be negative", i)
		}
		if !wholeMillis(c.Warning) || !wholeMillis(c.Critical) {
			addf("cases[%d]: thresholds must be whole milliseconds", i)
		}
		for j, st := range c.Steps {
			if st.Name == "" {
				addf("cases[%d].steps[%d]: name is required", i, j)
			}
			if st.Warning < 0 || st.Critical < 0 || st.Sleep < 0 {
				addf("cases[%d].steps[%d]: durations must not be negative", i, j)
			}
			if !wholeMillis(st.Warning) || !wholeMillis(st.Critical) {
				addf("cases[%d].steps[%d]: thresholds must be whole milliseconds", i, j)
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

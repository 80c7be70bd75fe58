// Package imagepath computes the ordered directories searched by image matching.
//
// A test case searches, in order, the process working directory, its own
// folder, and any additional paths it names. Relative additional paths are
// resolved against the test-case folder; absolute ones are kept verbatim.
//
// The resolved list is a plain value. The suite runner owns a Registry and
// installs each case's list explicitly before the case runs.
package imagepath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoFolder is the message-carrying cause of a missing test-case folder.
var ErrNoFolder = errors.New("No testcase folder provided")

// ConfigurationError reports a missing or invalid construction input.
type ConfigurationError struct {
	// Field names the offending input.
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// SearchPaths is an ordered list of image search directories.
type SearchPaths []string

// WorkingDir returns the process working directory.
type WorkingDir func() (string, error)

// Resolve builds the search list for a test case in folder.
// Uses os.Getwd for the working directory.
func Resolve(folder string, additional []string) (SearchPaths, error) {
	return ResolveWith(os.Getwd, folder, additional)
}

// ResolveWith is Resolve with an explicit working directory source.
//
// Empty additional entries are skipped so the result never holds
// unresolved paths.
func ResolveWith(wd WorkingDir, folder string, additional []string) (SearchPaths, error) {
	if folder == "" {
		return nil, &ConfigurationError{Field: "folder", Err: ErrNoFolder}
	}
	if wd == nil {
		wd = os.Getwd
	}
	cwd, err := wd()
	if err != nil {
		return nil, &ConfigurationError{Field: "working_dir", Err: fmt.Errorf("resolve working directory: %w", err)}
	}

	paths := SearchPaths{cwd, folder}
	for _, p := range additional {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			paths = append(paths, p)
			continue
		}
		paths = append(paths, filepath.Join(folder, p))
	}
	return paths, nil
}

// Registry holds the search list of the test case currently executing.
//
// Thread-safety: Registry is safe for concurrent use. Installing from two
// test cases at once is still a caller error; the last install wins.
type Registry struct {
	mu    sync.RWMutex
	paths SearchPaths
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Install replaces the current search list with a copy of paths.
func (r *Registry) Install(paths SearchPaths) {
	cp := make(SearchPaths, len(paths))
	copy(cp, paths)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = cp
}

// Paths returns a copy of the current search list.
func (r *Registry) Paths() SearchPaths {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cp := make(SearchPaths, len(r.paths))
	copy(cp, r.paths)
	return cp
}

package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// propertiesSchema constrains a properties snapshot.
const propertiesSchema = `
#Properties: {
	error_screenshot: bool
	screenshot_dir:   string
	log_level:        "debug" | "info" | "warn" | "error"
	cache_backend:    "file" | "sqlite" | "none"

	if error_screenshot {
		screenshot_dir: !=""
	}
}
`

// ValidationError reports properties rejected by the schema.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid properties: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid properties: %d problems, first: %s", len(e.Problems), e.Problems[0])
}

// Validate checks props against the embedded CUE schema.
func Validate(props Properties) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(propertiesSchema).LookupPath(cue.ParsePath("#Properties"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile properties schema: %w", err)
	}

	value := ctx.Encode(map[string]any{
		"error_screenshot": props.ErrorScreenshot,
		"screenshot_dir":   props.ScreenshotDir,
		"log_level":        props.LogLevel,
		"cache_backend":    props.CacheBackend,
	})

	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, e.Error())
		}
		if len(problems) == 0 {
			problems = []string{err.Error()}
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Package config loads the project properties that steer error handling,
// logging and the step cache backend.
//
// Priority: environment variables > properties file > defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileName is the properties file looked up next to a suite definition.
const FileName = "stepwise.yaml"

// Cache backends.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendNone   = "none"
)

// Environment variables overriding file values.
const (
	EnvErrorScreenshot = "STEPWISE_ERROR_SCREENSHOT"
	EnvScreenshotDir   = "STEPWISE_SCREENSHOT_DIR"
	EnvLogLevel        = "STEPWISE_LOG_LEVEL"
	EnvCacheBackend    = "STEPWISE_CACHE_BACKEND"
)

// Properties is the configuration snapshot read by the exception handler
// and the suite runner.
type Properties struct {
	ErrorScreenshot bool   `yaml:"error_screenshot"`
	ScreenshotDir   string `yaml:"screenshot_dir"`
	LogLevel        string `yaml:"log_level"`
	CacheBackend    string `yaml:"cache_backend"`
}

// Default returns the default properties.
func Default() Properties {
	return Properties{
		ErrorScreenshot: true,
		ScreenshotDir:   filepath.Join("_logs", "_screenshots"),
		LogLevel:        "info",
		CacheBackend:    CacheBackendFile,
	}
}

// Load reads properties from path (optional, may be "") and the environment,
// then validates the result. A missing file is not an error.
//
// A relative screenshot directory is resolved against baseDir.
func Load(path, baseDir string) (Properties, error) {
	props := Default()

	if path != "" {
		if err := loadFromFile(&props, path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Properties{}, fmt.Errorf("failed to load properties file: %w", err)
			}
		}
	}

	if err := applyEnv(&props); err != nil {
		return Properties{}, err
	}

	if err := Validate(props); err != nil {
		return Properties{}, err
	}

	if baseDir != "" && props.ScreenshotDir != "" && !filepath.IsAbs(props.ScreenshotDir) {
		props.ScreenshotDir = filepath.Join(baseDir, props.ScreenshotDir)
	}
	return props, nil
}

// loadFromFile overlays the YAML document at path onto props.
func loadFromFile(props *Properties, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject misspelled keys
	if err := decoder.Decode(props); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse properties file %s: %w", path, err)
	}
	return nil
}

func applyEnv(props *Properties) error {
	if v := os.Getenv(EnvErrorScreenshot); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvErrorScreenshot, err)
		}
		props.ErrorScreenshot = b
	}
	if v := os.Getenv(EnvScreenshotDir); v != "" {
		props.ScreenshotDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		props.LogLevel = v
	}
	if v := os.Getenv(EnvCacheBackend); v != "" {
		props.CacheBackend = v
	}
	return nil
}

// Save writes props as YAML to path, creating parent directories.
func (p Properties) Save(path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create properties directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write properties file: %w", err)
	}
	return nil
}

// Static is a factory that always yields the same properties.
type Static struct {
	Props Properties
}

// Properties returns the fixed snapshot.
func (s Static) Properties() Properties {
	return s.Props
}

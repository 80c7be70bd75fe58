package cli

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/suite"
)

// DefaultDatabase is the store opened next to the suite file when the
// sqlite cache backend is active and --db is not given.
const DefaultDatabase = ".stepwise.db"

// loadSuite loads a suite file and reports failures in the formatter.
func loadSuite(f *OutputFormatter, path string) (*suite.Suite, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, f.fail(ExitCommandError, ErrCodeNotFound, "suite file not found: "+path, nil)
	}
	s, err := suite.LoadSuite(path)
	if err != nil {
		var details interface{} = err.Error()
		var ve *suite.ValidationError
		if errors.As(err, &ve) {
			details = ve.Problems
		}
		_ = f.Error(ErrCodeInvalidSuite, "invalid suite "+path, details)
		return nil, WrapExitError(ExitCommandError, ErrCodeInvalidSuite+": invalid suite", err)
	}
	return s, nil
}

// loadProperties reads the properties file. An empty path selects the
// default file next to the suite.
func loadProperties(f *OutputFormatter, path string, s *suite.Suite) (config.Properties, error) {
	if path == "" {
		path = filepath.Join(s.BaseDir, config.FileName)
	}
	props, err := config.Load(path, s.BaseDir)
	if err != nil {
		var details interface{} = err.Error()
		var ve *config.ValidationError
		if errors.As(err, &ve) {
			details = ve.Problems
		}
		_ = f.Error(ErrCodeInvalidProps, "invalid properties "+path, details)
		return config.Properties{}, WrapExitError(ExitCommandError, ErrCodeInvalidProps+": invalid properties", err)
	}
	return props, nil
}

// newLogger builds the run logger. --verbose wins over the configured level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// openExistingStore opens a database that must already exist.
func openExistingStore(f *OutputFormatter, path string) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, f.fail(ExitCommandError, ErrCodeNotFound, "database not found: "+path, nil)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
	}
	return st, nil
}

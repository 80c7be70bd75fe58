package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/execution"
	"github.com/roach88/stepwise/internal/screenshot"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database   string
	Properties string

	// Runner options appended after the defaults (for testing).
	RunnerOptions []suite.Option
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <suite.yaml>",
		Short: "Run a test suite",
		Long: `Run every test case of a suite and report per-case and per-step states.

Properties are read from --props, or from stepwise.yaml next to the suite
file when present. Environment variables override file values.

With --db the run report is stored in the SQLite database; the database
also serves the step cache when cache_backend is sqlite.

Exit codes:
  0 - All cases passed (warnings and critical timings included)
  1 - One or more cases failed, or the run was interrupted
  2 - Command error (invalid paths, invalid suite, etc.)

Examples:
  stepwise run ./suites/checkout.yaml
  stepwise run ./suites/checkout.yaml --db ./stepwise.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for run history and the sqlite cache")
	cmd.Flags().StringVar(&opts.Properties, "props", "", "path to properties file (default: stepwise.yaml next to the suite)")

	return cmd
}

func runSuite(opts *RunOptions, suitePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	s, err := loadSuite(formatter, suitePath)
	if err != nil {
		return err
	}
	props, err := loadProperties(formatter, opts.Properties, s)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), props.LogLevel, opts.Verbose)
	slog.SetDefault(logger)

	dbPath := opts.Database
	if dbPath == "" && props.CacheBackend == config.CacheBackendSQLite {
		dbPath = filepath.Join(s.BaseDir, DefaultDatabase)
	}

	runnerOpts := []suite.Option{
		suite.WithLogger(logger),
		suite.WithScreenshotter(screenshot.New(screenshot.BlankGrabber{Width: 1280, Height: 720}, nil)),
	}
	if dbPath != "" {
		logger.Info("opening database", "path", dbPath)
		st, err := store.Open(dbPath)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeStore, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		runnerOpts = append(runnerOpts, suite.WithStore(st))
	}
	runnerOpts = append(runnerOpts, opts.RunnerOptions...)

	runner, err := suite.NewRunner(props, runnerOpts...)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, "failed to create runner", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, stopping after current case", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	res, runErr := runner.Run(ctx, s)
	if res == nil {
		return formatter.fail(ExitFailure, ErrCodeGeneric, "run failed", runErr)
	}

	if opts.Format == "json" {
		if err := formatter.Success(res.Report); err != nil {
			return err
		}
	} else {
		writeReportText(formatter.Writer, res.Report)
	}

	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		return WrapExitError(ExitFailure, "run interrupted", runErr)
	case runErr != nil:
		return WrapExitError(ExitFailure, "run not persisted", runErr)
	case res.Failed():
		return NewExitError(ExitFailure, fmt.Sprintf("suite %s failed", s.ID))
	}
	return nil
}

// writeReportText renders a run report for humans.
func writeReportText(w io.Writer, r *execution.Report) {
	fmt.Fprintf(w, "Suite %s (run %s)\n", r.SuiteID, r.RunID)
	counts := map[string]int{}
	for _, c := range r.Cases {
		counts[string(c.State)]++
		fmt.Fprintf(w, "%s %s (%dms)\n", stateLabel(c.State), c.ID, c.DurationMs)
		for _, st := range c.Steps {
			fmt.Fprintf(w, "    %s %s (%dms)\n", stateLabel(st.State), st.ID, st.DurationMs)
			if st.Error != "" {
				fmt.Fprintf(w, "      %s\n", st.Error)
			}
		}
		if len(c.Steps) == 0 && c.Error != "" {
			fmt.Fprintf(w, "    %s\n", c.Error)
		}
	}
	fmt.Fprintf(w, "\n%d cases: %d ok, %d warning, %d critical, %d error\n",
		len(r.Cases), counts["ok"], counts["warning"], counts["critical"], counts["error"])
	fmt.Fprintf(w, "Result: %s\n", stateLabel(r.State))
}

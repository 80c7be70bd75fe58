package suite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/execution"
	"github.com/roach88/stepwise/internal/imagepath"
	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/ports"
	"github.com/roach88/stepwise/internal/stepcache"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/testcase"
)

// ErrStoreRequired is returned by NewRunner when the sqlite cache backend
// is selected without a store.
var ErrStoreRequired = errors.New("cache backend sqlite requires a store")

// Runner executes suites.
//
// Thread-safety: a Runner runs one suite at a time. Cases within a suite
// execute sequentially.
type Runner struct {
	props   config.Properties
	store   *store.Store
	shots   ports.Screenshotter
	logger  *slog.Logger
	clock   execution.Clock
	ids     execution.IDGenerator
	sleep   Sleeper
	wd      imagepath.WorkingDir
	scripts map[string]Script
	images  *imagepath.Registry
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore persists run reports and serves the sqlite cache backend.
func WithStore(s *store.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithScreenshotter sets the error screenshot collaborator.
func WithScreenshotter(s ports.Screenshotter) Option {
	return func(r *Runner) { r.shots = s }
}

// WithLogger sets the logger. Defaults to discard.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithClock sets the clock of recorded runs.
func WithClock(c execution.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithIDGenerator sets the run id source.
func WithIDGenerator(g execution.IDGenerator) Option {
	return func(r *Runner) { r.ids = g }
}

// WithSleeper replaces the wall-clock sleep of scripted steps.
func WithSleeper(s Sleeper) Option {
	return func(r *Runner) { r.sleep = s }
}

// WithWorkingDir overrides the working directory used for image paths.
func WithWorkingDir(wd imagepath.WorkingDir) Option {
	return func(r *Runner) { r.wd = wd }
}

// WithScript replaces the scripted steps of caseID with s.
func WithScript(caseID string, s Script) Option {
	return func(r *Runner) { r.scripts[caseID] = s }
}

// NewRunner creates a runner for the given properties.
func NewRunner(props config.Properties, opts ...Option) (*Runner, error) {
	r := &Runner{
		props:   props,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		scripts: make(map[string]Script),
		images:  imagepath.NewRegistry(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.props.CacheBackend == config.CacheBackendSQLite && r.store == nil {
		return nil, ErrStoreRequired
	}
	return r, nil
}

// Images returns the registry holding the active case's image paths.
func (r *Runner) Images() *imagepath.Registry {
	return r.images
}

// Result is the outcome of a suite run.
type Result struct {
	Report *execution.Report

	// CacheErrors holds step cache write failures. They do not change
	// case states.
	CacheErrors []error
}

// Failed reports whether any case failed.
func (r *Result) Failed() bool {
	return r.Report.Failed()
}

// Run executes every case of s and returns the run report.
//
// Case failures are recorded in the report, not returned. The error is
// non-nil when ctx was cancelled before all cases ran or the report could
// not be persisted; the partial result is returned alongside.
func (r *Runner) Run(ctx context.Context, s *Suite) (*Result, error) {
	opts := []execution.Option{execution.WithLogger(r.logger)}
	if r.clock != nil {
		opts = append(opts, execution.WithClock(r.clock))
	}
	if r.ids != nil {
		opts = append(opts, execution.WithIDGenerator(r.ids))
	}
	run := execution.New(s.ID, opts...)
	r.logger.Info("suite started", "suite", s.ID, "run", run.RunID(), "cases", len(s.Cases))

	res := &Result{}
	var runErr error
	for _, c := range s.Cases {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("suite %s interrupted: %w", s.ID, err)
			break
		}
		if err := r.runCase(ctx, run, s, c); err != nil {
			res.CacheErrors = append(res.CacheErrors, err)
		}
	}
	run.End()
	res.Report = run.Report()
	r.logger.Info("suite finished", "suite", s.ID, "run", run.RunID(), "state", res.Report.State)

	if r.store != nil {
		// Persist even an interrupted run.
		if err := r.store.WriteRun(context.WithoutCancel(ctx), res.Report); err != nil {
			return res, errors.Join(runErr, err)
		}
	}
	return res, runErr
}

// runCase drives one case. The returned error is a cache write failure.
func (r *Runner) runCase(ctx context.Context, run *execution.Context, s *Suite, c Case) error {
	d := model.TestCaseDescriptor{
		ID:           c.ID,
		Folder:       s.FolderPath(c),
		WarningTime:  c.Warning.Std(),
		CriticalTime: c.Critical.Std(),
	}
	deps := testcase.Deps{
		Cache:       r.cacheFor(d),
		Properties:  config.Static{Props: r.props},
		Screenshots: r.shots,
		Images:      r.images,
		WorkingDir:  r.wd,
	}

	tc, err := testcase.New(ctx, run, deps, d, c.ImagePaths...)
	if err != nil {
		r.logger.Error("test case not started", "case", c.ID, "error", err)
		if run.CaseOpen() {
			run.UpdateCurrentTestCase(model.CaseUpdate{Err: err})
			run.EndTestCase()
		} else {
			run.AbortTestCase(d, err)
		}
		return nil
	}

	r.logger.Debug("test case started", "case", c.ID, "image_paths", tc.ImagePaths())
	if err := r.scriptFor(c).Run(ctx, tc); err != nil {
		tc.HandleException(ctx, err)
	}
	saveErr := tc.SaveResult(ctx)
	if saveErr != nil {
		r.logger.Warn("step cache not saved", "case", c.ID, "error", saveErr)
	}
	run.EndTestCase()
	return saveErr
}

func (r *Runner) cacheFor(d model.TestCaseDescriptor) stepcache.Cache {
	switch r.props.CacheBackend {
	case config.CacheBackendSQLite:
		return r.store.CacheFor(d.ID)
	case config.CacheBackendNone:
		return nil
	default:
		if d.Folder == "" {
			return nil
		}
		return stepcache.NewFileCache(d.Folder, d.ID)
	}
}

func (r *Runner) scriptFor(c Case) Script {
	if s, ok := r.scripts[c.ID]; ok {
		return s
	}
	return StepScript{Steps: c.Steps, Sleep: r.sleep}
}

package suite

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/config"
	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/stepcache"
	"github.com/roach88/stepwise/internal/store"
	"github.com/roach88/stepwise/internal/testcase"
	"github.com/roach88/stepwise/internal/testutil"
)

type recordingScreenshotter struct {
	mu   sync.Mutex
	dirs []string
}

func (r *recordingScreenshotter) TakeScreenshotWithTimestamp(ctx context.Context, dir string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = append(r.dirs, dir)
	return filepath.Join(dir, "shot.png"), nil
}

func quietProps() config.Properties {
	props := config.Default()
	props.ErrorScreenshot = false
	return props
}

func newTestRunner(t *testing.T, props config.Properties, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithClock(testutil.NewDeterministicClock(time.Second)),
		WithIDGenerator(testutil.NewFixedIDGenerator("run")),
		WithSleeper(func(context.Context, time.Duration) error { return nil }),
		WithWorkingDir(func() (string, error) { return "/work", nil }),
	}
	r, err := NewRunner(props, append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func threeStepSuite(t *testing.T) *Suite {
	t.Helper()
	s, err := Parse([]byte(`
id: flow-suite
cases:
  - id: flow
    folder: flow
    steps:
      - name: a
        warning: 1s
      - name: b
        warning: 2s
        critical: 3s
      - name: c
`))
	require.NoError(t, err)
	s.BaseDir = t.TempDir()
	return s
}

func TestNewRunner_SQLiteRequiresStore(t *testing.T) {
	props := quietProps()
	props.CacheBackend = config.CacheBackendSQLite

	_, err := NewRunner(props)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestRunner_WritesFileCacheOnSuccess(t *testing.T) {
	s := threeStepSuite(t)
	r := newTestRunner(t, quietProps())

	res, err := r.Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, res.Failed())

	steps, err := stepcache.NewFileCache(filepath.Join(s.BaseDir, "flow"), "flow").Read(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(steps), 3)
	assert.Equal(t, model.Named("a"), steps[0].ID)
	assert.Equal(t, model.Named("b"), steps[1].ID)
	assert.Equal(t, 3*time.Second, steps[1].CriticalTime)
	assert.Equal(t, model.Named("c"), steps[2].ID)
}

func TestRunner_ReconcilesFailureFromPreviousRun(t *testing.T) {
	s := threeStepSuite(t)

	_, err := newTestRunner(t, quietProps()).Run(context.Background(), s)
	require.NoError(t, err)

	failing := ScriptFunc(func(ctx context.Context, tc *testcase.TestCase) error {
		tc.EndOfStep("a", time.Second, 0)
		return testcase.NewStepFailure("element not found")
	})
	res, err := newTestRunner(t, quietProps(), WithScript("flow", failing)).Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, res.Failed())

	steps := res.Report.Cases[0].Steps
	require.Len(t, steps, 2)
	assert.Equal(t, model.Named("a"), steps[0].ID)
	assert.Equal(t, model.Named("b"), steps[1].ID)
	assert.Equal(t, int64(2000), steps[1].WarningMs)
	assert.Equal(t, int64(3000), steps[1].CriticalMs)
	assert.Equal(t, model.StateError, steps[1].State)
	assert.Equal(t, "element not found", steps[1].Error)

	// The failed run leaves the previous entry in place.
	cached, err := stepcache.NewFileCache(filepath.Join(s.BaseDir, "flow"), "flow").Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Named("c"), cached[2].ID)
}

func TestRunner_NoCacheBackend(t *testing.T) {
	s := threeStepSuite(t)
	props := quietProps()
	props.CacheBackend = config.CacheBackendNone

	_, err := newTestRunner(t, props).Run(context.Background(), s)
	require.NoError(t, err)

	_, statErr := os.Stat(stepcache.DocumentPath(filepath.Join(s.BaseDir, "flow"), "flow"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunner_SQLiteBackendAndRunHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "stepwise.db"))
	require.NoError(t, err)
	defer st.Close()

	s := threeStepSuite(t)
	props := quietProps()
	props.CacheBackend = config.CacheBackendSQLite

	res, err := newTestRunner(t, props, WithStore(st)).Run(context.Background(), s)
	require.NoError(t, err)

	ok, err := st.CacheFor("flow").Exists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run", runs[0].ID)
	assert.Equal(t, "flow-suite", runs[0].SuiteID)

	stored, err := st.ReadRun(context.Background(), "run")
	require.NoError(t, err)
	assert.Equal(t, len(res.Report.Cases[0].Steps), len(stored.Cases[0].Steps))
}

func TestRunner_CorruptCacheFailsCaseAndContinues(t *testing.T) {
	s, err := Parse([]byte(`
id: s
cases:
  - id: broken
    folder: broken
    steps: [{name: a}]
  - id: fine
    folder: fine
    steps: [{name: a}]
`))
	require.NoError(t, err)
	s.BaseDir = t.TempDir()
	doc := stepcache.DocumentPath(filepath.Join(s.BaseDir, "broken"), "broken")
	require.NoError(t, os.MkdirAll(filepath.Dir(doc), 0755))
	require.NoError(t, os.WriteFile(doc, []byte("{not yaml"), 0644))

	res, err := newTestRunner(t, quietProps()).Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, res.Report.Cases, 2)
	assert.Equal(t, model.StateError, res.Report.Cases[0].State)
	assert.Contains(t, res.Report.Cases[0].Error, "read step cache")
	assert.Empty(t, res.Report.Cases[0].Steps)
	assert.Equal(t, model.StateOK, res.Report.Cases[1].State)
}

func TestRunner_CasesSharingFolderKeepSeparateCaches(t *testing.T) {
	s, err := Parse([]byte(`
id: s
cases:
  - id: a
    folder: common
    steps: [{name: a1}, {name: a2}]
  - id: b
    folder: common
    steps: [{name: b1}]
`))
	require.NoError(t, err)
	s.BaseDir = t.TempDir()

	for run := 0; run < 2; run++ {
		res, err := newTestRunner(t, quietProps()).Run(context.Background(), s)
		require.NoError(t, err)
		require.Empty(t, res.CacheErrors)
		require.Len(t, res.Report.Cases, 2)
		for _, c := range res.Report.Cases {
			assert.Equal(t, model.StateOK, c.State, "run %d case %s: %s", run, c.ID, c.Error)
		}
	}

	folder := filepath.Join(s.BaseDir, "common")
	a, err := stepcache.NewFileCache(folder, "a").Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Named("a2"), a[1].ID)
	b, err := stepcache.NewFileCache(folder, "b").Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.Named("b1"), b[0].ID)
}

func TestRunner_ErrorScreenshotAndLog(t *testing.T) {
	s, err := Parse([]byte(`
id: s
cases:
  - id: shot
    folder: shot
    steps:
      - name: boom
        fail: kaputt
`))
	require.NoError(t, err)
	s.BaseDir = t.TempDir()

	var logs bytes.Buffer
	shots := &recordingScreenshotter{}
	props := config.Default()
	props.ScreenshotDir = filepath.Join(s.BaseDir, "shots")

	r := newTestRunner(t, props,
		WithScreenshotter(shots),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	_, err = r.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []string{props.ScreenshotDir}, shots.dirs)
	assert.Contains(t, logs.String(), "Error in test case shot: kaputt")
}

func TestRunner_InstallsImagePaths(t *testing.T) {
	s, err := Parse([]byte(`
id: s
cases:
  - id: imgs
    folder: imgs
    image_paths: [icons, /shared]
    steps: [{name: a}]
`))
	require.NoError(t, err)
	s.BaseDir = "/suite"

	props := quietProps()
	props.CacheBackend = config.CacheBackendNone
	r := newTestRunner(t, props)
	_, err = r.Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []string{"/work", "/suite/imgs", "/suite/imgs/icons", "/shared"}, []string(r.Images().Paths()))
}

func TestRunner_CancelledContext(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "stepwise.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestRunner(t, quietProps(), WithStore(st)).Run(ctx, threeStepSuite(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, res.Report.Cases)

	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStepScript_StopsAtFailure(t *testing.T) {
	var slept []time.Duration
	script := StepScript{
		Steps: []Step{
			{Name: "one", Sleep: Duration(time.Second)},
			{Name: "two", Fail: "nope"},
			{Name: "three"},
		},
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	s := &Suite{ID: "s", Cases: []Case{{ID: "c", Folder: "c", Steps: script.Steps}}, BaseDir: t.TempDir()}
	props := quietProps()
	props.CacheBackend = config.CacheBackendNone
	res, err := newTestRunner(t, props, WithScript("c", script)).Run(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{time.Second}, slept)
	steps := res.Report.Cases[0].Steps
	require.Len(t, steps, 2)
	assert.Equal(t, model.Named("one"), steps[0].ID)
	assert.Equal(t, "nope", steps[1].Error)
}

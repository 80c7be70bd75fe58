package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/suite"
	"github.com/roach88/stepwise/internal/testutil"
)

const passingSuite = `
id: smoke
cases:
  - id: login
    folder: login
    steps:
      - name: open
      - name: submit
`

const failingSuite = `
id: smoke
cases:
  - id: login
    folder: login
    steps:
      - name: open
      - name: submit
        fail: button not found
`

// writeSuite writes a suite file (and an optional properties file) into a
// fresh directory and returns the suite path.
func writeSuite(t *testing.T, content, props string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	if props != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stepwise.yaml"), []byte(props), 0644))
	}
	return path
}

// deterministicRunner pins clock, run id and sleeps.
func deterministicRunner(runID string) []suite.Option {
	clock := testutil.NewDeterministicClock(time.Second)
	return []suite.Option{
		suite.WithClock(clock),
		suite.WithIDGenerator(testutil.NewFixedIDGenerator(runID)),
		suite.WithSleeper(func(_ context.Context, d time.Duration) error {
			clock.Advance(d)
			return nil
		}),
	}
}

// execRun runs the run command and returns stdout, stderr and the error.
func execRun(t *testing.T, format string, args []string, extra ...suite.Option) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRunCommand(&RunOptions{
		RootOptions:   &RootOptions{Format: format},
		RunnerOptions: extra,
	})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/stepcache"
	"github.com/roach88/stepwise/internal/store"
)

func execCache(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCacheCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func cachedSteps() []model.StepRecord {
	return []model.StepRecord{
		model.NewStep("open", 2*time.Second, 0),
		model.NewStep("submit", 0, 5*time.Second),
		model.PendingStep(),
	}
}

func TestCacheShow_Folder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, stepcache.NewFileCache(dir, "login").Write(context.Background(), cachedSteps()))

	out, err := execCache(t, "text", "show", "login", "--folder", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Case login")
	assert.Contains(t, out, "1. open (warning 2000ms, critical 0ms)")
	assert.Contains(t, out, "3. <pending>")
}

func TestCacheShow_DatabaseJSON(t *testing.T) {
	db := filepath.Join(t.TempDir(), "stepwise.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.CacheFor("login").Write(context.Background(), cachedSteps()))
	st.Close()

	out, err := execCache(t, "json", "show", "login", "--db", db)
	require.NoError(t, err)

	var resp struct {
		Status string    `json:"status"`
		Data   CacheView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "login", resp.Data.CaseID)
	require.Len(t, resp.Data.Steps, 3)
	assert.Equal(t, model.Named("submit"), resp.Data.Steps[1].ID)
	assert.True(t, resp.Data.Steps[2].ID.IsPending())
}

func TestCacheShow_Miss(t *testing.T) {
	_, err := execCache(t, "text", "show", "login", "--folder", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

func TestCacheShow_RequiresOneSource(t *testing.T) {
	_, err := execCache(t, "text", "show", "login")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execCache(t, "text", "show", "login", "--folder", "a", "--db", "b")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCacheClear(t *testing.T) {
	dir := t.TempDir()
	fc := stepcache.NewFileCache(dir, "login")
	require.NoError(t, fc.Write(context.Background(), cachedSteps()))

	out, err := execCache(t, "text", "clear", "login", "--folder", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared for login")

	ok, err := fc.Exists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheList(t *testing.T) {
	db := filepath.Join(t.TempDir(), "stepwise.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.CacheFor("login").Write(context.Background(), cachedSteps()))
	st.Close()

	out, err := execCache(t, "text", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "login  3 steps")
}

func TestCacheList_MissingDatabase(t *testing.T) {
	_, err := execCache(t, "text", "list", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
}

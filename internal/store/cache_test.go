package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/stepcache"
)

var fixedWrittenAt = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func sampleSteps() []model.StepRecord {
	return []model.StepRecord{
		model.NewStep("open", 2*time.Second, 5*time.Second),
		model.NewStep("login", time.Second, 0),
		model.PendingStep(),
	}
}

func TestCaseCache_MissingEntry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := s.CacheFor("login")

	ok, err := c.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if ok {
		t.Error("Exists() = true for empty store")
	}
	if _, err := c.Read(ctx); !errors.Is(err, stepcache.ErrCacheMiss) {
		t.Errorf("Read() error = %v, want ErrCacheMiss", err)
	}
}

func TestCaseCache_WriteRead(t *testing.T) {
	s := createTestStore(t).WithClock(func() time.Time { return fixedWrittenAt })
	ctx := context.Background()
	c := s.CacheFor("login")

	if err := c.Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	ok, err := c.Exists(ctx)
	if err != nil || !ok {
		t.Fatalf("Exists() = %v, %v; want true, nil", ok, err)
	}

	got, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	want := sampleSteps()
	if len(got) != len(want) {
		t.Fatalf("Read() returned %d steps, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i].ID {
			t.Errorf("step %d id = %v, want %v", i, got[i].ID, want[i].ID)
		}
		if got[i].WarningTime != want[i].WarningTime || got[i].CriticalTime != want[i].CriticalTime {
			t.Errorf("step %d thresholds = %v/%v, want %v/%v",
				i, got[i].WarningTime, got[i].CriticalTime, want[i].WarningTime, want[i].CriticalTime)
		}
	}

	entry, err := c.ReadEntry(ctx)
	if err != nil {
		t.Fatalf("ReadEntry() failed: %v", err)
	}
	if !entry.WrittenAt.Equal(fixedWrittenAt) {
		t.Errorf("WrittenAt = %v, want %v", entry.WrittenAt, fixedWrittenAt)
	}
	digest, _ := stepcache.Digest("login", stepcache.ToEntryRecords(sampleSteps()))
	if entry.Digest != digest {
		t.Errorf("Digest = %s, want %s", entry.Digest, digest)
	}
}

func TestCaseCache_DigestMatchesFileCache(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	fc := stepcache.NewFileCache(t.TempDir(), "login")
	if err := fc.Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("file Write() failed: %v", err)
	}
	if err := s.CacheFor("login").Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("sqlite Write() failed: %v", err)
	}

	fe, err := fc.ReadEntry(ctx)
	if err != nil {
		t.Fatalf("file ReadEntry() failed: %v", err)
	}
	se, err := s.CacheFor("login").ReadEntry(ctx)
	if err != nil {
		t.Fatalf("sqlite ReadEntry() failed: %v", err)
	}
	if fe.Digest != se.Digest {
		t.Errorf("digests differ: file %s, sqlite %s", fe.Digest, se.Digest)
	}
}

func TestCaseCache_WriteReplaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := s.CacheFor("login")

	if err := c.Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("first Write() failed: %v", err)
	}
	if err := c.Write(ctx, []model.StepRecord{model.NewStep("only", 0, 0)}); err != nil {
		t.Fatalf("second Write() failed: %v", err)
	}

	got, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != model.Named("only") {
		t.Errorf("Read() = %v, want single step \"only\"", got)
	}
}

func TestCaseCache_EmptyStepList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := s.CacheFor("empty")

	if err := c.Write(ctx, nil); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	got, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Read() = %v, want empty", got)
	}
}

func TestCaseCache_TamperedRowsAreCorrupt(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := s.CacheFor("login")

	if err := c.Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE step_cache SET step_id = 'other' WHERE position = 1`); err != nil {
		t.Fatalf("tamper failed: %v", err)
	}

	_, err := c.Read(ctx)
	if !stepcache.IsCorrupt(err) {
		t.Errorf("Read() error = %v, want CorruptError", err)
	}
}

func TestCaseCache_IsolatedPerCase(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.CacheFor("a").Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	ok, err := s.CacheFor("b").Exists(ctx)
	if err != nil {
		t.Fatalf("Exists() failed: %v", err)
	}
	if ok {
		t.Error("entry of case a visible through case b")
	}
}

func TestClearCache(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := s.CacheFor("login")

	if err := c.Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s.ClearCache(ctx, "login"); err != nil {
		t.Fatalf("ClearCache() failed: %v", err)
	}
	if ok, _ := c.Exists(ctx); ok {
		t.Error("entry still exists after ClearCache")
	}

	var rows int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM step_cache`).Scan(&rows); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if rows != 0 {
		t.Errorf("step_cache has %d rows after clear, want 0", rows)
	}

	if err := s.ClearCache(ctx, "never-written"); err != nil {
		t.Errorf("ClearCache() on missing entry: %v", err)
	}
}

func TestListCachedCases(t *testing.T) {
	s := createTestStore(t).WithClock(func() time.Time { return fixedWrittenAt })
	ctx := context.Background()

	if err := s.CacheFor("zeta").Write(ctx, sampleSteps()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s.CacheFor("alpha").Write(ctx, sampleSteps()[:1]); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := s.CacheFor("empty").Write(ctx, nil); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	got, err := s.ListCachedCases(ctx)
	if err != nil {
		t.Fatalf("ListCachedCases() failed: %v", err)
	}
	want := []struct {
		id    string
		steps int
	}{{"alpha", 1}, {"empty", 0}, {"zeta", 3}}
	if len(got) != len(want) {
		t.Fatalf("ListCachedCases() returned %d entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].CaseID != w.id || got[i].Steps != w.steps {
			t.Errorf("entry %d = %s/%d, want %s/%d", i, got[i].CaseID, got[i].Steps, w.id, w.steps)
		}
		if !got[i].WrittenAt.Equal(fixedWrittenAt) {
			t.Errorf("entry %d WrittenAt = %v", i, got[i].WrittenAt)
		}
	}
}

package stepcache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stepwise/internal/model"
)

// DirName is the directory inside a test-case folder holding one cache
// document per case id.
const DirName = ".stepcache"

// DocumentPath returns the cache document of caseID under folder. Cases
// sharing a folder get separate documents.
func DocumentPath(folder, caseID string) string {
	return filepath.Join(folder, DirName, url.PathEscape(caseID)+".yaml")
}

// FileCache stores a case's entry as a YAML document in its folder.
type FileCache struct {
	path   string
	caseID string
	now    Clock
}

// NewFileCache creates a cache for caseID stored in folder.
func NewFileCache(folder, caseID string) *FileCache {
	return &FileCache{
		path:   DocumentPath(folder, caseID),
		caseID: caseID,
		now:    time.Now,
	}
}

// WithClock overrides the clock used to stamp written entries.
func (c *FileCache) WithClock(now Clock) *FileCache {
	c.now = now
	return c
}

// Path returns the document location.
func (c *FileCache) Path() string {
	return c.path
}

// Exists implements Cache.
func (c *FileCache) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(c.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat step cache: %w", err)
}

// Read implements Cache. The digest is verified before records are returned.
func (c *FileCache) Read(ctx context.Context) ([]model.StepRecord, error) {
	entry, err := c.ReadEntry(ctx)
	if err != nil {
		return nil, err
	}
	return FromEntryRecords(entry.Steps), nil
}

// ReadEntry returns the raw persisted entry after verifying it.
func (c *FileCache) ReadEntry(ctx context.Context) (*Entry, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read step cache: %w", err)
	}

	var entry Entry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, &CorruptError{CaseID: c.caseID, Location: c.path, Reason: err.Error()}
	}
	if entry.Version != model.CacheFormatVersion {
		return nil, &CorruptError{CaseID: c.caseID, Location: c.path, Reason: fmt.Sprintf("unsupported version %q", entry.Version)}
	}
	if entry.CaseID != c.caseID {
		return nil, &CorruptError{CaseID: c.caseID, Location: c.path, Reason: fmt.Sprintf("entry belongs to case %q", entry.CaseID)}
	}
	digest, err := Digest(entry.CaseID, entry.Steps)
	if err != nil {
		return nil, fmt.Errorf("read step cache: %w", err)
	}
	if digest != entry.Digest {
		return nil, &CorruptError{CaseID: c.caseID, Location: c.path, Reason: "digest mismatch"}
	}
	return &entry, nil
}

// Write implements Cache. The document is written to a temporary file in
// the same folder and renamed into place.
func (c *FileCache) Write(ctx context.Context, steps []model.StepRecord) error {
	recs := ToEntryRecords(steps)
	digest, err := Digest(c.caseID, recs)
	if err != nil {
		return fmt.Errorf("write step cache: %w", err)
	}
	entry := Entry{
		Version:   model.CacheFormatVersion,
		CaseID:    c.caseID,
		WrittenAt: c.now().UTC(),
		Digest:    digest,
		Steps:     recs,
	}
	data, err := yaml.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("write step cache: marshal: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("write step cache: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*")
	if err != nil {
		return fmt.Errorf("write step cache: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write step cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write step cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("write step cache: %w", err)
	}
	return nil
}

// Clear removes the document. Clearing a missing entry is not an error.
func (c *FileCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear step cache: %w", err)
	}
	return nil
}

// Package stepcache persists the steps of a test case's last fully
// successful run.
//
// A subsequent run reads the entry back so that a failure in a step that was
// never named can still be reported under the name and thresholds the step
// had in the previous good run.
//
// Entries are written whole. A Write replaces the prior entry for the case;
// implementations never leave a partial entry behind.
package stepcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/stepwise/internal/model"
)

// ErrCacheMiss is returned by Read when no entry exists. It marks the
// normal "no history" condition, not a failure.
var ErrCacheMiss = errors.New("step cache: no entry")

// Cache is the persistence contract consumed by the test-case lifecycle.
// One Cache instance serves one test case.
type Cache interface {
	// Exists reports whether a prior successful run was persisted.
	Exists(ctx context.Context) (bool, error)

	// Read returns the previously committed steps in execution order.
	Read(ctx context.Context) ([]model.StepRecord, error)

	// Write persists steps, replacing any prior entry.
	Write(ctx context.Context, steps []model.StepRecord) error
}

// CorruptError reports a persisted entry that failed its integrity check.
type CorruptError struct {
	CaseID   string
	Location string
	Reason   string
}

// Error implements the error interface.
func (e *CorruptError) Error() string {
	return fmt.Sprintf("step cache for %q at %s is corrupt: %s", e.CaseID, e.Location, e.Reason)
}

// IsCorrupt returns true if err is or wraps a CorruptError.
func IsCorrupt(err error) bool {
	var ce *CorruptError
	return errors.As(err, &ce)
}

// Entry is the persisted form of a cache entry.
type Entry struct {
	Version   string        `yaml:"version"`
	CaseID    string        `yaml:"case_id"`
	WrittenAt time.Time     `yaml:"written_at"`
	Digest    string        `yaml:"digest"`
	Steps     []EntryRecord `yaml:"steps"`
}

// EntryRecord is one persisted step. Only identity and thresholds are kept,
// at millisecond resolution.
type EntryRecord struct {
	ID         model.StepID `yaml:"id" json:"id"`
	WarningMs  int64        `yaml:"warning_ms" json:"warning_ms"`
	CriticalMs int64        `yaml:"critical_ms" json:"critical_ms"`
}

// ToEntryRecords strips steps down to their persisted fields.
func ToEntryRecords(steps []model.StepRecord) []EntryRecord {
	out := make([]EntryRecord, len(steps))
	for i, s := range steps {
		out[i] = EntryRecord{
			ID:         s.ID,
			WarningMs:  s.WarningTime.Milliseconds(),
			CriticalMs: s.CriticalTime.Milliseconds(),
		}
	}
	return out
}

// FromEntryRecords rebuilds step records from their persisted form.
func FromEntryRecords(recs []EntryRecord) []model.StepRecord {
	out := make([]model.StepRecord, len(recs))
	for i, r := range recs {
		out[i] = model.StepRecord{
			Kind:         model.KindStep,
			ID:           r.ID,
			WarningTime:  time.Duration(r.WarningMs) * time.Millisecond,
			CriticalTime: time.Duration(r.CriticalMs) * time.Millisecond,
		}
	}
	return out
}

// Clock returns the current time. Used to stamp written entries.
type Clock func() time.Time

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/stepwise/internal/model"
	"github.com/roach88/stepwise/internal/stepcache"
)

// CaseCache is a stepcache.Cache backed by the store for one test case.
type CaseCache struct {
	s      *Store
	caseID string
}

var _ stepcache.Cache = (*CaseCache)(nil)

// CacheFor returns the step cache of caseID.
func (s *Store) CacheFor(caseID string) *CaseCache {
	return &CaseCache{s: s, caseID: caseID}
}

// Exists implements stepcache.Cache.
func (c *CaseCache) Exists(ctx context.Context) (bool, error) {
	var n int
	err := c.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM step_cache_entries WHERE case_id = ?`, c.caseID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query step cache: %w", err)
	}
	return n > 0, nil
}

// Read implements stepcache.Cache. Rows are verified against the stored
// digest; a mismatch yields a *stepcache.CorruptError.
func (c *CaseCache) Read(ctx context.Context) ([]model.StepRecord, error) {
	entry, err := c.ReadEntry(ctx)
	if err != nil {
		return nil, err
	}
	return stepcache.FromEntryRecords(entry.Steps), nil
}

// ReadEntry returns the verified persisted entry.
func (c *CaseCache) ReadEntry(ctx context.Context) (*stepcache.Entry, error) {
	var digest, writtenAt string
	err := c.s.db.QueryRowContext(ctx,
		`SELECT digest, written_at FROM step_cache_entries WHERE case_id = ?`, c.caseID,
	).Scan(&digest, &writtenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, stepcache.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("query step cache: %w", err)
	}

	recs, err := c.readRecords(ctx)
	if err != nil {
		return nil, err
	}
	want, err := stepcache.Digest(c.caseID, recs)
	if err != nil {
		return nil, fmt.Errorf("read step cache: %w", err)
	}
	if want != digest {
		return nil, &stepcache.CorruptError{CaseID: c.caseID, Location: "sqlite", Reason: "digest mismatch"}
	}
	at, err := parseTime(writtenAt)
	if err != nil {
		return nil, &stepcache.CorruptError{CaseID: c.caseID, Location: "sqlite", Reason: err.Error()}
	}
	return &stepcache.Entry{
		Version:   model.CacheFormatVersion,
		CaseID:    c.caseID,
		WrittenAt: at,
		Digest:    digest,
		Steps:     recs,
	}, nil
}

func (c *CaseCache) readRecords(ctx context.Context) ([]stepcache.EntryRecord, error) {
	rows, err := c.s.db.QueryContext(ctx, `
		SELECT step_id, warning_ms, critical_ms
		FROM step_cache
		WHERE case_id = ?
		ORDER BY position ASC
	`, c.caseID)
	if err != nil {
		return nil, fmt.Errorf("query step cache rows: %w", err)
	}
	defer rows.Close()

	recs := []stepcache.EntryRecord{}
	for rows.Next() {
		var id sql.NullString
		var r stepcache.EntryRecord
		if err := rows.Scan(&id, &r.WarningMs, &r.CriticalMs); err != nil {
			return nil, fmt.Errorf("scan step cache row: %w", err)
		}
		r.ID = stepIDFromNull(id)
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step cache rows: %w", err)
	}
	return recs, nil
}

// Write implements stepcache.Cache. The prior entry is replaced in a single
// transaction.
func (c *CaseCache) Write(ctx context.Context, steps []model.StepRecord) error {
	recs := stepcache.ToEntryRecords(steps)
	digest, err := stepcache.Digest(c.caseID, recs)
	if err != nil {
		return fmt.Errorf("write step cache: %w", err)
	}

	err = c.s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM step_cache_entries WHERE case_id = ?`, c.caseID,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO step_cache_entries (case_id, digest, written_at) VALUES (?, ?, ?)`,
			c.caseID, digest, formatTime(c.s.clock()),
		); err != nil {
			return err
		}
		for i, r := range recs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO step_cache (case_id, position, step_id, warning_ms, critical_ms)
				VALUES (?, ?, ?, ?, ?)
			`, c.caseID, i, stepIDToNull(r.ID), r.WarningMs, r.CriticalMs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write step cache: %w", err)
	}
	return nil
}

// ClearCache removes the cache entry of caseID. Clearing a missing entry
// is not an error.
func (s *Store) ClearCache(ctx context.Context, caseID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM step_cache_entries WHERE case_id = ?`, caseID,
	); err != nil {
		return fmt.Errorf("clear step cache: %w", err)
	}
	return nil
}

// CachedCase summarizes one cache entry.
type CachedCase struct {
	CaseID    string    `json:"case_id"`
	Steps     int       `json:"steps"`
	Digest    string    `json:"digest"`
	WrittenAt time.Time `json:"written_at"`
}

// ListCachedCases returns all cache entries ordered by case id.
func (s *Store) ListCachedCases(ctx context.Context) ([]CachedCase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.case_id, e.digest, e.written_at, COUNT(c.position)
		FROM step_cache_entries e
		LEFT JOIN step_cache c ON c.case_id = e.case_id
		GROUP BY e.case_id
		ORDER BY e.case_id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list cached cases: %w", err)
	}
	defer rows.Close()

	out := []CachedCase{}
	for rows.Next() {
		var cc CachedCase
		var writtenAt string
		if err := rows.Scan(&cc.CaseID, &cc.Digest, &writtenAt, &cc.Steps); err != nil {
			return nil, fmt.Errorf("scan cached case: %w", err)
		}
		if cc.WrittenAt, err = parseTime(writtenAt); err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cached cases: %w", err)
	}
	return out, nil
}

func stepIDToNull(id model.StepID) sql.NullString {
	name, ok := id.Name()
	return sql.NullString{String: name, Valid: ok}
}

func stepIDFromNull(s sql.NullString) model.StepID {
	if !s.Valid {
		return model.Pending()
	}
	return model.Named(s.String)
}

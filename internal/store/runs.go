package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/stepwise/internal/execution"
	"github.com/roach88/stepwise/internal/model"
)

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the run history.
type RunSummary struct {
	ID        string      `json:"id"`
	SuiteID   string      `json:"suite_id"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Status    model.State `json:"status"`
}

// WriteRun persists a run report with all case and step results.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - rewriting a run id is
// silently ignored.
func (s *Store) WriteRun(ctx context.Context, r *execution.Report) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, suite_id, started_at, ended_at, status)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, r.RunID, r.SuiteID, formatTime(r.StartedAt), formatTime(r.EndedAt), string(r.State))
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		for ci, cr := range r.Cases {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO case_results
				(run_id, position, case_id, state, started_at, ended_at, duration_ms, warning_ms, critical_ms, error)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`,
				r.RunID, ci, cr.ID, string(cr.State),
				formatTime(cr.StartedAt), formatTime(cr.EndedAt),
				cr.DurationMs, cr.WarningMs, cr.CriticalMs, cr.Error,
			); err != nil {
				return err
			}
			for si, sr := range cr.Steps {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO step_results
					(run_id, case_position, position, step_id, state, duration_ms, warning_ms, critical_ms, error)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				`,
					r.RunID, ci, si, stepIDToNull(sr.ID), string(sr.State),
					sr.DurationMs, sr.WarningMs, sr.CriticalMs, sr.Error,
				); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.RunID, err)
	}
	return nil
}

// ReadRun loads a persisted run report.
// Returns ErrRunNotFound if no run has the id.
func (s *Store) ReadRun(ctx context.Context, id string) (*execution.Report, error) {
	var r execution.Report
	var started, ended, status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, suite_id, started_at, ended_at, status FROM runs WHERE id = ?
	`, id).Scan(&r.RunID, &r.SuiteID, &started, &ended, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	r.State = model.State(status)
	if r.StartedAt, err = parseTime(started); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	if r.EndedAt, err = parseTime(ended); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}

	if r.Cases, err = s.readCaseResults(ctx, id); err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	for i := range r.Cases {
		if r.Cases[i].Steps, err = s.readStepResults(ctx, id, i); err != nil {
			return nil, fmt.Errorf("read run %s: %w", id, err)
		}
	}
	return &r, nil
}

func (s *Store) readCaseResults(ctx context.Context, runID string) ([]execution.CaseReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, state, started_at, ended_at, duration_ms, warning_ms, critical_ms, error
		FROM case_results
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	out := []execution.CaseReport{}
	for rows.Next() {
		var cr execution.CaseReport
		var state, started, ended string
		if err := rows.Scan(&cr.ID, &state, &started, &ended,
			&cr.DurationMs, &cr.WarningMs, &cr.CriticalMs, &cr.Error); err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		cr.State = model.State(state)
		if cr.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if cr.EndedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate case results: %w", err)
	}
	return out, nil
}

func (s *Store) readStepResults(ctx context.Context, runID string, casePos int) ([]execution.StepReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step_id, state, duration_ms, warning_ms, critical_ms, error
		FROM step_results
		WHERE run_id = ? AND case_position = ?
		ORDER BY position ASC
	`, runID, casePos)
	if err != nil {
		return nil, fmt.Errorf("query step results: %w", err)
	}
	defer rows.Close()

	out := []execution.StepReport{}
	for rows.Next() {
		var sr execution.StepReport
		var id sql.NullString
		var state string
		if err := rows.Scan(&id, &state, &sr.DurationMs, &sr.WarningMs, &sr.CriticalMs, &sr.Error); err != nil {
			return nil, fmt.Errorf("scan step result: %w", err)
		}
		sr.ID = stepIDFromNull(id)
		sr.State = model.State(state)
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate step results: %w", err)
	}
	return out, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, suite_id, started_at, ended_at, status
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	out := []RunSummary{}
	for rows.Next() {
		var rs RunSummary
		var started, ended, status string
		if err := rows.Scan(&rs.ID, &rs.SuiteID, &started, &ended, &status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rs.Status = model.State(status)
		if rs.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if rs.EndedAt, err = parseTime(ended); err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

package stepcache

import (
	"context"

	"github.com/roach88/stepwise/internal/model"
)

// Memory is an in-process Cache. The zero value is an empty cache.
// Not safe for concurrent use.
type Memory struct {
	steps  []model.StepRecord
	stored bool
	writes int
}

// NewMemory creates a cache pre-populated with steps.
// A nil slice yields an empty cache.
func NewMemory(steps []model.StepRecord) *Memory {
	m := &Memory{}
	if steps != nil {
		m.steps = FromEntryRecords(ToEntryRecords(steps))
		m.stored = true
	}
	return m
}

// Exists implements Cache.
func (m *Memory) Exists(ctx context.Context) (bool, error) {
	return m.stored, nil
}

// Read implements Cache.
func (m *Memory) Read(ctx context.Context) ([]model.StepRecord, error) {
	if !m.stored {
		return nil, ErrCacheMiss
	}
	out := make([]model.StepRecord, len(m.steps))
	copy(out, m.steps)
	return out, nil
}

// Write implements Cache.
func (m *Memory) Write(ctx context.Context, steps []model.StepRecord) error {
	m.steps = FromEntryRecords(ToEntryRecords(steps))
	m.stored = true
	m.writes++
	return nil
}

// Writes returns how many times Write was called.
func (m *Memory) Writes() int {
	return m.writes
}

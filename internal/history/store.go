// Package history provides storage for simulation summaries.
package history

import (
	"context"

	"github.com/google/uuid"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

// DefaultLimit caps List when the caller passes a non-positive limit.
const DefaultLimit = 50

var (
	_ scenario.HistoryStore = (*MemoryStore)(nil)
	_ scenario.HistoryStore = (*SQLiteStore)(nil)
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func withID(rec scenario.HistoryRecord) scenario.HistoryRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return rec
}

// Open returns a SQLite store at path, or a memory store holding at most
// memoryRecords records when path is empty. The close func is always non-nil.
func Open(ctx context.Context, path string, memoryRecords int) (scenario.HistoryStore, func() error, error) {
	if path == "" {
		return NewMemoryStore(memoryRecords), func() error { return nil }, nil
	}
	s, err := NewSQLiteStore(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

package history

import (
	"context"
	"sync"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

// DefaultMemoryRecords is the capacity used when NewMemoryStore is given a
// non-positive size.
const DefaultMemoryRecords = 1000

// MemoryStore keeps the most recent records in process memory, evicting the
// oldest once full. Intended for tests and for transports that run without a
// database.
type MemoryStore struct {
	mu    sync.RWMutex
	ring  []scenario.HistoryRecord
	start int
	n     int
}

func NewMemoryStore(maxRecords int) *MemoryStore {
	if maxRecords <= 0 {
		maxRecords = DefaultMemoryRecords
	}
	return &MemoryStore{ring: make([]scenario.HistoryRecord, maxRecords)}
}

func (s *MemoryStore) Append(ctx context.Context, rec scenario.HistoryRecord) (scenario.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return scenario.HistoryRecord{}, err
	}
	rec = withID(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.n < len(s.ring) {
		s.ring[(s.start+s.n)%len(s.ring)] = rec
		s.n++
	} else {
		s.ring[s.start] = rec
		s.start = (s.start + 1) % len(s.ring)
	}
	return rec, nil
}

// List returns the newest records first, optionally filtered by scenario name.
func (s *MemoryStore) List(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = normalizeLimit(limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]scenario.HistoryRecord, 0, min(limit, s.n))
	for k := s.n - 1; k >= 0 && len(out) < limit; k-- {
		rec := s.ring[(s.start+k)%len(s.ring)]
		if scenarioName != "" && rec.Scenario != scenarioName {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Len reports how many records are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.n
}

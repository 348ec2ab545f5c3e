package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
type LedgerStore struct {
	mu   sync.RWMutex
	data map[uuid.UUID][]forecast.LedgerRow
}

// NewLedgerStore creates an empty ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{data: make(map[uuid.UUID][]forecast.LedgerRow)}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

// InsertBulk stores the ledger of a run. Rows are kept sorted by day.
func (s *LedgerStore) InsertBulk(_ context.Context, runID uuid.UUID, rows []forecast.LedgerRow) error {
	if runID == uuid.Nil || len(rows) == 0 {
		return storage.ErrInvalidInput
	}
	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.Day]; dup {
			return storage.ErrDuplicateKey
		}
		seen[r.Day] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}
	stored := slices.Clone(rows)
	slices.SortFunc(stored, func(a, b forecast.LedgerRow) int { return a.Day - b.Day })
	s.data[runID] = stored
	return nil
}

// GetByRunID returns the ledger ordered by day, or ErrNotFound.
func (s *LedgerStore) GetByRunID(_ context.Context, runID uuid.UUID) ([]forecast.LedgerRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return slices.Clone(rows), nil
}

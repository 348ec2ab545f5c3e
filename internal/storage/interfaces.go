package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"supply-forecast/internal/forecast"
)

// KindSimulate marks a single forecast run.
const KindSimulate = "simulate"

// RunRecord is the persisted header of one completed forecast.
type RunRecord struct {
	ID        uuid.UUID        `json:"id"`
	Kind      string           `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
	Horizon   int              `json:"horizon_days"`
	Seed      uint64           `json:"seed"`
	Scenario  string           `json:"scenario,omitempty"`
	Config    json.RawMessage  `json:"config,omitempty"`
	Summary   forecast.Summary `json:"summary"`
}

// NewRunRecord stamps a fresh id and creation time.
func NewRunRecord(kind string, horizon int, seed uint64, scenario string, cfg json.RawMessage, summary forecast.Summary) RunRecord {
	return RunRecord{
		ID:        uuid.New(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		Horizon:   horizon,
		Seed:      seed,
		Scenario:  scenario,
		Config:    cfg,
		Summary:   summary,
	}
}

// RunStore provides access to run headers.
type RunStore interface {
	// Insert adds a run. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, r *RunRecord) error

	// GetByID returns ErrNotFound if the run does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*RunRecord, error)

	// List returns at most limit runs, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]*RunRecord, error)
}

// LedgerStore provides access to per-day ledgers.
type LedgerStore interface {
	// InsertBulk stores the whole ledger of a run atomically.
	// Returns ErrDuplicateKey if the run already has a ledger.
	InsertBulk(ctx context.Context, runID uuid.UUID, rows []forecast.LedgerRow) error

	// GetByRunID returns the ledger ordered by day, or ErrNotFound.
	GetByRunID(ctx context.Context, runID uuid.UUID) ([]forecast.LedgerRow, error)
}

package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"supply-forecast/internal/forecast"
)

// Archive pairs a run store with a ledger store.
// Ledgers is optional; a nil LedgerStore keeps only run headers.
type Archive struct {
	Runs    RunStore
	Ledgers LedgerStore
}

// Save writes the ledger first so a listed run always has its rows.
func (a *Archive) Save(ctx context.Context, rec *RunRecord, ledger []forecast.LedgerRow) error {
	if rec == nil || rec.ID == uuid.Nil {
		return ErrInvalidInput
	}
	if a.Ledgers != nil && len(ledger) > 0 {
		if err := a.Ledgers.InsertBulk(ctx, rec.ID, ledger); err != nil {
			return fmt.Errorf("store ledger %s: %w", rec.ID, err)
		}
	}
	if err := a.Runs.Insert(ctx, rec); err != nil {
		return fmt.Errorf("store run %s: %w", rec.ID, err)
	}
	return nil
}

// Ledger returns the rows of a known run.
func (a *Archive) Ledger(ctx context.Context, id uuid.UUID) ([]forecast.LedgerRow, error) {
	if _, err := a.Runs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if a.Ledgers == nil {
		return nil, ErrNotFound
	}
	return a.Ledgers.GetByRunID(ctx, id)
}

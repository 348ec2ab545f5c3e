package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
// Used when no ClickHouse DSN is configured.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

func ledgerColumns() []string {
	cols := make([]string, 0, len(forecast.Columns)+2)
	cols = append(cols, "run_id", "day")
	for _, c := range forecast.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

// InsertBulk copies the ledger in one transaction.
// The (run_id, day) primary key rejects a second ledger for the same run.
func (s *LedgerStore) InsertBulk(ctx context.Context, runID uuid.UUID, rows []forecast.LedgerRow) error {
	if runID == uuid.Nil || len(rows) == 0 {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"forecast_ledgers"},
		ledgerColumns(),
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := &rows[i]
			values := make([]any, 0, len(forecast.Columns)+2)
			values = append(values, runID, r.Day)
			for _, c := range forecast.Columns {
				values = append(values, c.Value(r))
			}
			return values, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy ledger rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetByRunID returns the ledger ordered by day, or ErrNotFound.
func (s *LedgerStore) GetByRunID(ctx context.Context, runID uuid.UUID) ([]forecast.LedgerRow, error) {
	query := `SELECT ` + strings.Join(ledgerColumns()[1:], ", ") + `
		FROM forecast_ledgers
		WHERE run_id = $1
		ORDER BY day ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var result []forecast.LedgerRow
	values := make([]float64, len(forecast.Columns))
	dest := make([]any, 0, len(values)+1)
	var day int
	dest = append(dest, &day)
	for i := range values {
		dest = append(dest, &values[i])
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		r, err := forecast.RowFromValues(day, values)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger: %w", err)
	}
	if len(result) == 0 {
		return nil, storage.ErrNotFound
	}
	return result, nil
}

package clickhouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/storage"
)

// LedgerStore implements storage.LedgerStore using ClickHouse.
type LedgerStore struct {
	conn *Conn
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(conn *Conn) *LedgerStore {
	return &LedgerStore{conn: conn}
}

var _ storage.LedgerStore = (*LedgerStore)(nil)

func valueColumns() string {
	names := make([]string, len(forecast.Columns))
	for i, c := range forecast.Columns {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// InsertBulk appends the ledger as one batch.
// MergeTree does not enforce keys, so an existing ledger is checked first.
func (s *LedgerStore) InsertBulk(ctx context.Context, runID uuid.UUID, rows []forecast.LedgerRow) error {
	if runID == uuid.Nil || len(rows) == 0 {
		return storage.ErrInvalidInput
	}

	seen := make(map[int]struct{}, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.Day]; dup || r.Day < 0 {
			return storage.ErrDuplicateKey
		}
		seen[r.Day] = struct{}{}
	}

	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO forecast_ledgers (run_id, day, `+valueColumns()+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i := range rows {
		r := &rows[i]
		values := make([]any, 0, len(forecast.Columns)+2)
		values = append(values, runID, uint32(r.Day))
		for _, c := range forecast.Columns {
			values = append(values, c.Value(r))
		}
		if err := batch.Append(values...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID returns the ledger ordered by day, or ErrNotFound.
func (s *LedgerStore) GetByRunID(ctx context.Context, runID uuid.UUID) ([]forecast.LedgerRow, error) {
	query := `SELECT day, ` + valueColumns() + `
		FROM forecast_ledgers
		WHERE run_id = ?
		ORDER BY day ASC`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var (
		result []forecast.LedgerRow
		day    uint32
	)
	values := make([]float64, len(forecast.Columns))
	dest := make([]any, 0, len(values)+1)
	dest = append(dest, &day)
	for i := range values {
		dest = append(dest, &values[i])
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		r, err := forecast.RowFromValues(int(day), values)
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

func (s *LedgerStore) exists(ctx context.Context, runID uuid.UUID) (bool, error) {
	var count uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM forecast_ledgers WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

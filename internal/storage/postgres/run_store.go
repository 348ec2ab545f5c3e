package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"supply-forecast/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	id, kind, created_at, horizon_days, seed, scenario, config,
	summary_days, final_circ_supply, final_market_cap, final_staking_tvl,
	final_ecosystem_fund, final_year_inflation, min_ecosystem_fund,
	total_burned, total_vested, total_rewards, negative_fund`

// Insert adds a run. Returns ErrDuplicateKey if the id exists.
func (s *RunStore) Insert(ctx context.Context, r *storage.RunRecord) error {
	if r == nil || r.ID == uuid.Nil {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO forecast_runs (` + runColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	var cfg []byte
	if len(r.Config) > 0 {
		cfg = r.Config
	}
	sum := r.Summary
	_, err := s.pool.Exec(ctx, query,
		r.ID,
		r.Kind,
		r.CreatedAt,
		r.Horizon,
		int64(r.Seed),
		r.Scenario,
		cfg,
		sum.Days,
		sum.FinalCircSupply,
		sum.FinalMarketCap,
		sum.FinalStakingTVL,
		sum.FinalEcosystemFund,
		sum.FinalYearInflation,
		sum.MinEcosystemFund,
		sum.TotalBurned,
		sum.TotalVested,
		sum.TotalRewards,
		sum.NegativeFund,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID returns ErrNotFound if the run does not exist.
func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*storage.RunRecord, error) {
	query := `SELECT` + runColumns + ` FROM forecast_runs WHERE id = $1`

	r, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}
	return r, nil
}

// List returns at most limit runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]*storage.RunRecord, error) {
	query := `SELECT` + runColumns + ` FROM forecast_runs ORDER BY created_at DESC, id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []*storage.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return result, nil
}

func scanRun(row pgx.Row) (*storage.RunRecord, error) {
	var (
		r    storage.RunRecord
		seed int64
		cfg  []byte
	)
	sum := &r.Summary
	err := row.Scan(
		&r.ID,
		&r.Kind,
		&r.CreatedAt,
		&r.Horizon,
		&seed,
		&r.Scenario,
		&cfg,
		&sum.Days,
		&sum.FinalCircSupply,
		&sum.FinalMarketCap,
		&sum.FinalStakingTVL,
		&sum.FinalEcosystemFund,
		&sum.FinalYearInflation,
		&sum.MinEcosystemFund,
		&sum.TotalBurned,
		&sum.TotalVested,
		&sum.TotalRewards,
		&sum.NegativeFund,
	)
	if err != nil {
		return nil, err
	}
	r.Seed = uint64(seed)
	r.Config = cfg
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

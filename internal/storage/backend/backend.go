// Package backend opens the configured run archive and applies migrations.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"supply-forecast/internal/storage"
	chstore "supply-forecast/internal/storage/clickhouse"
	"supply-forecast/internal/storage/memory"
	"supply-forecast/internal/storage/migrations"
	"supply-forecast/internal/storage/postgres"
)

// Options select the stores. Run headers live in Postgres; ledgers live in
// ClickHouse when ClickhouseDSN is set and in Postgres otherwise.
type Options struct {
	PostgresDSN   string
	ClickhouseDSN string
	// Memory keeps everything in process when no DSN is set.
	Memory bool
}

// Enabled reports whether Open will return an archive.
func (o Options) Enabled() bool {
	return o.PostgresDSN != "" || o.ClickhouseDSN != "" || o.Memory
}

// Open connects the stores, runs migrations and returns the archive with a
// function releasing its connections. The archive is nil when nothing is enabled.
func Open(ctx context.Context, opts Options) (*storage.Archive, func(), error) {
	log := zerolog.Ctx(ctx)
	noop := func() {}

	switch {
	case opts.PostgresDSN == "" && opts.ClickhouseDSN != "":
		return nil, noop, errors.New("clickhouse stores ledgers only; set a postgres dsn for run headers")
	case opts.PostgresDSN == "" && opts.Memory:
		log.Info().Str("backend", "memory").Msg("run archive enabled")
		return &storage.Archive{Runs: memory.NewRunStore(), Ledgers: memory.NewLedgerStore()}, noop, nil
	case opts.PostgresDSN == "":
		return nil, noop, nil
	}

	pool, err := postgres.NewPool(ctx, opts.PostgresDSN)
	if err != nil {
		return nil, noop, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, noop, fmt.Errorf("postgres migrations: %w", err)
	}
	archive := &storage.Archive{Runs: postgres.NewRunStore(pool)}

	if opts.ClickhouseDSN == "" {
		archive.Ledgers = postgres.NewLedgerStore(pool)
		log.Info().Str("backend", "postgres").Msg("run archive enabled")
		return archive, pool.Close, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, opts.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, noop, fmt.Errorf("clickhouse migrations: %w", err)
	}
	archive.Ledgers = chstore.NewLedgerStore(conn)
	log.Info().Str("backend", "postgres+clickhouse").Msg("run archive enabled")
	return archive, func() {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("close clickhouse")
		}
		pool.Close()
	}, nil
}

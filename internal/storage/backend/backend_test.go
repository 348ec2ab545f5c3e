package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supply-forecast/internal/forecast"
	"supply-forecast/internal/storage"
)

func TestOpen_Disabled(t *testing.T) {
	opts := Options{}
	assert.False(t, opts.Enabled())

	archive, closeFn, err := Open(context.Background(), opts)
	require.NoError(t, err)
	assert.Nil(t, archive)
	closeFn()
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	archive, closeFn, err := Open(ctx, Options{Memory: true})
	require.NoError(t, err)
	defer closeFn()
	require.NotNil(t, archive)

	rec := storage.NewRunRecord(storage.KindSimulate, 1, 1, "", nil, forecast.Summary{Days: 1})
	require.NoError(t, archive.Save(ctx, &rec, []forecast.LedgerRow{{Day: 0, CircSupply: 10}}))

	rows, err := archive.Ledger(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.0, rows[0].CircSupply)
}

func TestOpen_ClickhouseNeedsPostgres(t *testing.T) {
	_, closeFn, err := Open(context.Background(), Options{ClickhouseDSN: "clickhouse://localhost:9000/forecasts"})
	require.Error(t, err)
	closeFn()
}

func TestOpen_BadPostgresDSN(t *testing.T) {
	_, closeFn, err := Open(context.Background(), Options{PostgresDSN: "postgres://%zz"})
	require.Error(t, err)
	closeFn()
}
